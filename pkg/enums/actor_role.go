package enums

import "fmt"

// ActorRole maps to the actor_role_enum enum in Postgres.
type ActorRole string

const (
	ActorRoleFinanceAdmin ActorRole = "finance_admin"
	ActorRoleFinanceStaff ActorRole = "finance_staff"
	ActorRoleCashier      ActorRole = "cashier"
)

var validActorRoles = []ActorRole{
	ActorRoleFinanceAdmin,
	ActorRoleFinanceStaff,
	ActorRoleCashier,
}

// IsValid reports whether the value matches the canonical actor role enum.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// Elevated reports whether the role can edit ledger entries created by others.
func (r ActorRole) Elevated() bool {
	return r == ActorRoleFinanceAdmin
}

// ParseActorRole converts raw input into ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
