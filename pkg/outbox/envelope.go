package outbox

import (
	"encoding/json"
	"time"

	"github.com/robertrullyp/drsis-finance/pkg/enums"
)

// ActorRef identifies who caused the event, carried so consumers can
// attribute changes without a join back to the source service.
type ActorRef struct {
	ActorID string          `json:"actorId"`
	Role    enums.ActorRole `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned wrapper stored in outbox_events.payload.
// Consumers decode Data with the decoder registered for Version.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
