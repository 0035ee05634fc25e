package ledger

import (
	"context"
	"fmt"
	"time"

	pkgerrors "github.com/robertrullyp/drsis-finance/pkg/errors"
)

const refNoSeqAttempts = 25

// FormatReferenceNo renders the canonical reference number for a date and a
// one-based daily sequence, e.g. TXN-20260115-0003.
func FormatReferenceNo(date time.Time, seq int64) string {
	return fmt.Sprintf("TXN-%s-%04d", date.Format("20060102"), seq)
}

// nextReferenceNos allocates n free daily sequence numbers inside the
// caller's transaction. The unique index on reference_no remains the safety
// net against two transactions racing on the same slot.
func nextReferenceNos(ctx context.Context, repo Repository, date time.Time, n int) ([]string, error) {
	count, err := repo.CountForDate(ctx, date)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count entries for date")
	}

	allocated := make([]string, 0, n)
	for seq := count + 1; seq <= count+refNoSeqAttempts; seq++ {
		candidate := FormatReferenceNo(date, seq)
		existing, err := repo.FindByReferenceNo(ctx, candidate)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: probe reference number")
		}
		if existing == nil {
			allocated = append(allocated, candidate)
			if len(allocated) == n {
				return allocated, nil
			}
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a reference number for "+date.Format("2006-01-02"))
}
