package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledgerflow-backend/internal/domain"
)

// Recompute returns copies of entries in ledger order with Balance set to the
// running signed total. The input slice and its entries are left untouched.
func Recompute(entries []*domain.Entry) []*domain.Entry {
	out := make([]*domain.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	domain.SortChronologically(out)

	running := decimal.Zero
	for _, e := range out {
		running = running.Add(e.SignedAmount())
		e.Balance = running
	}
	return out
}

// Changed returns the entries of after whose balance differs from the
// matching entry of before. Entries missing from before count as changed.
func Changed(before, after []*domain.Entry) []*domain.Entry {
	stored := make(map[uuid.UUID]decimal.Decimal, len(before))
	for _, e := range before {
		stored[e.ID] = e.Balance
	}

	var changed []*domain.Entry
	for _, e := range after {
		old, ok := stored[e.ID]
		if !ok || !old.Equal(e.Balance) {
			changed = append(changed, e)
		}
	}
	return changed
}
