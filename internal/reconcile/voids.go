package reconcile

import "github.com/Veraticus/settle/internal/model"

// EliminateVoids removes authorizations that were reversed before settling:
// pairs of uncleared transactions with the same payee and date and opposite
// amounts. It returns a filtered copy of the batch and the removed legs, both
// in batch order. A removed transaction is never paired again.
func EliminateVoids(batch []model.CandidateTransaction) (kept, voided []model.CandidateTransaction) {
	removed := make([]bool, len(batch))

	for i := range batch {
		if removed[i] || batch[i].Cleared != model.Uncleared {
			continue
		}
		for j := range batch {
			if j == i || removed[j] {
				continue
			}
			if voids(&batch[i], &batch[j]) {
				removed[i], removed[j] = true, true
				break
			}
		}
	}

	kept = make([]model.CandidateTransaction, 0, len(batch))
	for i, c := range batch {
		if removed[i] {
			voided = append(voided, c)
			continue
		}
		kept = append(kept, c)
	}

	return kept, voided
}

func voids(t, v *model.CandidateTransaction) bool {
	return v.Cleared == model.Uncleared &&
		v.Amount == -t.Amount &&
		v.PayeeName == t.PayeeName &&
		v.Date.Equal(t.Date)
}
