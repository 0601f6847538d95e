package domain

import "time"

// OccurrenceSpec is one expansion result before identity is assigned.
type OccurrenceSpec struct {
	DueDate time.Time
	Amount  int64
}

// ExpandOccurrences materializes the occurrences of a definition. ONE_TIME
// yields exactly one occurrence on the start date regardless of other fields.
// RECURRING yields one occurrence per month from the start date up to, but
// excluding, the end date; when the definition has no end date the expansion
// is bounded by horizon instead (also exclusive). The result is a finite,
// eagerly built slice because every element is persisted transactionally.
//
// splitAmount divides the definition amount evenly across occurrences, with
// the remainder on the first one; otherwise each occurrence carries the full
// amount.
func ExpandOccurrences(recur Recurrence, start time.Time, end *time.Time, amount int64, horizon time.Time, splitAmount bool) []OccurrenceSpec {
	if recur == RecurrenceOneTime {
		return []OccurrenceSpec{{DueDate: start, Amount: amount}}
	}

	bound := horizon
	if end != nil {
		bound = *end
	}

	var dues []time.Time
	for due := start; due.Before(bound); due = due.AddDate(0, 1, 0) {
		dues = append(dues, due)
	}

	specs := make([]OccurrenceSpec, 0, len(dues))
	if len(dues) == 0 {
		return specs
	}

	if !splitAmount {
		for _, due := range dues {
			specs = append(specs, OccurrenceSpec{DueDate: due, Amount: amount})
		}
		return specs
	}

	n := int64(len(dues))
	share := amount / n
	remainder := amount - share*n
	for i, due := range dues {
		a := share
		if i == 0 {
			a += remainder
		}
		specs = append(specs, OccurrenceSpec{DueDate: due, Amount: a})
	}
	return specs
}
