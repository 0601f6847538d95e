package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandOneTimeSingleOccurrence(t *testing.T) {
	start := d(2024, 1, 15)
	specs := ExpandOccurrences(RecurrenceOneTime, start, dp(2024, 6, 1), 500, d(2025, 1, 15), false)
	require.Len(t, specs, 1)
	assert.Equal(t, start, specs[0].DueDate)
	assert.Equal(t, int64(500), specs[0].Amount)
}

func TestExpandRecurringEndExclusive(t *testing.T) {
	// 2024-01-01 to 2024-04-01 yields exactly three occurrences; the end
	// date itself gets none.
	specs := ExpandOccurrences(RecurrenceRecurring, d(2024, 1, 1), dp(2024, 4, 1), 1200, d(2025, 1, 1), false)
	require.Len(t, specs, 3)
	assert.Equal(t, d(2024, 1, 1), specs[0].DueDate)
	assert.Equal(t, d(2024, 2, 1), specs[1].DueDate)
	assert.Equal(t, d(2024, 3, 1), specs[2].DueDate)
	for _, spec := range specs {
		assert.Equal(t, int64(1200), spec.Amount)
	}
}

func TestExpandRecurringOpenEndedBoundedByHorizon(t *testing.T) {
	specs := ExpandOccurrences(RecurrenceRecurring, d(2024, 1, 1), nil, 100, d(2024, 7, 1), false)
	require.Len(t, specs, 6)
	assert.Equal(t, d(2024, 1, 1), specs[0].DueDate)
	assert.Equal(t, d(2024, 6, 1), specs[5].DueDate)
}

func TestExpandRecurringStartAfterEndYieldsNothing(t *testing.T) {
	specs := ExpandOccurrences(RecurrenceRecurring, d(2024, 5, 1), dp(2024, 4, 1), 100, d(2025, 1, 1), false)
	assert.Empty(t, specs)
}

func TestExpandSplitAmountRemainderOnFirst(t *testing.T) {
	specs := ExpandOccurrences(RecurrenceRecurring, d(2024, 1, 1), dp(2024, 4, 1), 1000, d(2025, 1, 1), true)
	require.Len(t, specs, 3)
	assert.Equal(t, int64(334), specs[0].Amount)
	assert.Equal(t, int64(333), specs[1].Amount)
	assert.Equal(t, int64(333), specs[2].Amount)

	var total int64
	for _, spec := range specs {
		total += spec.Amount
	}
	assert.Equal(t, int64(1000), total)
}

func TestExpandMonthEndClamping(t *testing.T) {
	// AddDate normalizes Jan 31 + 1 month; the expansion follows Go's
	// calendar arithmetic.
	specs := ExpandOccurrences(RecurrenceRecurring, d(2024, 1, 31), dp(2024, 4, 1), 100, d(2025, 1, 1), false)
	require.NotEmpty(t, specs)
	assert.Equal(t, d(2024, 1, 31), specs[0].DueDate)
	assert.Equal(t, time.March, specs[1].DueDate.Month())
}
