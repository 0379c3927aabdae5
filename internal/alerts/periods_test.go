package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Thursday, mid-month, mid-day.
var refNow = time.Date(2026, 8, 20, 14, 30, 0, 0, time.UTC)

func TestResolvePeriod(t *testing.T) {
	tests := []struct {
		token string
		from  time.Time
		to    time.Time
	}{
		{PeriodToday, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{PeriodYesterday, time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 19, 0, 0, 0, 0, time.UTC)},
		{PeriodLast7Days, time.Date(2026, 8, 14, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{PeriodLast30Days, time.Date(2026, 7, 22, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{PeriodThisWeek, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
		{PeriodThisMonth, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.token, func(t *testing.T) {
			from, to, err := ResolvePeriod(tc.token, refNow)
			require.NoError(t, err)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tc.to, to)
		})
	}
}

func TestResolvePeriodUnknownToken(t *testing.T) {
	_, _, err := ResolvePeriod("fortnight", refNow)
	assert.Error(t, err)
}

func TestResolvePeriodWeekStartsMonday(t *testing.T) {
	// A Sunday belongs to the week that started the previous Monday.
	sunday := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)
	from, _, err := ResolvePeriod(PeriodThisWeek, sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), from)
}

func TestResolveBudgetPeriod(t *testing.T) {
	from, to, err := ResolveBudgetPeriod(BudgetDaily, refNow)
	require.NoError(t, err)
	assert.Equal(t, from, to)

	from, _, err = ResolveBudgetPeriod(BudgetWeekly, refNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), from)

	from, _, err = ResolveBudgetPeriod(BudgetMonthly, refNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), from)

	_, _, err = ResolveBudgetPeriod("quarterly", refNow)
	assert.Error(t, err)
}
