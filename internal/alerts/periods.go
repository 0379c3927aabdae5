package alerts

import (
	"fmt"
	"time"
)

// Named period tokens accepted by threshold conditions.
const (
	PeriodToday      = "today"
	PeriodYesterday  = "yesterday"
	PeriodLast7Days  = "last_7_days"
	PeriodLast30Days = "last_30_days"
	PeriodThisWeek   = "this_week"
	PeriodThisMonth  = "this_month"
)

// Budget period tokens, aligned to the calendar unit they cover.
const (
	BudgetDaily   = "daily"
	BudgetWeekly  = "weekly"
	BudgetMonthly = "monthly"
)

// ResolvePeriod maps a named period token to an inclusive [from, to] date
// range ending at or before now. Weeks start on Monday.
func ResolvePeriod(token string, now time.Time) (from, to time.Time, err error) {
	today := truncateDay(now)
	switch token {
	case PeriodToday:
		return today, today, nil
	case PeriodYesterday:
		y := today.AddDate(0, 0, -1)
		return y, y, nil
	case PeriodLast7Days:
		return today.AddDate(0, 0, -6), today, nil
	case PeriodLast30Days:
		return today.AddDate(0, 0, -29), today, nil
	case PeriodThisWeek:
		return startOfWeek(today), today, nil
	case PeriodThisMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", token)
}

// ResolveBudgetPeriod maps a budget period token to the calendar window
// containing now. Budgets track the current day, week, or month to date.
func ResolveBudgetPeriod(token string, now time.Time) (from, to time.Time, err error) {
	today := truncateDay(now)
	switch token {
	case BudgetDaily:
		return today, today, nil
	case BudgetWeekly:
		return startOfWeek(today), today, nil
	case BudgetMonthly:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today, nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown budget period %q", token)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func startOfWeek(day time.Time) time.Time {
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return day.AddDate(0, 0, -(weekday - 1))
}
