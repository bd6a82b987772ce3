package report

import (
	"time"

	"github.com/shopspring/decimal"

	"budgetbook/internal/models"
)

// CategoryTotal is the summed spending for one category.
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
}

// Summary holds the aggregate figures shown on the listing page.
type Summary struct {
	TotalSpent      decimal.Decimal
	TodayTotal      decimal.Decimal
	MonthTotal      decimal.Decimal
	HasBudget       bool
	Budget          decimal.Decimal
	RemainingBudget decimal.Decimal
	BudgetWarning   bool
	Categories      []CategoryTotal
}

// Summarize computes aggregates for the listing page.
//
// TotalSpent and Categories are computed over filtered; TodayTotal and
// MonthTotal over all of the user's expenses regardless of the request's
// filters. "Today" and "current month" are evaluated against now in UTC.
// budget is the raw monthly_budget setting value; empty or non-numeric
// means no budget is set. All sums over empty input are zero.
func Summarize(filtered, all []models.Expense, budget string, now time.Time) Summary {
	var s Summary

	for _, e := range filtered {
		s.TotalSpent = s.TotalSpent.Add(e.Amount)
	}
	s.Categories = categoryTotals(filtered)

	now = now.UTC()
	for _, e := range all {
		if sameDay(e.Date, now) {
			s.TodayTotal = s.TodayTotal.Add(e.Amount)
		}
		if e.Date.Year() == now.Year() && e.Date.Month() == now.Month() {
			s.MonthTotal = s.MonthTotal.Add(e.Amount)
		}
	}

	if b, err := decimal.NewFromString(budget); budget != "" && err == nil {
		s.HasBudget = true
		s.Budget = b
		s.RemainingBudget = b.Sub(s.MonthTotal)
		s.BudgetWarning = s.MonthTotal.GreaterThan(b)
	}
	return s
}

// categoryTotals accumulates per-category sums, ordered by the first
// appearance of each category in expenses. Chart labels depend on this
// ordering.
func categoryTotals(expenses []models.Expense) []CategoryTotal {
	index := make(map[string]int)
	var totals []CategoryTotal
	for _, e := range expenses {
		i, ok := index[e.Category]
		if !ok {
			i = len(totals)
			index[e.Category] = i
			totals = append(totals, CategoryTotal{Category: e.Category})
		}
		totals[i].Total = totals[i].Total.Add(e.Amount)
	}
	return totals
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
