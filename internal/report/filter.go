package report

import (
	"strings"
	"time"

	"budgetbook/internal/models"
)

// Filter is a conjunctive predicate narrowing which expenses are listed or
// exported. A nil bound or empty category imposes no constraint.
type Filter struct {
	From     *time.Time // inclusive lower bound on the expense date
	To       *time.Time // inclusive upper bound on the expense date
	Category string     // exact-match category, empty means all
}

// NewFilter builds a Filter from raw request parameters.
//
// month ("2006-01") expands to the inclusive first-through-last-day range of
// that calendar month; dateFrom and dateTo ("2006-01-02") each tighten one
// bound. Malformed values are ignored and impose no constraint, so
// construction never fails. A category of "all" (case-insensitive) means no
// category constraint.
func NewFilter(dateFrom, dateTo, category, month string) Filter {
	var f Filter

	if t, err := time.Parse("2006-01", month); err == nil {
		first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		last := first.AddDate(0, 1, -1)
		f.tightenFrom(first)
		f.tightenTo(last)
	}
	if t, err := time.Parse(models.DateFormat, dateFrom); err == nil {
		f.tightenFrom(t)
	}
	if t, err := time.Parse(models.DateFormat, dateTo); err == nil {
		f.tightenTo(t)
	}

	category = strings.TrimSpace(category)
	if !strings.EqualFold(category, "all") {
		f.Category = category
	}
	return f
}

func (f *Filter) tightenFrom(t time.Time) {
	if f.From == nil || t.After(*f.From) {
		f.From = &t
	}
}

func (f *Filter) tightenTo(t time.Time) {
	if f.To == nil || t.Before(*f.To) {
		f.To = &t
	}
}
