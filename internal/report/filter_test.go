package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestNewFilter_Empty(t *testing.T) {
	f := NewFilter("", "", "", "")
	assert.Nil(t, f.From)
	assert.Nil(t, f.To)
	assert.Empty(t, f.Category)
}

func TestNewFilter_MonthExpandsToCalendarRange(t *testing.T) {
	tests := []struct {
		month string
		from  string
		to    string
	}{
		{"2026-02", "2026-02-01", "2026-02-28"},
		{"2024-02", "2024-02-01", "2024-02-29"}, // leap year
		{"2026-01", "2026-01-01", "2026-01-31"},
		{"2026-04", "2026-04-01", "2026-04-30"},
		{"2026-12", "2026-12-01", "2026-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.month, func(t *testing.T) {
			f := NewFilter("", "", "", tt.month)
			require.NotNil(t, f.From)
			require.NotNil(t, f.To)
			assert.Equal(t, tt.from, f.From.Format("2006-01-02"))
			assert.Equal(t, tt.to, f.To.Format("2006-01-02"))
		})
	}
}

func TestNewFilter_MalformedValuesAreIgnored(t *testing.T) {
	tests := []struct {
		name                         string
		dateFrom, dateTo, cat, month string
	}{
		{"bad date_from", "notadate", "", "", ""},
		{"bad date_to", "", "2026-13-45", "", ""},
		{"bad month", "", "", "", "February"},
		{"month with day", "", "", "", "2026-02-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.dateFrom, tt.dateTo, tt.cat, tt.month)
			assert.Nil(t, f.From, "malformed input must impose no lower bound")
			assert.Nil(t, f.To, "malformed input must impose no upper bound")
		})
	}
}

func TestNewFilter_DateBounds(t *testing.T) {
	f := NewFilter("2026-01-10", "2026-01-20", "", "")
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.True(t, f.From.Equal(date("2026-01-10")))
	assert.True(t, f.To.Equal(date("2026-01-20")))
}

func TestNewFilter_MonthAndDatesCombineConjunctively(t *testing.T) {
	// date_from inside the month tightens the lower bound; date_to outside
	// the month leaves the month's upper bound in place.
	f := NewFilter("2026-02-10", "2026-03-15", "", "2026-02")
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, "2026-02-10", f.From.Format("2006-01-02"))
	assert.Equal(t, "2026-02-28", f.To.Format("2006-01-02"))
}

func TestNewFilter_Category(t *testing.T) {
	assert.Equal(t, "food", NewFilter("", "", "food", "").Category)
	assert.Equal(t, "Food", NewFilter("", "", "Food", "").Category, "category is matched verbatim")
	assert.Empty(t, NewFilter("", "", "all", "").Category)
	assert.Empty(t, NewFilter("", "", "All", "").Category)
	assert.Empty(t, NewFilter("", "", "ALL", "").Category)
	assert.Empty(t, NewFilter("", "", "  all  ", "").Category)
}
