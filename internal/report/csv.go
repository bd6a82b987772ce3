package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"budgetbook/internal/models"
)

// CSVHeader is the fixed column header of the export format.
var CSVHeader = []string{"id", "date", "title", "category", "amount", "description"}

// WriteCSV serializes expenses in listing order. Amounts render with exactly
// two decimal digits; an absent description renders as an empty field.
func WriteCSV(w io.Writer, expenses []models.Expense) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range expenses {
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.Date.Format(models.DateFormat),
			e.Title,
			e.Category,
			e.Amount.StringFixed(2),
			e.Description,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
