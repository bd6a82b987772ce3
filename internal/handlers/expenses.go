package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"budgetbook/internal/models"
	"budgetbook/internal/report"
	"budgetbook/internal/storage"
)

// CategoryRow is a rendered per-category total.
type CategoryRow struct {
	Category string
	Total    string
}

// ExpenseRow is a rendered expense listing line.
type ExpenseRow struct {
	ID          int64
	Date        string
	Title       string
	Category    string
	Amount      string
	Description string
}

// IndexViewModel is the data passed to the listing template. Amounts are
// preformatted so the template never does money math.
type IndexViewModel struct {
	DateFrom string
	DateTo   string
	Month    string
	Category string
	Query    string
	Warning  string

	TotalSpent      string
	TodayTotal      string
	MonthTotal      string
	HasBudget       bool
	Budget          string
	RemainingBudget string
	BudgetWarning   bool

	Categories []CategoryRow
	Expenses   []ExpenseRow
}

// FormViewModel is the data passed to the add/edit form template.
type FormViewModel struct {
	IsEdit      bool
	Action      string
	Error       string
	Date        string
	Title       string
	Category    string
	Amount      string
	Description string
}

// SettingsViewModel is the data passed to the settings template.
type SettingsViewModel struct {
	Budget string
	Saved  bool
}

// Index renders the filtered listing with aggregate totals.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	q := r.URL.Query()

	filter := report.NewFilter(q.Get("date_from"), q.Get("date_to"), q.Get("category"), q.Get("month"))

	filtered, err := h.db.ListExpenses(user.ID, filter)
	if err != nil {
		h.serverError(w, "list expenses", err)
		return
	}
	all, err := h.db.ListExpenses(user.ID, report.Filter{})
	if err != nil {
		h.serverError(w, "list expenses", err)
		return
	}
	budget, _, err := h.db.GetSetting(user.ID, models.BudgetKey)
	if err != nil {
		h.serverError(w, "get budget setting", err)
		return
	}

	sum := report.Summarize(filtered, all, budget, time.Now())

	vm := IndexViewModel{
		DateFrom:      q.Get("date_from"),
		DateTo:        q.Get("date_to"),
		Month:         q.Get("month"),
		Category:      q.Get("category"),
		Query:         filterQuery(q),
		Warning:       warningMessage(q.Get("warning")),
		TotalSpent:    sum.TotalSpent.StringFixed(2),
		TodayTotal:    sum.TodayTotal.StringFixed(2),
		MonthTotal:    sum.MonthTotal.StringFixed(2),
		HasBudget:     sum.HasBudget,
		BudgetWarning: sum.BudgetWarning,
	}
	if sum.HasBudget {
		vm.Budget = sum.Budget.StringFixed(2)
		vm.RemainingBudget = sum.RemainingBudget.StringFixed(2)
	}
	for _, c := range sum.Categories {
		vm.Categories = append(vm.Categories, CategoryRow{Category: c.Category, Total: c.Total.StringFixed(2)})
	}
	for _, e := range filtered {
		vm.Expenses = append(vm.Expenses, expenseRow(e))
	}

	h.render(w, "index.html", vm)
}

// AddExpenseForm renders the form to create a new expense.
func (h *Handlers) AddExpenseForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, "expense_form.html", FormViewModel{
		Action: "/add",
		Date:   time.Now().UTC().Format(models.DateFormat),
	})
}

// AddExpense handles the creation of a new expense. Invalid input redisplays
// the form and writes nothing.
func (h *Handlers) AddExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	form := readExpenseForm(r)
	e, err := form.parse()
	if err != nil {
		h.render(w, "expense_form.html", form.viewModel("/add", false, err))
		return
	}
	e.UserID = user.ID

	if err := h.db.CreateExpense(e); err != nil {
		h.serverError(w, "create expense", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// EditExpenseForm renders the form to edit an existing expense.
func (h *Handlers) EditExpenseForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	e, err := h.db.GetExpense(id)
	if err != nil {
		h.expenseError(w, r, "load expense", err)
		return
	}
	if e.UserID != user.ID {
		h.expenseError(w, r, "load expense", storage.ErrUnauthorized)
		return
	}

	h.render(w, "expense_form.html", FormViewModel{
		IsEdit:      true,
		Action:      "/edit/" + strconv.FormatInt(e.ID, 10),
		Date:        e.Date.Format(models.DateFormat),
		Title:       e.Title,
		Category:    e.Category,
		Amount:      e.Amount.StringFixed(2),
		Description: e.Description,
	})
}

// UpdateExpense handles the update of an existing expense, preserving its ID.
func (h *Handlers) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	form := readExpenseForm(r)
	e, perr := form.parse()
	if perr != nil {
		h.render(w, "expense_form.html", form.viewModel("/edit/"+strconv.FormatInt(id, 10), true, perr))
		return
	}
	e.ID = id

	if err := h.db.UpdateExpense(user.ID, e); err != nil {
		h.expenseError(w, r, "update expense", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// DeleteExpense permanently removes an expense.
func (h *Handlers) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.db.DeleteExpense(user.ID, id); err != nil {
		h.expenseError(w, r, "delete expense", err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// ExportCSV streams the filtered listing as a CSV attachment.
func (h *Handlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)
	q := r.URL.Query()

	filter := report.NewFilter(q.Get("date_from"), q.Get("date_to"), q.Get("category"), q.Get("month"))
	expenses, err := h.db.ListExpenses(user.ID, filter)
	if err != nil {
		h.serverError(w, "list expenses for export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="expenses.csv"`)
	if err := report.WriteCSV(w, expenses); err != nil {
		h.logger.Error("write csv export", "error", err)
	}
}

// SettingsForm renders the settings page.
func (h *Handlers) SettingsForm(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	budget, _, err := h.db.GetSetting(user.ID, models.BudgetKey)
	if err != nil {
		h.serverError(w, "get budget setting", err)
		return
	}
	h.render(w, "settings.html", SettingsViewModel{
		Budget: budget,
		Saved:  r.URL.Query().Get("saved") == "1",
	})
}

// SaveSettings upserts the monthly budget. The value is stored verbatim; a
// non-numeric budget simply behaves as "no budget" on the listing page.
func (h *Handlers) SaveSettings(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}

	value := strings.TrimSpace(r.FormValue(models.BudgetKey))
	if err := h.db.SetSetting(user.ID, models.BudgetKey, value); err != nil {
		h.serverError(w, "save budget setting", err)
		return
	}
	http.Redirect(w, r, "/settings?saved=1", http.StatusFound)
}

// expenseForm carries raw form input so validation failures can redisplay
// exactly what the user typed.
type expenseForm struct {
	Date        string
	Title       string
	Category    string
	Amount      string
	Description string
}

func readExpenseForm(r *http.Request) expenseForm {
	_ = r.ParseForm()
	return expenseForm{
		Date:        strings.TrimSpace(r.FormValue("date")),
		Title:       strings.TrimSpace(r.FormValue("title")),
		Category:    strings.TrimSpace(r.FormValue("category")),
		Amount:      strings.TrimSpace(r.FormValue("amount")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
}

// parse validates the form and builds an Expense. Negative and zero amounts
// are allowed; only unparsable input is rejected.
func (f expenseForm) parse() (*models.Expense, error) {
	if f.Title == "" {
		return nil, errors.New("title is required")
	}
	if f.Category == "" {
		return nil, errors.New("category is required")
	}
	date, err := time.Parse(models.DateFormat, f.Date)
	if err != nil {
		return nil, errors.New("date must be in YYYY-MM-DD format")
	}
	amount, err := decimal.NewFromString(f.Amount)
	if err != nil {
		return nil, errors.New("amount must be a number")
	}
	return &models.Expense{
		Date:        date,
		Title:       f.Title,
		Category:    f.Category,
		Amount:      amount,
		Description: f.Description,
	}, nil
}

func (f expenseForm) viewModel(action string, isEdit bool, err error) FormViewModel {
	return FormViewModel{
		IsEdit:      isEdit,
		Action:      action,
		Error:       err.Error(),
		Date:        f.Date,
		Title:       f.Title,
		Category:    f.Category,
		Amount:      f.Amount,
		Description: f.Description,
	}
}

func expenseRow(e models.Expense) ExpenseRow {
	return ExpenseRow{
		ID:          e.ID,
		Date:        e.Date.Format(models.DateFormat),
		Title:       e.Title,
		Category:    e.Category,
		Amount:      e.Amount.StringFixed(2),
		Description: e.Description,
	}
}

// filterQuery re-encodes just the filter parameters, for the export link.
func filterQuery(q url.Values) string {
	out := url.Values{}
	for _, key := range []string{"date_from", "date_to", "category", "month"} {
		if v := q.Get(key); v != "" {
			out.Set(key, v)
		}
	}
	return out.Encode()
}

func warningMessage(code string) string {
	if code == "forbidden" {
		return "You can only view or modify your own expenses."
	}
	return ""
}

// expenseError maps storage failures from single-expense operations onto the
// HTTP surface: unknown id is a 404, someone else's expense redirects back to
// the listing with a warning, anything else is a 500.
func (h *Handlers) expenseError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, storage.ErrUnauthorized):
		http.Redirect(w, r, "/?warning=forbidden", http.StatusFound)
	default:
		h.serverError(w, op, err)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
