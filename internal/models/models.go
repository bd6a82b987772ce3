package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a user account.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}

// Expense represents a single dated spending record owned by one user.
// Date carries calendar-day precision only; the time component is always
// midnight UTC.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	Date        time.Time       `json:"date"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Setting is a per-user named configuration value. The only key the app
// writes today is BudgetKey, but the table is generic.
type Setting struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"user_id"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

// BudgetKey is the setting key holding the user's monthly budget.
const BudgetKey = "monthly_budget"

// Session represents a user session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DateFormat is the wire and storage format for expense dates.
const DateFormat = "2006-01-02"
