package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"budgetbook/internal/models"
	"budgetbook/internal/report"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// A single connection keeps writers serialized and makes ":memory:"
	// databases behave: every pooled connection would otherwise get its own
	// empty in-memory database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		return nil, err
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS user (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expense (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES user(id),
			date TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS setting (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES user(id),
			key TEXT NOT NULL,
			value TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL REFERENCES user(id),
			expires_at INTEGER NOT NULL,
			last_activity INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expense_user_date ON expense(user_id, date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateUser creates a new user with the given username and password hash.
// It returns ErrDuplicateUsername if the username is already taken
// (case-sensitive exact match, backed by the unique index).
func (db *DB) CreateUser(username, passwordHash string) (*models.User, error) {
	if _, err := db.GetUserByUsername(username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	result, err := db.conn.Exec(
		"INSERT INTO user (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, PasswordHash: passwordHash}, nil
}

// GetUserByUsername retrieves a user by exact username.
func (db *DB) GetUserByUsername(username string) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash FROM user WHERE username = ?",
		username,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(id int64) (*models.User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash FROM user WHERE id = ?",
		id,
	)

	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateExpense inserts a new expense and fills in its assigned ID.
func (db *DB) CreateExpense(e *models.Expense) error {
	result, err := db.conn.Exec(
		"INSERT INTO expense (user_id, date, title, category, amount, description) VALUES (?, ?, ?, ?, ?, ?)",
		e.UserID, e.Date.Format(models.DateFormat), e.Title, e.Category, e.Amount, e.Description,
	)
	if err != nil {
		return err
	}
	e.ID, err = result.LastInsertId()
	return err
}

// GetExpense retrieves a single expense by ID, regardless of owner.
// The mutating operations below do their own ownership checks; read-side
// callers compare UserID against the session principal themselves.
func (db *DB) GetExpense(id int64) (*models.Expense, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_id, date, title, category, amount, description FROM expense WHERE id = ?",
		id,
	)
	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// UpdateExpense replaces all fields of an existing expense, preserving its
// ID. It returns ErrNotFound if the expense does not exist and
// ErrUnauthorized if it is owned by a user other than userID.
func (db *DB) UpdateExpense(userID int64, e *models.Expense) error {
	existing, err := db.GetExpense(e.ID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrUnauthorized
	}
	e.UserID = existing.UserID

	_, err = db.conn.Exec(
		"UPDATE expense SET date = ?, title = ?, category = ?, amount = ?, description = ? WHERE id = ?",
		e.Date.Format(models.DateFormat), e.Title, e.Category, e.Amount, e.Description, e.ID,
	)
	return err
}

// DeleteExpense permanently removes an expense. Same ownership semantics as
// UpdateExpense. There is no soft-delete.
func (db *DB) DeleteExpense(userID, id int64) error {
	existing, err := db.GetExpense(id)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return ErrUnauthorized
	}

	_, err = db.conn.Exec("DELETE FROM expense WHERE id = ?", id)
	return err
}

// ListExpenses retrieves the user's expenses matching the filter, ordered by
// date descending with ties broken by insertion order.
func (db *DB) ListExpenses(userID int64, f report.Filter) ([]models.Expense, error) {
	query := "SELECT id, user_id, date, title, category, amount, description FROM expense WHERE user_id = ?"
	args := []any{userID}

	if f.From != nil {
		query += " AND date >= ?"
		args = append(args, f.From.Format(models.DateFormat))
	}
	if f.To != nil {
		query += " AND date <= ?"
		args = append(args, f.To.Format(models.DateFormat))
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	query += " ORDER BY date DESC, id ASC"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (*models.Expense, error) {
	var e models.Expense
	var date string
	if err := row.Scan(&e.ID, &e.UserID, &date, &e.Title, &e.Category, &e.Amount, &e.Description); err != nil {
		return nil, err
	}
	d, err := time.Parse(models.DateFormat, date)
	if err != nil {
		return nil, fmt.Errorf("expense %d has invalid date %q: %w", e.ID, date, err)
	}
	e.Date = d
	return &e, nil
}

// GetSetting returns the stored value for (userID, key). The second return
// is false when the key has never been set.
func (db *DB) GetSetting(userID int64, key string) (string, bool, error) {
	row := db.conn.QueryRow(
		"SELECT value FROM setting WHERE user_id = ? AND key = ?",
		userID, key,
	)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts the value for (userID, key). Concurrent writers for the
// same key race with last-write-wins; acceptable for a per-user preference.
func (db *DB) SetSetting(userID int64, key, value string) error {
	result, err := db.conn.Exec(
		"UPDATE setting SET value = ? WHERE user_id = ? AND key = ?",
		value, userID, key,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = db.conn.Exec(
		"INSERT INTO setting (user_id, key, value) VALUES (?, ?, ?)",
		userID, key, value,
	)
	return err
}

// CreateSession creates a new session for a user.
func (db *DB) CreateSession(token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO sessions (token, user_id, expires_at, last_activity) VALUES (?, ?, ?, ?)",
		token, userID, expiresAt.Unix(), time.Now().Unix(),
	)
	return err
}

// SessionInfo holds session validation data.
type SessionInfo struct {
	User         *models.User
	LastActivity time.Time
	ExpiresAt    time.Time
}

// ValidateSession checks if a session token is valid and returns the
// associated user.
func (db *DB) ValidateSession(token string) (*models.User, error) {
	info, err := db.ValidateSessionWithInfo(token)
	if err != nil {
		return nil, err
	}
	return info.User, nil
}

// ValidateSessionWithInfo checks if a session token is valid and unexpired
// and returns session details. Unknown or expired tokens yield ErrNotFound.
func (db *DB) ValidateSessionWithInfo(token string) (*SessionInfo, error) {
	row := db.conn.QueryRow(`
		SELECT u.id, u.username, u.password_hash, s.last_activity, s.expires_at
		FROM sessions s
		JOIN user u ON s.user_id = u.id
		WHERE s.token = ?
	`, token)

	var u models.User
	var lastActivity, expiresAt int64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &lastActivity, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if time.Now().Unix() >= expiresAt {
		return nil, ErrNotFound
	}
	return &SessionInfo{
		User:         &u,
		LastActivity: time.Unix(lastActivity, 0),
		ExpiresAt:    time.Unix(expiresAt, 0),
	}, nil
}

// RenewSession updates the last_activity and expires_at for a session.
func (db *DB) RenewSession(token string, newExpiresAt time.Time) error {
	_, err := db.conn.Exec(
		"UPDATE sessions SET last_activity = ?, expires_at = ? WHERE token = ?",
		time.Now().Unix(), newExpiresAt.Unix(), token,
	)
	return err
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(token string) error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions() error {
	_, err := db.conn.Exec("DELETE FROM sessions WHERE expires_at <= ?", time.Now().Unix())
	return err
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM user").Scan(&count)
	return count, err
}
