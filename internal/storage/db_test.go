package storage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"budgetbook/internal/auth"
	"budgetbook/internal/models"
	"budgetbook/internal/report"
)

// DBTestSuite provides a test suite for database operations
type DBTestSuite struct {
	suite.Suite
	db    *DB
	alice *models.User
	bob   *models.User
}

// SetupTest runs before each test
func (suite *DBTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	suite.alice, err = db.CreateUser("alice", "hash-a")
	require.NoError(suite.T(), err)
	suite.bob, err = db.CreateUser("bob", "hash-b")
	require.NoError(suite.T(), err)
}

// TearDownTest runs after each test
func (suite *DBTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *DBTestSuite) addExpense(user *models.User, day, title, category, amount string) *models.Expense {
	date, err := time.Parse(models.DateFormat, day)
	require.NoError(suite.T(), err)
	e := &models.Expense{
		UserID:   user.ID,
		Date:     date,
		Title:    title,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
	}
	require.NoError(suite.T(), suite.db.CreateExpense(e))
	return e
}

func (suite *DBTestSuite) TestCreateUser_Duplicate() {
	_, err := suite.db.CreateUser("alice", "other-hash")
	assert.ErrorIs(suite.T(), err, ErrDuplicateUsername)

	// The first registration is unaffected
	u, err := suite.db.GetUserByUsername("alice")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "hash-a", u.PasswordHash)
}

func (suite *DBTestSuite) TestCreateUser_CaseSensitiveUsernames() {
	u, err := suite.db.CreateUser("Alice", "hash-A")
	require.NoError(suite.T(), err, "usernames match case-sensitively, so Alice is distinct from alice")
	assert.NotEqual(suite.T(), suite.alice.ID, u.ID)
}

func (suite *DBTestSuite) TestGetUserByUsername_Missing() {
	_, err := suite.db.GetUserByUsername("nobody")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestCreateAndGetExpense() {
	created := suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.50")
	require.NotZero(suite.T(), created.ID)

	got, err := suite.db.GetExpense(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.alice.ID, got.UserID)
	assert.Equal(suite.T(), "Lunch", got.Title)
	assert.Equal(suite.T(), "food", got.Category)
	assert.Equal(suite.T(), "2026-03-10", got.Date.Format(models.DateFormat))
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("10.50")))
	assert.Empty(suite.T(), got.Description)
}

func (suite *DBTestSuite) TestUpdateExpense_ReplacesFieldsPreservingID() {
	created := suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.50")

	updated := &models.Expense{
		ID:          created.ID,
		Date:        created.Date.AddDate(0, 0, 1),
		Title:       "Dinner",
		Category:    "restaurants",
		Amount:      decimal.RequireFromString("23.75"),
		Description: "birthday",
	}
	require.NoError(suite.T(), suite.db.UpdateExpense(suite.alice.ID, updated))

	got, err := suite.db.GetExpense(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, got.ID)
	assert.Equal(suite.T(), "Dinner", got.Title)
	assert.Equal(suite.T(), "restaurants", got.Category)
	assert.Equal(suite.T(), "2026-03-11", got.Date.Format(models.DateFormat))
	assert.True(suite.T(), got.Amount.Equal(decimal.RequireFromString("23.75")))
	assert.Equal(suite.T(), "birthday", got.Description)
}

func (suite *DBTestSuite) TestUpdateExpense_NotFound() {
	err := suite.db.UpdateExpense(suite.alice.ID, &models.Expense{
		ID: 9999, Date: time.Now(), Title: "x", Category: "y", Amount: decimal.Zero,
	})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *DBTestSuite) TestUpdateExpense_OtherUsersExpense() {
	created := suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.50")

	err := suite.db.UpdateExpense(suite.bob.ID, &models.Expense{
		ID: created.ID, Date: created.Date, Title: "hijack", Category: "x", Amount: decimal.Zero,
	})
	assert.ErrorIs(suite.T(), err, ErrUnauthorized)

	// Nothing was mutated
	got, err := suite.db.GetExpense(created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Lunch", got.Title)
}

func (suite *DBTestSuite) TestDeleteExpense() {
	created := suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.50")

	require.NoError(suite.T(), suite.db.DeleteExpense(suite.alice.ID, created.ID))

	_, err := suite.db.GetExpense(created.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	expenses, err := suite.db.ListExpenses(suite.alice.ID, report.Filter{})
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), expenses)
}

func (suite *DBTestSuite) TestDeleteExpense_Errors() {
	created := suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.50")

	assert.ErrorIs(suite.T(), suite.db.DeleteExpense(suite.alice.ID, 9999), ErrNotFound)
	assert.ErrorIs(suite.T(), suite.db.DeleteExpense(suite.bob.ID, created.ID), ErrUnauthorized)

	// Still present after the unauthorized attempt
	_, err := suite.db.GetExpense(created.ID)
	assert.NoError(suite.T(), err)
}

func (suite *DBTestSuite) TestListExpenses_ScopedToOwner() {
	suite.addExpense(suite.alice, "2026-03-10", "Lunch", "food", "10.00")
	suite.addExpense(suite.bob, "2026-03-10", "Lunch", "food", "99.00")

	expenses, err := suite.db.ListExpenses(suite.alice.ID, report.Filter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), suite.alice.ID, expenses[0].UserID)
	assert.True(suite.T(), expenses[0].Amount.Equal(decimal.RequireFromString("10.00")))
}

func (suite *DBTestSuite) TestListExpenses_OrderedByDateDescThenID() {
	first := suite.addExpense(suite.alice, "2026-03-10", "A", "food", "1.00")
	second := suite.addExpense(suite.alice, "2026-03-10", "B", "food", "2.00")
	newest := suite.addExpense(suite.alice, "2026-03-12", "C", "food", "3.00")

	expenses, err := suite.db.ListExpenses(suite.alice.ID, report.Filter{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 3)
	assert.Equal(suite.T(), newest.ID, expenses[0].ID)
	assert.Equal(suite.T(), first.ID, expenses[1].ID, "date ties break by insertion order")
	assert.Equal(suite.T(), second.ID, expenses[2].ID)
}

func (suite *DBTestSuite) TestListExpenses_Filtered() {
	suite.addExpense(suite.alice, "2026-02-28", "JustBefore", "food", "1.00")
	inRange := suite.addExpense(suite.alice, "2026-03-10", "Inside", "food", "2.00")
	suite.addExpense(suite.alice, "2026-03-10", "OtherCategory", "transport", "3.00")
	suite.addExpense(suite.alice, "2026-04-01", "JustAfter", "food", "4.00")

	expenses, err := suite.db.ListExpenses(suite.alice.ID, report.NewFilter("", "", "food", "2026-03"))
	require.NoError(suite.T(), err)
	require.Len(suite.T(), expenses, 1)
	assert.Equal(suite.T(), inRange.ID, expenses[0].ID)
}

func (suite *DBTestSuite) TestListExpenses_MalformedDateFromActsUnfiltered() {
	suite.addExpense(suite.alice, "2026-03-01", "A", "food", "1.00")
	suite.addExpense(suite.alice, "2026-03-02", "B", "food", "2.00")

	unfiltered, err := suite.db.ListExpenses(suite.alice.ID, report.Filter{})
	require.NoError(suite.T(), err)
	malformed, err := suite.db.ListExpenses(suite.alice.ID, report.NewFilter("notadate", "", "", ""))
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), unfiltered, malformed)
}

func (suite *DBTestSuite) TestSettings_Upsert() {
	_, ok, err := suite.db.GetSetting(suite.alice.ID, models.BudgetKey)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok, "unset key reports absence")

	require.NoError(suite.T(), suite.db.SetSetting(suite.alice.ID, models.BudgetKey, "100.00"))
	value, ok, err := suite.db.GetSetting(suite.alice.ID, models.BudgetKey)
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "100.00", value)

	// Second write updates in place rather than inserting another row
	require.NoError(suite.T(), suite.db.SetSetting(suite.alice.ID, models.BudgetKey, "250.00"))
	value, ok, err = suite.db.GetSetting(suite.alice.ID, models.BudgetKey)
	require.NoError(suite.T(), err)
	require.True(suite.T(), ok)
	assert.Equal(suite.T(), "250.00", value)

	var count int
	err = suite.db.conn.QueryRow(
		"SELECT COUNT(*) FROM setting WHERE user_id = ? AND key = ?",
		suite.alice.ID, models.BudgetKey,
	).Scan(&count)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *DBTestSuite) TestSettings_PerUser() {
	require.NoError(suite.T(), suite.db.SetSetting(suite.alice.ID, models.BudgetKey, "100"))

	_, ok, err := suite.db.GetSetting(suite.bob.ID, models.BudgetKey)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), ok, "settings belong to one user")
}

// SessionTestSuite provides a test suite for session operations
type SessionTestSuite struct {
	suite.Suite
	db   *DB
	user *models.User
}

// SetupTest runs before each test
func (suite *SessionTestSuite) SetupTest() {
	db, err := NewDB(":memory:")
	require.NoError(suite.T(), err, "failed to create test database")
	suite.db = db

	password, err := auth.HashPassword("testpass")
	require.NoError(suite.T(), err, "failed to hash password")

	user, err := suite.db.CreateUser("testuser", password)
	require.NoError(suite.T(), err, "failed to create test user")
	suite.user = user
}

// TearDownTest runs after each test
func (suite *SessionTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

func (suite *SessionTestSuite) TestCreateAndValidateSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	err = suite.db.CreateSession(token, suite.user.ID, time.Now().Add(30*24*time.Hour))
	require.NoError(suite.T(), err)

	sessionUser, err := suite.db.ValidateSession(token)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "testuser", sessionUser.Username)
}

func (suite *SessionTestSuite) TestValidateSession_ExpiredToken() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	err = suite.db.CreateSession(token, suite.user.ID, time.Now().Add(-time.Hour))
	require.NoError(suite.T(), err)

	_, err = suite.db.ValidateSession(token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestValidateSession_UnknownToken() {
	_, err := suite.db.ValidateSession("no-such-token")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestRenewSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	err = suite.db.CreateSession(token, suite.user.ID, time.Now().Add(30*24*time.Hour))
	require.NoError(suite.T(), err)

	original, err := suite.db.ValidateSessionWithInfo(token)
	require.NoError(suite.T(), err)

	newExpiry := time.Now().Add(60 * 24 * time.Hour)
	require.NoError(suite.T(), suite.db.RenewSession(token, newExpiry))

	renewed, err := suite.db.ValidateSessionWithInfo(token)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), renewed.ExpiresAt.After(original.ExpiresAt),
		"ExpiresAt should be extended after renewal")
}

func (suite *SessionTestSuite) TestDeleteSession() {
	token, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	err = suite.db.CreateSession(token, suite.user.ID, time.Now().Add(30*24*time.Hour))
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.DeleteSession(token))

	_, err = suite.db.ValidateSession(token)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *SessionTestSuite) TestCleanExpiredSessions() {
	live, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)
	stale, err := auth.GenerateSessionToken()
	require.NoError(suite.T(), err)

	require.NoError(suite.T(), suite.db.CreateSession(live, suite.user.ID, time.Now().Add(time.Hour)))
	require.NoError(suite.T(), suite.db.CreateSession(stale, suite.user.ID, time.Now().Add(-time.Hour)))

	require.NoError(suite.T(), suite.db.CleanExpiredSessions())

	_, err = suite.db.ValidateSession(live)
	assert.NoError(suite.T(), err)

	var count int
	err = suite.db.conn.QueryRow("SELECT COUNT(*) FROM sessions WHERE token = ?", stale).Scan(&count)
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), count, "expired session row should be gone")
}

// Test suite runners
func TestDBSuite(t *testing.T) {
	suite.Run(t, new(DBTestSuite))
}

func TestSessionSuite(t *testing.T) {
	suite.Run(t, new(SessionTestSuite))
}
