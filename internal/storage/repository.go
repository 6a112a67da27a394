// Package storage is the record store: users, categories, transactions,
// budgets and saving goals in a local SQLite file.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"finbot/internal/core"
)

// defaultCategories is the fixed reference set seeded at startup.
var defaultCategories = []core.Category{
	{Name: "Ăn uống", Type: core.Expense},
	{Name: "Đi lại", Type: core.Expense},
	{Name: "Hóa đơn", Type: core.Expense},
	{Name: "Giải trí", Type: core.Expense},
	{Name: "Mua sắm", Type: core.Expense},
	{Name: "Lương", Type: core.Income},
	{Name: "Thưởng", Type: core.Income},
	{Name: "Thu nhập phụ", Type: core.Income},
}

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SeedCategories inserts the default category set. Duplicates (same
// name and type) are skipped, so seeding is idempotent.
func (r *Repository) SeedCategories(ctx context.Context) error {
	for _, cat := range defaultCategories {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (name, type) VALUES (?, ?)`,
			cat.Name, string(cat.Type))
		if err != nil {
			return fmt.Errorf("seed category %q: %w", cat.Name, err)
		}
	}

	slog.InfoContext(ctx, "Default categories seeded", "count", len(defaultCategories))
	return nil
}

// EnsureUser creates the user row on first contact. Existing rows are
// left untouched; users are never deleted.
func (r *Repository) EnsureUser(ctx context.Context, id int64, username string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (user_id, username, default_currency) VALUES (?, ?, ?)`,
		id, username, core.ReferenceCurrency)
	if err != nil {
		return fmt.Errorf("ensure user %d: %w", id, err)
	}
	return nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT user_id, COALESCE(username, ''), COALESCE(pin, ''), COALESCE(default_currency, '')
		 FROM users WHERE user_id = ?`, id)

	var u core.User
	if err := row.Scan(&u.ID, &u.Username, &u.PIN, &u.DefaultCurrency); err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

func (r *Repository) CategoriesByType(ctx context.Context, t core.TransactionType) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, type FROM categories WHERE type = ? ORDER BY id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("query categories by type %s: %w", t, err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return cats, nil
}

// CreateTransaction inserts one transaction row and returns its id.
// Rows are immutable once created; there is no update or delete path.
func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	var categoryID any
	if tx.CategoryID != 0 {
		categoryID = tx.CategoryID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (user_id, date, category_id, amount, currency, type, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Date.Format(time.RFC3339), categoryID,
		tx.Amount.String(), tx.Currency, string(tx.Type), tx.Note)
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"user_id", tx.UserID,
		"amount", tx.Amount.String(),
		"currency", tx.Currency,
		"type", string(tx.Type))

	return id, nil
}

// TransactionsByUser returns every transaction of the user, newest first.
// The category name is joined in when the row has one.
func (r *Repository) TransactionsByUser(ctx context.Context, userID int64) ([]TransactionRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.user_id, t.date, COALESCE(t.category_id, 0),
		        t.amount, t.currency, t.type, COALESCE(t.note, ''),
		        COALESCE(c.name, '')
		 FROM transactions t
		 LEFT JOIN categories c ON t.category_id = c.id
		 WHERE t.user_id = ?
		 ORDER BY t.date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []TransactionRow
	for rows.Next() {
		var tr TransactionRow
		var date, amount, typ string
		if err := rows.Scan(&tr.ID, &tr.UserID, &date, &tr.CategoryID,
			&amount, &tr.Currency, &typ, &tr.Note, &tr.CategoryName); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tr.Date, err = time.Parse(time.RFC3339, date)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", date, err)
		}
		tr.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse transaction amount %q: %w", amount, err)
		}
		tr.Type = core.TransactionType(typ)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// TransactionRow is a transaction joined with its category name, as the
// report generator consumes it.
type TransactionRow struct {
	ID           int64
	UserID       int64
	Date         time.Time
	CategoryID   int64
	CategoryName string
	Amount       decimal.Decimal
	Currency     string
	Type         core.TransactionType
	Note         string
}

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	var categoryID any
	if b.CategoryID != 0 {
		categoryID = b.CategoryID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category_id, amount, currency, period)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, categoryID, b.Amount.String(), b.Currency, b.Period)
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) BudgetsByUser(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, COALESCE(category_id, 0), amount, currency, period
		 FROM budgets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query budgets for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var amount string
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &amount, &b.Currency, &b.Period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", amount, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) CreateSavingGoal(ctx context.Context, g core.SavingGoal) (int64, error) {
	var deadline any
	if !g.Deadline.IsZero() {
		deadline = g.Deadline.Format(time.RFC3339)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO saving_goals (user_id, name, target_amount, current_amount, currency, deadline)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, g.TargetAmount.String(), g.CurrentAmount.String(), g.Currency, deadline)
	if err != nil {
		return 0, fmt.Errorf("create saving goal: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) SavingGoalsByUser(ctx context.Context, userID int64) ([]core.SavingGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, target_amount, current_amount, currency, COALESCE(deadline, '')
		 FROM saving_goals WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query saving goals for user %d: %w", userID, err)
	}
	defer rows.Close()

	var out []core.SavingGoal
	for rows.Next() {
		var g core.SavingGoal
		var target, current, deadline string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &g.Currency, &deadline); err != nil {
			return nil, fmt.Errorf("scan saving goal: %w", err)
		}
		g.TargetAmount, err = decimal.NewFromString(target)
		if err != nil {
			return nil, fmt.Errorf("parse goal target %q: %w", target, err)
		}
		g.CurrentAmount, err = decimal.NewFromString(current)
		if err != nil {
			return nil, fmt.Errorf("parse goal current %q: %w", current, err)
		}
		if deadline != "" {
			g.Deadline, err = time.Parse(time.RFC3339, deadline)
			if err != nil {
				return nil, fmt.Errorf("parse goal deadline %q: %w", deadline, err)
			}
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
