package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements wallet.Store on a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ wallet.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY on the post path.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateChild implements wallet.ChildStore.
func (r *SQLiteRepository) CreateChild(ctx context.Context, userID int64, name string) (core.Child, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO children (user_id, name, balance_cents) VALUES (?, ?, 0)`,
		userID, name)
	if err != nil {
		return core.Child{}, fmt.Errorf("insert child: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Child{}, fmt.Errorf("child id: %w", err)
	}

	slog.InfoContext(ctx, "Child saved to SQLite",
		"id", id,
		"user_id", userID,
		"name", name)

	return core.Child{ID: id, UserID: userID, Name: name}, nil
}

// GetChildByID implements wallet.ChildStore.
func (r *SQLiteRepository) GetChildByID(ctx context.Context, id int64) (core.Child, bool, error) {
	var c core.Child
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, balance_cents FROM children WHERE id = ?`, id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Balance.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Child{}, false, nil
	}
	if err != nil {
		return core.Child{}, false, fmt.Errorf("get child by id: %w", err)
	}
	return c, true, nil
}

// GetChildrenForUser implements wallet.ChildStore.
func (r *SQLiteRepository) GetChildrenForUser(ctx context.Context, userID int64) ([]core.Child, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, balance_cents FROM children WHERE user_id = ? ORDER BY id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("get children for user: %w", err)
	}
	defer rows.Close()

	var out []core.Child
	for rows.Next() {
		var c core.Child
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Balance.Cents); err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return out, nil
}

// PostTransaction implements wallet.LedgerStore. The ledger append and the
// balance update commit together or not at all.
func (r *SQLiteRepository) PostTransaction(ctx context.Context, childID int64, t core.TransactionType, amount core.Money, description string) (core.Transaction, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var exists int
	err = dbTx.QueryRowContext(ctx, `SELECT 1 FROM children WHERE id = ?`, childID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ChildNotFoundError{ChildID: childID}
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve child: %w", err)
	}

	tx := core.Transaction{
		ChildID:     childID,
		Amount:      amount,
		Type:        t,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}

	res, err := dbTx.ExecContext(ctx,
		`INSERT INTO transactions (child_id, amount_cents, type, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		childID, amount.Cents, string(t), description, tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if tx.ID, err = res.LastInsertId(); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}

	// The balance_cents >= 0 CHECK rejects any overdraft that slips past the
	// service-level sufficiency check.
	if _, err := dbTx.ExecContext(ctx,
		`UPDATE children SET balance_cents = balance_cents + ? WHERE id = ?`,
		tx.SignedCents(), childID); err != nil {
		return core.Transaction{}, fmt.Errorf("update balance: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"child_id", childID,
		"type", string(t),
		"amount_cents", amount.Cents)

	return tx, nil
}

// GetTransactionsForChild implements wallet.LedgerStore.
func (r *SQLiteRepository) GetTransactionsForChild(ctx context.Context, childID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, child_id, amount_cents, type, description, created_at
		 FROM transactions WHERE child_id = ?
		 ORDER BY created_at DESC, id DESC`,
		childID)
	if err != nil {
		return nil, fmt.Errorf("get transactions for child: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var tx core.Transaction
		var typ, createdAt string
		if err := rows.Scan(&tx.ID, &tx.ChildID, &tx.Amount.Cents, &typ, &tx.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type = core.TransactionType(typ)
		if tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// UpsertAllowance implements wallet.AllowanceStore. The single-slot record is
// keyed by child id; setting a new configuration replaces the prior one.
func (r *SQLiteRepository) UpsertAllowance(ctx context.Context, a core.WeeklyAllowance) (core.WeeklyAllowance, error) {
	var exists int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM children WHERE id = ?`, a.ChildID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WeeklyAllowance{}, core.ChildNotFoundError{ChildID: a.ChildID}
	}
	if err != nil {
		return core.WeeklyAllowance{}, fmt.Errorf("resolve child: %w", err)
	}

	var lastPaid any
	if !a.LastPaidAt.IsZero() {
		lastPaid = a.LastPaidAt.UTC().Format(time.RFC3339Nano)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO allowances (child_id, amount_cents, day_of_week, active, last_paid_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (child_id) DO UPDATE SET
		   amount_cents = excluded.amount_cents,
		   day_of_week  = excluded.day_of_week,
		   active       = excluded.active,
		   last_paid_at = excluded.last_paid_at`,
		a.ChildID, a.Amount.Cents, a.DayOfWeek, a.Active, lastPaid)
	if err != nil {
		return core.WeeklyAllowance{}, fmt.Errorf("upsert allowance: %w", err)
	}

	slog.InfoContext(ctx, "Allowance saved to SQLite",
		"child_id", a.ChildID,
		"amount_cents", a.Amount.Cents,
		"day_of_week", a.DayOfWeek)

	return a, nil
}

// GetAllowance implements wallet.AllowanceStore.
func (r *SQLiteRepository) GetAllowance(ctx context.Context, childID int64) (core.WeeklyAllowance, bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT child_id, amount_cents, day_of_week, active, last_paid_at
		 FROM allowances WHERE child_id = ?`, childID)

	a, err := scanAllowance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WeeklyAllowance{}, false, nil
	}
	if err != nil {
		return core.WeeklyAllowance{}, false, fmt.Errorf("get allowance: %w", err)
	}
	return a, true, nil
}

// ListActiveAllowances implements wallet.AllowanceStore.
func (r *SQLiteRepository) ListActiveAllowances(ctx context.Context) ([]core.WeeklyAllowance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT child_id, amount_cents, day_of_week, active, last_paid_at
		 FROM allowances WHERE active = 1 ORDER BY child_id`)
	if err != nil {
		return nil, fmt.Errorf("list active allowances: %w", err)
	}
	defer rows.Close()

	var out []core.WeeklyAllowance
	for rows.Next() {
		a, err := scanAllowance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan allowance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate allowances: %w", err)
	}
	return out, nil
}

// MarkAllowancePaid implements wallet.AllowanceStore.
func (r *SQLiteRepository) MarkAllowancePaid(ctx context.Context, childID int64, paidAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE allowances SET last_paid_at = ? WHERE child_id = ?`,
		paidAt.UTC().Format(time.RFC3339Nano), childID)
	if err != nil {
		return fmt.Errorf("mark allowance paid: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no allowance configured for child %d", childID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAllowance(row rowScanner) (core.WeeklyAllowance, error) {
	var a core.WeeklyAllowance
	var lastPaid sql.NullString
	if err := row.Scan(&a.ChildID, &a.Amount.Cents, &a.DayOfWeek, &a.Active, &lastPaid); err != nil {
		return core.WeeklyAllowance{}, err
	}
	if lastPaid.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastPaid.String)
		if err != nil {
			return core.WeeklyAllowance{}, fmt.Errorf("parse last_paid_at %q: %w", lastPaid.String, err)
		}
		a.LastPaidAt = t
	}
	return a, nil
}
