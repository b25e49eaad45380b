// Package wallet defines the ports between the allowance services and their
// storage backends.
package wallet

import (
	"context"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

// Ports for outbound adapters.
type (
	ChildStore interface {
		// CreateChild assigns a fresh id and stores the child with a zero
		// balance.
		CreateChild(ctx context.Context, userID int64, name string) (core.Child, error)

		// GetChildByID reports absence through ok, not an error.
		GetChildByID(ctx context.Context, id int64) (c core.Child, ok bool, err error)

		// GetChildrenForUser returns the user's children in insertion order.
		GetChildrenForUser(ctx context.Context, userID int64) ([]core.Child, error)
	}

	LedgerStore interface {
		// PostTransaction appends a ledger entry and applies its signed
		// amount to the child's stored balance as one indivisible unit.
		// Returns core.ChildNotFoundError when the child does not exist.
		PostTransaction(ctx context.Context, childID int64, t core.TransactionType, amount core.Money, description string) (core.Transaction, error)

		// GetTransactionsForChild returns the child's transactions ordered
		// most-recent-created first; empty slice when none exist.
		GetTransactionsForChild(ctx context.Context, childID int64) ([]core.Transaction, error)
	}

	AllowanceStore interface {
		// UpsertAllowance creates or replaces the single allowance record
		// keyed by child id.
		UpsertAllowance(ctx context.Context, a core.WeeklyAllowance) (core.WeeklyAllowance, error)

		// GetAllowance reports absence through ok, not an error.
		GetAllowance(ctx context.Context, childID int64) (a core.WeeklyAllowance, ok bool, err error)

		// ListActiveAllowances returns every active allowance configuration.
		ListActiveAllowances(ctx context.Context) ([]core.WeeklyAllowance, error)

		// MarkAllowancePaid records the date an allowance payment was
		// processed for the child.
		MarkAllowancePaid(ctx context.Context, childID int64, paidAt time.Time) error
	}

	// Store aggregates all wallet ports; the SQLite and memory backends
	// implement the full surface.
	Store interface {
		ChildStore
		LedgerStore
		AllowanceStore
	}
)
