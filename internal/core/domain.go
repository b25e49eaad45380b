package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Deposit   TransactionType = "deposit"
	Expense   TransactionType = "expense"
	Allowance TransactionType = "allowance"
)

type (
	// TransactionType is the closed set of ledger entry kinds.
	TransactionType string

	// Child is a virtual wallet owned by a parent user.
	Child struct {
		ID      int64
		UserID  int64
		Name    string
		Balance Money
	}

	// Transaction is an immutable ledger entry. Once appended it is never
	// updated or deleted.
	Transaction struct {
		ID          int64
		ChildID     int64
		Amount      Money
		Type        TransactionType
		Description string
		CreatedAt   time.Time
	}

	// WeeklyAllowance is the single recurring-credit configuration for a
	// child. Setting a new one replaces the previous one.
	WeeklyAllowance struct {
		ChildID    int64
		Amount     Money
		DayOfWeek  int // 1=Monday .. 7=Sunday (ISO-8601)
		Active     bool
		LastPaidAt time.Time // zero when never paid
	}
)

// Error messages are part of the API contract; callers and the HTTP layer
// surface them verbatim.
var (
	ErrEmptyName      = errors.New("Child name cannot be empty")
	ErrAmountZero     = errors.New("Amount must be greater than zero")
	ErrAmountNegative = errors.New("Amount cannot be negative")
)

// ChildNotFoundError is returned by mutating operations that require an
// existing child. Pure lookups report absence without an error instead.
type ChildNotFoundError struct {
	ChildID int64
}

func (e ChildNotFoundError) Error() string {
	return fmt.Sprintf("Child with ID %d not found", e.ChildID)
}

// InvalidDayOfWeekError carries the offending value outside [1,7].
type InvalidDayOfWeekError struct {
	Day int
}

func (e InvalidDayOfWeekError) Error() string {
	return fmt.Sprintf("Invalid day of week: %d", e.Day)
}

// InsufficientBalanceError is returned when an expense exceeds the child's
// current balance.
type InsufficientBalanceError struct {
	Balance Money
	Amount  Money
}

func (e InsufficientBalanceError) Error() string {
	return fmt.Sprintf("Insufficient balance: have %s, need %s", e.Balance, e.Amount)
}

// ValidateAmount checks a mutation amount. Zero and negative amounts fail
// with distinct errors.
func ValidateAmount(m Money) error {
	if m.Cents == 0 {
		return ErrAmountZero
	}
	if m.Cents < 0 {
		return ErrAmountNegative
	}
	return nil
}

// ValidateDayOfWeek checks the ISO day-of-week range, 1=Monday through
// 7=Sunday inclusive.
func ValidateDayOfWeek(day int) error {
	if day < 1 || day > 7 {
		return InvalidDayOfWeekError{Day: day}
	}
	return nil
}

func (c Child) Validate() error {
	if c.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// Valid reports whether the type belongs to the closed set.
func (t TransactionType) Valid() bool {
	switch t {
	case Deposit, Expense, Allowance:
		return true
	}
	return false
}

// SignedCents returns the amount signed by type: deposits and allowances
// credit the balance, expenses debit it.
func (tx Transaction) SignedCents() int64 {
	if tx.Type == Expense {
		return -tx.Amount.Cents
	}
	return tx.Amount.Cents
}

// ISOWeekday returns the ISO-8601 day of week, 1=Monday .. 7=Sunday.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// SameDay reports whether two instants fall on the same calendar date (UTC).
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// DueOn reports whether the allowance should pay out on the given day: it is
// active, the ISO weekday matches, and it has not already been paid that day.
func (a WeeklyAllowance) DueOn(day time.Time) bool {
	if !a.Active || a.DayOfWeek != ISOWeekday(day) {
		return false
	}
	if !a.LastPaidAt.IsZero() && SameDay(a.LastPaidAt, day) {
		return false
	}
	return true
}
