// Package memory provides an in-memory wallet store used as the default
// backend and by unit tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"
)

// Store keeps children, transactions and allowances in mutex-guarded maps.
// A single lock makes every operation atomic, matching the SQLite backend's
// transactional semantics.
type Store struct {
	mu           sync.Mutex
	children     map[int64]*core.Child
	childOrder   []int64
	transactions []core.Transaction
	allowances   map[int64]core.WeeklyAllowance
	nextChildID  int64
	nextTxID     int64
	now          func() time.Time
}

var _ wallet.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		children:   make(map[int64]*core.Child),
		allowances: make(map[int64]core.WeeklyAllowance),
		now:        time.Now,
	}
}

// SetClock overrides the timestamp source; tests use it for deterministic
// created-at values.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateChild(_ context.Context, userID int64, name string) (core.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextChildID++
	c := core.Child{
		ID:     s.nextChildID,
		UserID: userID,
		Name:   name,
	}
	s.children[c.ID] = &c
	s.childOrder = append(s.childOrder, c.ID)
	return c, nil
}

func (s *Store) GetChildByID(_ context.Context, id int64) (core.Child, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.children[id]
	if !ok {
		return core.Child{}, false, nil
	}
	return *c, true, nil
}

func (s *Store) GetChildrenForUser(_ context.Context, userID int64) ([]core.Child, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Child
	for _, id := range s.childOrder {
		if c := s.children[id]; c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Store) PostTransaction(_ context.Context, childID int64, t core.TransactionType, amount core.Money, description string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.children[childID]
	if !ok {
		return core.Transaction{}, core.ChildNotFoundError{ChildID: childID}
	}

	s.nextTxID++
	tx := core.Transaction{
		ID:          s.nextTxID,
		ChildID:     childID,
		Amount:      amount,
		Type:        t,
		Description: description,
		CreatedAt:   s.now(),
	}

	newBalance := c.Balance.Cents + tx.SignedCents()
	if newBalance < 0 {
		// Services validate sufficiency before posting; this mirrors the
		// SQLite CHECK constraint.
		s.nextTxID--
		return core.Transaction{}, fmt.Errorf("balance for child %d would go negative", childID)
	}

	s.transactions = append(s.transactions, tx)
	c.Balance = core.Money{Cents: newBalance}
	return tx, nil
}

func (s *Store) GetTransactionsForChild(_ context.Context, childID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []core.Transaction{}
	// Append order is creation order; walk backwards for most-recent-first.
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].ChildID == childID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *Store) UpsertAllowance(_ context.Context, a core.WeeklyAllowance) (core.WeeklyAllowance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.children[a.ChildID]; !ok {
		return core.WeeklyAllowance{}, core.ChildNotFoundError{ChildID: a.ChildID}
	}
	s.allowances[a.ChildID] = a
	return a, nil
}

func (s *Store) GetAllowance(_ context.Context, childID int64) (core.WeeklyAllowance, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allowances[childID]
	return a, ok, nil
}

func (s *Store) ListActiveAllowances(_ context.Context) ([]core.WeeklyAllowance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.WeeklyAllowance
	// Iterate children in insertion order so the result is stable.
	for _, id := range s.childOrder {
		if a, ok := s.allowances[id]; ok && a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) MarkAllowancePaid(_ context.Context, childID int64, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allowances[childID]
	if !ok {
		return fmt.Errorf("no allowance configured for child %d", childID)
	}
	a.LastPaidAt = paidAt
	s.allowances[childID] = a
	return nil
}
