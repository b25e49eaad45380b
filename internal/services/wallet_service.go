package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"
)

// TransactionPublisher notifies downstream consumers of committed
// transactions. The AMQP client implements it.
type TransactionPublisher interface {
	PublishTransaction(ctx context.Context, tx core.Transaction) error
}

// WalletService validates and commits balance mutations. Every mutation
// appends a ledger entry and adjusts the child's stored balance as one
// atomic unit; a per-child mutex serializes concurrent callers so two
// deposits cannot interleave a read-modify-write on the same balance.
type WalletService struct {
	store  wallet.Store
	events TransactionPublisher

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewWalletService(store wallet.Store, events TransactionPublisher) *WalletService {
	return &WalletService{
		store:  store,
		events: events,
		locks:  make(map[int64]*sync.Mutex),
	}
}

func (s *WalletService) childLock(childID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locks[childID]; !exists {
		s.locks[childID] = &sync.Mutex{}
	}
	return s.locks[childID]
}

// Deposit credits the child's wallet. Validation order is part of the
// contract: amount first, then child existence.
func (s *WalletService) Deposit(ctx context.Context, childID int64, amount core.Money, description string) (core.Transaction, error) {
	return s.credit(ctx, childID, core.Deposit, amount, description)
}

// credit is the shared commit path for deposits and allowance payments.
func (s *WalletService) credit(ctx context.Context, childID int64, t core.TransactionType, amount core.Money, description string) (core.Transaction, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Transaction{}, err
	}

	lock := s.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	if _, ok, err := s.store.GetChildByID(ctx, childID); err != nil {
		return core.Transaction{}, fmt.Errorf("resolve child: %w", err)
	} else if !ok {
		return core.Transaction{}, core.ChildNotFoundError{ChildID: childID}
	}

	tx, err := s.store.PostTransaction(ctx, childID, t, amount, description)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("post %s: %w", t, err)
	}

	s.publish(ctx, tx)
	return tx, nil
}

// RecordExpense debits the child's wallet. Checks run in contract order:
// amount validity, child existence, balance sufficiency. An expense equal to
// the current balance succeeds and drives the balance to exactly zero.
func (s *WalletService) RecordExpense(ctx context.Context, childID int64, amount core.Money, description string) (core.Transaction, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.Transaction{}, err
	}

	lock := s.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	child, ok, err := s.store.GetChildByID(ctx, childID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("resolve child: %w", err)
	}
	if !ok {
		return core.Transaction{}, core.ChildNotFoundError{ChildID: childID}
	}

	if child.Balance.LessThan(amount) {
		return core.Transaction{}, core.InsufficientBalanceError{Balance: child.Balance, Amount: amount}
	}

	tx, err := s.store.PostTransaction(ctx, childID, core.Expense, amount, description)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("post expense: %w", err)
	}

	s.publish(ctx, tx)
	return tx, nil
}

// GetTransactionsForChild is a pure read returning the child's history
// most-recent-first; empty slice when there is none.
func (s *WalletService) GetTransactionsForChild(ctx context.Context, childID int64) ([]core.Transaction, error) {
	txs, err := s.store.GetTransactionsForChild(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("get transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Overview aggregates a child's ledger into per-type totals alongside the
// stored balance.
func (s *WalletService) Overview(ctx context.Context, childID int64) (core.WalletOverview, bool, error) {
	child, ok, err := s.store.GetChildByID(ctx, childID)
	if err != nil {
		return core.WalletOverview{}, false, fmt.Errorf("resolve child: %w", err)
	}
	if !ok {
		return core.WalletOverview{}, false, nil
	}

	txs, err := s.store.GetTransactionsForChild(ctx, childID)
	if err != nil {
		return core.WalletOverview{}, false, fmt.Errorf("get transactions: %w", err)
	}

	totals := map[core.TransactionType]int64{}
	for _, tx := range txs {
		totals[tx.Type] += tx.Amount.Cents
	}

	ov := core.WalletOverview{ChildID: childID, Balance: child.Balance}
	for _, t := range []core.TransactionType{core.Deposit, core.Allowance, core.Expense} {
		if cents, ok := totals[t]; ok {
			ov.ByType = append(ov.ByType, core.TypeAmount{Type: t, Amount: core.FromCents(cents)})
		}
	}
	return ov, true, nil
}

// publish sends the transaction event best effort; a broker failure never
// fails a committed mutation.
func (s *WalletService) publish(ctx context.Context, tx core.Transaction) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction message",
			"id", tx.ID,
			"child_id", tx.ChildID,
			"error", err)
	}
}
