package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
)

func TestMemoryStoreChildren(t *testing.T) {
	s := New()
	ctx := context.Background()

	tom, err := s.CreateChild(ctx, 1, "Tom")
	if err != nil || tom.ID == 0 {
		t.Fatalf("unexpected create: child=%+v err=%v", tom, err)
	}
	if !tom.Balance.IsZero() {
		t.Fatalf("new child balance = %s, want 0.00", tom.Balance)
	}

	anna, _ := s.CreateChild(ctx, 1, "Anna")
	if _, err := s.CreateChild(ctx, 2, "Ben"); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, ok, err := s.GetChildByID(ctx, tom.ID)
	if err != nil || !ok || got.Name != "Tom" {
		t.Fatalf("unexpected lookup: child=%+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, _ := s.GetChildByID(ctx, 999); ok {
		t.Fatalf("expected absence for unknown id")
	}

	kids, err := s.GetChildrenForUser(ctx, 1)
	if err != nil || len(kids) != 2 {
		t.Fatalf("unexpected children: %v err=%v", kids, err)
	}
	if kids[0].ID != tom.ID || kids[1].ID != anna.ID {
		t.Fatalf("expected insertion order, got %v", kids)
	}
}

func TestMemoryStorePostTransaction(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.CreateChild(ctx, 1, "Tom")

	tx, err := s.PostTransaction(ctx, c.ID, core.Deposit, core.FromCents(10000), "birthday")
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if tx.ID == 0 || tx.CreatedAt.IsZero() {
		t.Fatalf("expected assigned id and timestamp, got %+v", tx)
	}

	got, _, _ := s.GetChildByID(ctx, c.ID)
	if got.Balance.Cents != 10000 {
		t.Fatalf("balance = %d, want 10000", got.Balance.Cents)
	}

	if _, err := s.PostTransaction(ctx, 999, core.Deposit, core.FromCents(100), ""); err == nil {
		t.Fatalf("expected error for unknown child")
	} else {
		var nf core.ChildNotFoundError
		if !errors.As(err, &nf) || nf.ChildID != 999 {
			t.Fatalf("expected ChildNotFoundError{999}, got %v", err)
		}
	}

	// Overdraft guard
	if _, err := s.PostTransaction(ctx, c.ID, core.Expense, core.FromCents(20000), ""); err == nil {
		t.Fatalf("expected error when balance would go negative")
	}
}

func TestMemoryStoreTransactionOrdering(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.CreateChild(ctx, 1, "Tom")

	a, _ := s.PostTransaction(ctx, c.ID, core.Deposit, core.FromCents(100), "A")
	b, _ := s.PostTransaction(ctx, c.ID, core.Deposit, core.FromCents(200), "B")
	cc, _ := s.PostTransaction(ctx, c.ID, core.Deposit, core.FromCents(300), "C")

	txs, err := s.GetTransactionsForChild(ctx, c.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []int64{cc.ID, b.ID, a.ID}
	if len(txs) != 3 {
		t.Fatalf("len = %d, want 3", len(txs))
	}
	for i, tx := range txs {
		if tx.ID != want[i] {
			t.Fatalf("position %d = tx %d, want %d", i, tx.ID, want[i])
		}
	}

	empty, err := s.GetTransactionsForChild(ctx, 999)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v err=%v", empty, err)
	}
}

func TestMemoryStoreAllowances(t *testing.T) {
	s := New()
	ctx := context.Background()
	c, _ := s.CreateChild(ctx, 1, "Tom")

	if _, err := s.UpsertAllowance(ctx, core.WeeklyAllowance{ChildID: 999, Amount: core.FromCents(500), DayOfWeek: 1, Active: true}); err == nil {
		t.Fatalf("expected error for unknown child")
	}

	a, err := s.UpsertAllowance(ctx, core.WeeklyAllowance{ChildID: c.ID, Amount: core.FromCents(2000), DayOfWeek: 5, Active: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := s.GetAllowance(ctx, c.ID)
	if err != nil || !ok || got != a {
		t.Fatalf("unexpected lookup: %+v ok=%v err=%v", got, ok, err)
	}

	// Replacing keeps a single record per child.
	if _, err := s.UpsertAllowance(ctx, core.WeeklyAllowance{ChildID: c.ID, Amount: core.FromCents(3000), DayOfWeek: 6, Active: true}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	active, _ := s.ListActiveAllowances(ctx)
	if len(active) != 1 || active[0].Amount.Cents != 3000 || active[0].DayOfWeek != 6 {
		t.Fatalf("unexpected active allowances: %v", active)
	}

	paidAt := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	if err := s.MarkAllowancePaid(ctx, c.ID, paidAt); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	got, _, _ = s.GetAllowance(ctx, c.ID)
	if !got.LastPaidAt.Equal(paidAt) {
		t.Fatalf("LastPaidAt = %v, want %v", got.LastPaidAt, paidAt)
	}
}
