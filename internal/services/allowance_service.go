package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"
)

// allowanceDescription is the fixed description of scheduler-created
// transactions.
const allowanceDescription = "Weekly allowance"

// processConcurrency caps the parallel per-child payouts in one tick.
const processConcurrency = 4

// AllowanceService owns the single weekly allowance configuration per child
// and the processing tick that turns due allowances into ledger credits.
type AllowanceService struct {
	store  wallet.Store
	wallet *WalletService
}

func NewAllowanceService(store wallet.Store, walletService *WalletService) *AllowanceService {
	return &AllowanceService{
		store:  store,
		wallet: walletService,
	}
}

// SetAllowance creates or replaces the child's weekly allowance. Checks run
// in the same order as the wallet mutations: amount, then day of week, then
// child existence. The previous last-payment date is preserved across a
// replacement so re-configuring an allowance cannot pay the same day twice.
func (s *AllowanceService) SetAllowance(ctx context.Context, childID int64, amount core.Money, dayOfWeek int) (core.WeeklyAllowance, error) {
	if err := core.ValidateAmount(amount); err != nil {
		return core.WeeklyAllowance{}, err
	}
	if err := core.ValidateDayOfWeek(dayOfWeek); err != nil {
		return core.WeeklyAllowance{}, err
	}

	if _, ok, err := s.store.GetChildByID(ctx, childID); err != nil {
		return core.WeeklyAllowance{}, fmt.Errorf("resolve child: %w", err)
	} else if !ok {
		return core.WeeklyAllowance{}, core.ChildNotFoundError{ChildID: childID}
	}

	a := core.WeeklyAllowance{
		ChildID:   childID,
		Amount:    amount,
		DayOfWeek: dayOfWeek,
		Active:    true,
	}
	if prev, ok, err := s.store.GetAllowance(ctx, childID); err != nil {
		return core.WeeklyAllowance{}, fmt.Errorf("get prior allowance: %w", err)
	} else if ok {
		a.LastPaidAt = prev.LastPaidAt
	}

	saved, err := s.store.UpsertAllowance(ctx, a)
	if err != nil {
		return core.WeeklyAllowance{}, fmt.Errorf("set allowance: %w", err)
	}

	slog.InfoContext(ctx, "Weekly allowance configured",
		"child_id", childID,
		"amount_cents", amount.Cents,
		"day_of_week", dayOfWeek)

	return saved, nil
}

// GetAllowance is a pure read; absence is reported through ok, not an error.
func (s *AllowanceService) GetAllowance(ctx context.Context, childID int64) (core.WeeklyAllowance, bool, error) {
	return s.store.GetAllowance(ctx, childID)
}

// ProcessAllowances credits every active allowance due on the given day and
// returns the created transactions in creation order. Children share no
// mutable state, so their payouts run concurrently; a failure for one child
// is logged and skipped without failing the tick. An allowance already paid
// on the same calendar day is skipped, so the tick is safe to invoke more
// than once per day.
func (s *AllowanceService) ProcessAllowances(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	allowances, err := s.store.ListActiveAllowances(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active allowances: %w", err)
	}

	slog.InfoContext(ctx, "Processing weekly allowances",
		"total_active", len(allowances),
		"processing_date", now.Format("2006-01-02"),
		"day_of_week", core.ISOWeekday(now))

	var mu sync.Mutex
	paid := []core.Transaction{}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(processConcurrency)

	for _, a := range allowances {
		if !a.DueOn(now) {
			continue
		}
		a := a
		g.Go(func() error {
			tx, err := s.wallet.credit(gctx, a.ChildID, core.Allowance, a.Amount, allowanceDescription)
			if err != nil {
				slog.ErrorContext(gctx, "Failed to pay allowance",
					"child_id", a.ChildID,
					"amount_cents", a.Amount.Cents,
					"error", err)
				return nil
			}

			if err := s.store.MarkAllowancePaid(gctx, a.ChildID, now); err != nil {
				// The credit is committed; only the bookkeeping failed.
				slog.ErrorContext(gctx, "Failed to record allowance payment date",
					"child_id", a.ChildID,
					"error", err)
			}

			mu.Lock()
			paid = append(paid, tx)
			mu.Unlock()

			slog.InfoContext(gctx, "Allowance paid",
				"child_id", a.ChildID,
				"transaction_id", tx.ID,
				"amount_cents", a.Amount.Cents)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("process allowances: %w", err)
	}

	sort.Slice(paid, func(i, j int) bool { return paid[i].ID < paid[j].ID })

	slog.InfoContext(ctx, "Allowance processing complete",
		"paid", len(paid),
		"total_checked", len(allowances))

	return paid, nil
}
