package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Alexis-Gontier/my-weekly-allowance/internal/core"
	"github.com/Alexis-Gontier/my-weekly-allowance/internal/wallet"
)

// ChildService owns child account creation and lookups. Balances are never
// written here; only the wallet service's post path mutates them.
type ChildService struct {
	store wallet.Store
}

func NewChildService(store wallet.Store) *ChildService {
	return &ChildService{store: store}
}

// CreateChild registers a new child wallet for the given parent user.
// The balance starts at exactly zero.
func (s *ChildService) CreateChild(ctx context.Context, userID int64, name string) (core.Child, error) {
	if name == "" {
		return core.Child{}, core.ErrEmptyName
	}

	child, err := s.store.CreateChild(ctx, userID, name)
	if err != nil {
		return core.Child{}, fmt.Errorf("create child: %w", err)
	}

	slog.InfoContext(ctx, "Child account created",
		"child_id", child.ID,
		"user_id", userID,
		"name", name)

	return child, nil
}

// GetChildByID is a pure read; absence is reported through ok, not an error.
func (s *ChildService) GetChildByID(ctx context.Context, id int64) (core.Child, bool, error) {
	return s.store.GetChildByID(ctx, id)
}

// GetChildrenForUser returns the user's children in insertion order,
// possibly empty.
func (s *ChildService) GetChildrenForUser(ctx context.Context, userID int64) ([]core.Child, error) {
	children, err := s.store.GetChildrenForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get children for user: %w", err)
	}
	if children == nil {
		children = []core.Child{}
	}
	return children, nil
}
