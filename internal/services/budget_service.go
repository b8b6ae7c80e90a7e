package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/storage"
)

// EventPublisher notifies downstream consumers that a budget's aggregate may
// need verification. A nil publisher disables eventing; mutations never fail
// because a message could not be sent.
type EventPublisher interface {
	PublishBudgetEvent(ctx context.Context, ev *events.BudgetEvent) error
}

// CreateBudgetInput is what a client may set on a new budget. Spent is
// absent on purpose: every budget starts at zero and only the aggregate
// maintainer moves it.
type CreateBudgetInput struct {
	Name        string
	Amount      core.Money
	Category    string
	Description string
}

// BudgetList is the count+items envelope returned by the list operations.
type BudgetList struct {
	Count int
	Items []core.Budget
}

// BudgetService implements budget lifecycle and the two list shapes.
type BudgetService struct {
	store storage.Store
	pub   EventPublisher
}

func NewBudgetService(store storage.Store, pub EventPublisher) *BudgetService {
	return &BudgetService{store: store, pub: pub}
}

// Create persists a new budget with spent = 0 and returns it.
func (s *BudgetService) Create(ctx context.Context, ownerID string, in CreateBudgetInput) (core.Budget, error) {
	b := core.Budget{
		ID:          core.NewID(),
		Name:        in.Name,
		Amount:      in.Amount,
		Spent:       core.Money{Cents: 0},
		OwnerID:     ownerID,
		Category:    in.Category,
		Description: in.Description,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := s.store.InsertBudget(ctx, b); err != nil {
		return core.Budget{}, coordinate(err)
	}

	slog.InfoContext(ctx, "Budget created",
		"budget_id", b.ID,
		"owner_id", b.OwnerID,
		"amount_cents", b.Amount.Cents)

	return b, nil
}

// ListLight returns the owner's budgets without expenses, newest first.
func (s *BudgetService) ListLight(ctx context.Context, ownerID string) (BudgetList, error) {
	budgets, err := s.store.ListBudgetsLight(ctx, ownerID)
	if err != nil {
		return BudgetList{}, coordinate(err)
	}
	return BudgetList{Count: len(budgets), Items: budgets}, nil
}

// ListWithExpenses returns the owner's budgets with their full expense
// collections, newest first.
func (s *BudgetService) ListWithExpenses(ctx context.Context, ownerID string) (BudgetList, error) {
	budgets, err := s.store.ListBudgetsWithExpenses(ctx, ownerID)
	if err != nil {
		return BudgetList{}, coordinate(err)
	}
	return BudgetList{Count: len(budgets), Items: budgets}, nil
}

// GetWithExpenses loads the detail view of an already-resolved budget.
func (s *BudgetService) GetWithExpenses(ctx context.Context, budgetID string) (core.Budget, error) {
	b, err := s.store.GetBudgetWithExpenses(ctx, budgetID)
	if err != nil {
		return core.Budget{}, coordinate(err)
	}
	return b, nil
}

// Update applies the allowed field changes to a budget.
func (s *BudgetService) Update(ctx context.Context, budgetID string, ch core.BudgetChanges) error {
	if err := validateBudgetChanges(ch); err != nil {
		return err
	}
	if err := s.store.UpdateBudget(ctx, budgetID, ch); err != nil {
		return coordinate(err)
	}
	return nil
}

// Delete removes a budget and, through the store cascade, all its expenses.
func (s *BudgetService) Delete(ctx context.Context, budgetID string) error {
	if err := s.store.DeleteBudget(ctx, budgetID); err != nil {
		return coordinate(err)
	}

	slog.InfoContext(ctx, "Budget deleted", "budget_id", budgetID)
	publish(ctx, s.pub, events.NewBudgetEvent(events.BudgetDeleted, budgetID, ""))
	return nil
}

func validateBudgetChanges(ch core.BudgetChanges) error {
	if ch.Name != nil {
		if *ch.Name == "" {
			return core.ErrEmptyName
		}
	}
	if ch.Amount != nil {
		if err := ch.Amount.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// coordinate classifies an error escaping a unit of work: domain sentinels
// pass through untouched, anything else is a storage failure whose work has
// been rolled back.
func coordinate(err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range []error{
		core.ErrBudgetNotFound, core.ErrExpenseNotFound,
		core.ErrBudgetForbidden, core.ErrExpenseForbidden,
		core.ErrInvalidID, core.ErrInvalidAmount, core.ErrInvalidDate,
		core.ErrEmptyName, core.ErrConflict,
	} {
		if errors.Is(err, domain) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", core.ErrStorageFailure, err)
}

// publish fires an event without letting delivery problems surface to the
// caller; the committed state is already durable and the reconciler's
// periodic sweep covers lost messages.
func publish(ctx context.Context, pub EventPublisher, ev *events.BudgetEvent) {
	if pub == nil {
		return
	}
	if err := pub.PublishBudgetEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish budget event",
			"error", err,
			"type", ev.Type,
			"budget_id", ev.BudgetID)
	}
}
