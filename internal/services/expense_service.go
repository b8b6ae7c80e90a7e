package services

import (
	"context"
	"log/slog"

	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/storage"
)

// CreateExpenseInput is what a client may set on a new expense.
type CreateExpenseInput struct {
	Name        string
	Amount      core.Money
	Date        core.Date
	Description string
}

// ExpenseService is the transaction coordinator for expense mutations. Each
// mutating method opens one unit of work, performs the expense write, applies
// the aggregate adjustment through the configured strategy inside that same
// unit, and commits; any failure rolls the whole unit back, leaving both the
// expense table and the spent cache untouched.
type ExpenseService struct {
	store storage.Store
	agg   AggregateMaintainer
	pub   EventPublisher
}

func NewExpenseService(store storage.Store, agg AggregateMaintainer, pub EventPublisher) *ExpenseService {
	return &ExpenseService{store: store, agg: agg, pub: pub}
}

// Create inserts an expense under the resolved budget and raises spent by
// its amount, atomically.
func (s *ExpenseService) Create(ctx context.Context, budget core.Budget, in CreateExpenseInput) (core.Expense, error) {
	e := core.Expense{
		ID:          core.NewID(),
		BudgetID:    budget.ID,
		Name:        in.Name,
		Amount:      in.Amount,
		Date:        in.Date,
		Description: in.Description,
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	err := s.store.InTx(ctx, func(q storage.Querier) error {
		if err := q.InsertExpense(ctx, e); err != nil {
			return err
		}
		return s.agg.OnCreate(ctx, q, budget.ID, e.Amount)
	})
	if err != nil {
		return core.Expense{}, coordinate(err)
	}

	slog.InfoContext(ctx, "Expense created",
		"expense_id", e.ID,
		"budget_id", budget.ID,
		"amount_cents", e.Amount.Cents)
	publish(ctx, s.pub, events.NewBudgetEvent(events.ExpenseCreated, budget.ID, e.ID))

	return e, nil
}

// List returns the budget's expenses narrowed by the filter.
func (s *ExpenseService) List(ctx context.Context, budgetID string, f core.ExpenseFilter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, budgetID, f)
	if err != nil {
		return nil, coordinate(err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}
	return expenses, nil
}

// Update rewrites the expense's fields and applies the signed amount delta
// to spent. The old row is read inside the transaction so the delta is
// computed against the value the update actually replaces. An update that
// leaves the amount unchanged skips the aggregate write entirely; that is
// the designed no-op, not an omission.
func (s *ExpenseService) Update(ctx context.Context, budget core.Budget, expenseID string, ch core.ExpenseChanges) error {
	if err := validateExpenseChanges(ch); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(q storage.Querier) error {
		old, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if old.BudgetID != budget.ID {
			return core.ErrExpenseForbidden
		}
		if err := q.UpdateExpense(ctx, expenseID, ch); err != nil {
			return err
		}
		if ch.Amount == nil {
			return nil
		}
		delta := ch.Amount.Cents - old.Amount.Cents
		if delta == 0 {
			return nil
		}
		return s.agg.OnUpdate(ctx, q, budget.ID, delta)
	})
	if err != nil {
		return coordinate(err)
	}

	slog.InfoContext(ctx, "Expense updated",
		"expense_id", expenseID,
		"budget_id", budget.ID)
	publish(ctx, s.pub, events.NewBudgetEvent(events.ExpenseUpdated, budget.ID, expenseID))

	return nil
}

// Delete removes the expense and lowers spent by its amount, atomically.
func (s *ExpenseService) Delete(ctx context.Context, budget core.Budget, expenseID string) error {
	err := s.store.InTx(ctx, func(q storage.Querier) error {
		old, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		if old.BudgetID != budget.ID {
			return core.ErrExpenseForbidden
		}
		if err := q.DeleteExpense(ctx, expenseID); err != nil {
			return err
		}
		return s.agg.OnDelete(ctx, q, budget.ID, old.Amount)
	})
	if err != nil {
		return coordinate(err)
	}

	slog.InfoContext(ctx, "Expense deleted",
		"expense_id", expenseID,
		"budget_id", budget.ID)
	publish(ctx, s.pub, events.NewBudgetEvent(events.ExpenseDeleted, budget.ID, expenseID))

	return nil
}

func validateExpenseChanges(ch core.ExpenseChanges) error {
	if ch.Name != nil && *ch.Name == "" {
		return core.ErrEmptyName
	}
	if ch.Amount != nil {
		if err := ch.Amount.Validate(); err != nil {
			return err
		}
	}
	if ch.Date != nil {
		if err := ch.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}
