package services

import (
	"context"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// Guard resolves budgets and expenses while enforcing ownership. Handlers
// call it once per request and thread the resolved entity through the rest of
// the call chain, so downstream stages never repeat the lookup.
type Guard struct {
	store storage.Store
}

func NewGuard(store storage.Store) *Guard {
	return &Guard{store: store}
}

// ResolveBudget checks the id format, loads the budget and verifies the
// acting user owns it. A malformed id fails with ErrInvalidID before any
// lookup; a missing budget with ErrBudgetNotFound; a budget owned by someone
// else with ErrBudgetForbidden.
func (g *Guard) ResolveBudget(ctx context.Context, budgetID, actorID string) (core.Budget, error) {
	if err := core.ValidateID(budgetID); err != nil {
		return core.Budget{}, err
	}
	b, err := g.store.GetBudget(ctx, budgetID)
	if err != nil {
		return core.Budget{}, err
	}
	if b.OwnerID != actorID {
		return core.Budget{}, core.ErrBudgetForbidden
	}
	return b, nil
}

// ResolveExpense checks the id format, loads the expense and verifies it
// belongs to the already-resolved budget. The membership check matters even
// when the actor owns both budgets involved: an expense reached through the
// wrong budget path is forbidden.
func (g *Guard) ResolveExpense(ctx context.Context, expenseID string, budget core.Budget) (core.Expense, error) {
	if err := core.ValidateID(expenseID); err != nil {
		return core.Expense{}, err
	}
	e, err := g.store.GetExpense(ctx, expenseID)
	if err != nil {
		return core.Expense{}, err
	}
	if e.BudgetID != budget.ID {
		return core.Expense{}, core.ErrExpenseForbidden
	}
	return e, nil
}
