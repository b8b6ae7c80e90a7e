// Package storage defines the persistence ports for budgets and expenses and
// provides the SQLite implementation. The memory subpackage carries an
// in-memory implementation of the same ports for tests and local runs.
package storage

import (
	"context"

	"gastos/internal/core"
)

// Querier is the set of data operations available both on the base
// connection and inside a transaction.
type Querier interface {
	InsertBudget(ctx context.Context, b core.Budget) error
	GetBudget(ctx context.Context, id string) (core.Budget, error)
	GetBudgetWithExpenses(ctx context.Context, id string) (core.Budget, error)
	ListBudgetsLight(ctx context.Context, ownerID string) ([]core.Budget, error)
	ListBudgetsWithExpenses(ctx context.Context, ownerID string) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, id string, ch core.BudgetChanges) error
	DeleteBudget(ctx context.Context, id string) error

	InsertExpense(ctx context.Context, e core.Expense) error
	GetExpense(ctx context.Context, id string) (core.Expense, error)
	ListExpenses(ctx context.Context, budgetID string, f core.ExpenseFilter) ([]core.Expense, error)
	UpdateExpense(ctx context.Context, id string, ch core.ExpenseChanges) error
	DeleteExpense(ctx context.Context, id string) error

	// AddToSpent applies a signed delta to the budget's spent cache as a
	// single atomic statement; concurrent deltas against the same budget
	// serialize on the row and commute.
	AddToSpent(ctx context.Context, budgetID string, deltaCents int64) error

	// RecalculateSpent overwrites the spent cache with the aggregated sum of
	// the budget's expenses, repairing any drift.
	RecalculateSpent(ctx context.Context, budgetID string) error

	SumExpenses(ctx context.Context, budgetID string) (int64, error)
	ListBudgetIDs(ctx context.Context) ([]string, error)
}

// Store is a Querier that can also scope a group of operations into one
// atomic unit of work. fn runs against a transactional Querier; any error
// rolls the whole unit back.
type Store interface {
	Querier
	InTx(ctx context.Context, fn func(Querier) error) error
}
