// Package services orchestrates budget and expense operations: ownership
// resolution, transactional coordination of expense writes with the spent
// aggregate, and the query paths the HTTP layer exposes.
package services

import (
	"context"

	"gastos/internal/core"
	"gastos/internal/storage"
)

// AggregateMaintainer keeps Budget.Spent equal to the sum of the budget's
// expense amounts. Implementations run inside the caller's transaction: the
// Querier they receive is the transactional one, so the expense write and the
// aggregate adjustment commit or roll back together.
type AggregateMaintainer interface {
	// OnCreate is invoked after an expense insert.
	OnCreate(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error
	// OnUpdate is invoked after an expense update whose amount changed;
	// deltaCents is new minus old and is never zero (the coordinator skips
	// the call entirely for unchanged amounts).
	OnUpdate(ctx context.Context, q storage.Querier, budgetID string, deltaCents int64) error
	// OnDelete is invoked after an expense delete.
	OnDelete(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error
}

// IncrementalStrategy applies signed deltas to the spent cache with a single
// atomic statement per mutation. It assumes the starting value was correct:
// it does not heal external drift, but it never scans the expense table. This
// is the production default; the reconciler worker supplies the healing.
type IncrementalStrategy struct{}

var _ AggregateMaintainer = IncrementalStrategy{}

func (IncrementalStrategy) OnCreate(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error {
	return q.AddToSpent(ctx, budgetID, amount.Cents)
}

func (IncrementalStrategy) OnUpdate(ctx context.Context, q storage.Querier, budgetID string, deltaCents int64) error {
	if deltaCents == 0 {
		return nil
	}
	return q.AddToSpent(ctx, budgetID, deltaCents)
}

func (IncrementalStrategy) OnDelete(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error {
	return q.AddToSpent(ctx, budgetID, -amount.Cents)
}

// RecalculateStrategy overwrites the spent cache with SUM(amount) over the
// budget's expenses after every mutation. Correct by construction and
// self-healing against prior drift, at the cost of an aggregation query per
// write. Kept as the alternative for deployments that value healing over
// throughput; the recalculation runs inside the same transaction as the
// triggering write, so a concurrent writer can never slip between the sum
// and the overwrite.
type RecalculateStrategy struct{}

var _ AggregateMaintainer = RecalculateStrategy{}

func (RecalculateStrategy) OnCreate(ctx context.Context, q storage.Querier, budgetID string, _ core.Money) error {
	return q.RecalculateSpent(ctx, budgetID)
}

func (RecalculateStrategy) OnUpdate(ctx context.Context, q storage.Querier, budgetID string, _ int64) error {
	return q.RecalculateSpent(ctx, budgetID)
}

func (RecalculateStrategy) OnDelete(ctx context.Context, q storage.Querier, budgetID string, _ core.Money) error {
	return q.RecalculateSpent(ctx, budgetID)
}

// MaintainerFor selects a strategy by name, defaulting to incremental.
func MaintainerFor(name string) AggregateMaintainer {
	if name == "recalculate" {
		return RecalculateStrategy{}
	}
	return IncrementalStrategy{}
}
