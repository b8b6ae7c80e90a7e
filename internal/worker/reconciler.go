// Package worker verifies and repairs the spent aggregate out of band. The
// API server's hot path uses the incremental strategy, which trusts its
// starting value; this worker is the compensating control, recomputing the
// true expense sum for budgets named in events and in a periodic sweep, and
// overwriting the cache when they diverge.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/storage"
)

type Reconciler struct {
	store storage.Store
	// maxParallel bounds concurrent budget checks during a sweep.
	maxParallel int
}

func NewReconciler(store storage.Store, maxParallel int) *Reconciler {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Reconciler{store: store, maxParallel: maxParallel}
}

// HandleEvent processes one budget-touched event from the queue.
func (r *Reconciler) HandleEvent(ctx context.Context, ev *events.BudgetEvent) error {
	if ev.Type == events.BudgetDeleted {
		// Nothing left to verify; the cascade removed the expenses too.
		return nil
	}
	return r.CheckBudget(ctx, ev.BudgetID)
}

// CheckBudget compares the budget's spent cache against the sum of its
// expenses and repairs it when they differ. The repair runs the recalculate
// strategy inside its own transaction, so a concurrent expense write either
// lands before the sum or re-queues another event after it.
func (r *Reconciler) CheckBudget(ctx context.Context, budgetID string) error {
	b, err := r.store.GetBudget(ctx, budgetID)
	if err != nil {
		if err == core.ErrBudgetNotFound {
			// Deleted between event and check.
			return nil
		}
		return fmt.Errorf("load budget %s: %w", budgetID, err)
	}

	sum, err := r.store.SumExpenses(ctx, budgetID)
	if err != nil {
		return fmt.Errorf("sum expenses for %s: %w", budgetID, err)
	}

	if b.Spent.Cents == sum {
		slog.DebugContext(ctx, "Aggregate verified", "budget_id", budgetID, "spent_cents", sum)
		return nil
	}

	slog.WarnContext(ctx, "Aggregate drift detected, repairing",
		"budget_id", budgetID,
		"spent_cents", b.Spent.Cents,
		"actual_cents", sum,
		"drift_cents", b.Spent.Cents-sum)

	err = r.store.InTx(ctx, func(q storage.Querier) error {
		return q.RecalculateSpent(ctx, budgetID)
	})
	if err != nil {
		return fmt.Errorf("repair budget %s: %w", budgetID, err)
	}

	slog.InfoContext(ctx, "Aggregate repaired", "budget_id", budgetID, "spent_cents", sum)
	return nil
}

// Sweep checks every budget, a bounded number at a time. Used at startup and
// on a timer to cover events that never arrived.
func (r *Reconciler) Sweep(ctx context.Context) error {
	ids, err := r.store.ListBudgetIDs(ctx)
	if err != nil {
		return fmt.Errorf("list budgets for sweep: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)
	for _, id := range ids {
		g.Go(func() error {
			return r.CheckBudget(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Reconciliation sweep completed", "budgets", len(ids))
	return nil
}
