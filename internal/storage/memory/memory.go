// Package memory provides an in-memory storage.Store for tests and local
// runs without a database file. Transactions are emulated with a snapshot:
// the whole state is copied on entry and restored when fn fails, so rollback
// semantics match the sqlite store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gastos/internal/core"
	"gastos/internal/storage"
)

type Store struct {
	mu       sync.Mutex
	budgets  map[string]core.Budget
	expenses map[string]core.Expense
	seq      int64
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		budgets:  make(map[string]core.Budget),
		expenses: make(map[string]core.Expense),
	}
}

// now produces strictly increasing timestamps so created_at ordering is
// deterministic even when the wall clock does not advance between calls.
func (s *Store) now() time.Time {
	s.seq++
	return time.Now().UTC().Add(time.Duration(s.seq) * time.Nanosecond)
}

func (s *Store) InTx(_ context.Context, fn func(storage.Querier) error) error {
	s.mu.Lock()
	budgetsCopy := make(map[string]core.Budget, len(s.budgets))
	for k, v := range s.budgets {
		budgetsCopy[k] = v
	}
	expensesCopy := make(map[string]core.Expense, len(s.expenses))
	for k, v := range s.expenses {
		expensesCopy[k] = v
	}
	s.mu.Unlock()

	if err := fn(unlocked{s}); err != nil {
		s.mu.Lock()
		s.budgets = budgetsCopy
		s.expenses = expensesCopy
		s.mu.Unlock()
		return err
	}
	return nil
}

// unlocked routes the transactional Querier back at the same store; the
// snapshot taken by InTx supplies the rollback.
type unlocked struct{ *Store }

func (s *Store) InsertBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Expenses = nil
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	b.Expenses = nil
	return b, nil
}

func (s *Store) GetBudgetWithExpenses(ctx context.Context, id string) (core.Budget, error) {
	b, err := s.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	expenses, err := s.ListExpenses(ctx, id, core.ExpenseFilter{})
	if err != nil {
		return core.Budget{}, err
	}
	b.Expenses = expenses
	return b, nil
}

func (s *Store) ListBudgetsLight(_ context.Context, ownerID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var budgets []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			b.Expenses = nil
			budgets = append(budgets, b)
		}
	}
	sort.Slice(budgets, func(i, j int) bool {
		return budgets[i].CreatedAt.After(budgets[j].CreatedAt)
	})
	return budgets, nil
}

func (s *Store) ListBudgetsWithExpenses(ctx context.Context, ownerID string) ([]core.Budget, error) {
	budgets, err := s.ListBudgetsLight(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		expenses, err := s.ListExpenses(ctx, budgets[i].ID, core.ExpenseFilter{})
		if err != nil {
			return nil, err
		}
		if expenses == nil {
			expenses = []core.Expense{}
		}
		budgets[i].Expenses = expenses
	}
	return budgets, nil
}

func (s *Store) UpdateBudget(_ context.Context, id string, ch core.BudgetChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.ErrBudgetNotFound
	}
	if ch.Name != nil {
		b.Name = *ch.Name
	}
	if ch.Amount != nil {
		b.Amount = *ch.Amount
	}
	if ch.Category != nil {
		b.Category = *ch.Category
	}
	if ch.Description != nil {
		b.Description = *ch.Description
	}
	b.UpdatedAt = s.now()
	s.budgets[id] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return core.ErrBudgetNotFound
	}
	delete(s.budgets, id)
	// Cascade, as the sqlite foreign key does.
	for eid, e := range s.expenses {
		if e.BudgetID == id {
			delete(s.expenses, eid)
		}
	}
	return nil
}

func (s *Store) InsertExpense(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[e.BudgetID]; !ok {
		return core.ErrBudgetNotFound
	}
	now := s.now()
	e.CreatedAt = now
	e.UpdatedAt = now
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) GetExpense(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, budgetID string, f core.ExpenseFilter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(f.Search))

	var expenses []core.Expense
	for _, e := range s.expenses {
		if e.BudgetID != budgetID {
			continue
		}
		if !f.StartDate.IsZero() && e.Date.Before(f.StartDate.Time) {
			continue
		}
		if !f.EndDate.IsZero() && e.Date.After(f.EndDate.Time) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		expenses = append(expenses, e)
	}

	desc := f.Sort == core.SortDesc
	sort.Slice(expenses, func(i, j int) bool {
		di, dj := expenses[i].Date.Time, expenses[j].Date.Time
		if !di.Equal(dj) {
			if desc {
				return di.After(dj)
			}
			return di.Before(dj)
		}
		return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
	})
	return expenses, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, ch core.ExpenseChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return core.ErrExpenseNotFound
	}
	if ch.Name != nil {
		e.Name = *ch.Name
	}
	if ch.Amount != nil {
		e.Amount = *ch.Amount
	}
	if ch.Date != nil {
		e.Date = *ch.Date
	}
	if ch.Description != nil {
		e.Description = *ch.Description
	}
	e.UpdatedAt = s.now()
	s.expenses[id] = e
	return nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.expenses[id]; !ok {
		return core.ErrExpenseNotFound
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) AddToSpent(_ context.Context, budgetID string, deltaCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok {
		return core.ErrBudgetNotFound
	}
	b.Spent.Cents += deltaCents
	b.UpdatedAt = s.now()
	s.budgets[budgetID] = b
	return nil
}

func (s *Store) RecalculateSpent(ctx context.Context, budgetID string) error {
	sum, err := s.SumExpenses(ctx, budgetID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok {
		return core.ErrBudgetNotFound
	}
	b.Spent.Cents = sum
	b.UpdatedAt = s.now()
	s.budgets[budgetID] = b
	return nil
}

func (s *Store) SumExpenses(_ context.Context, budgetID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.expenses {
		if e.BudgetID == budgetID {
			sum += e.Amount.Cents
		}
	}
	return sum, nil
}

func (s *Store) ListBudgetIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.budgets))
	for id := range s.budgets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
