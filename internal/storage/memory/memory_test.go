package memory

import (
	"context"
	"errors"
	"testing"

	"gastos/internal/core"
	"gastos/internal/storage"
)

func seed(t *testing.T, s *Store) core.Budget {
	t.Helper()
	b := core.Budget{
		ID:      core.NewID(),
		Name:    "Food",
		Amount:  core.Money{Cents: 50000},
		OwnerID: core.NewID(),
	}
	if err := s.InsertBudget(context.Background(), b); err != nil {
		t.Fatalf("insert budget: %v", err)
	}
	return b
}

func TestInTxRollbackRestoresSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := seed(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(q storage.Querier) error {
		e := core.Expense{
			ID:       core.NewID(),
			BudgetID: b.ID,
			Name:     "ghost",
			Amount:   core.Money{Cents: 100},
			Date:     core.NewDate(2025, 1, 1),
		}
		if err := q.InsertExpense(ctx, e); err != nil {
			return err
		}
		if err := q.AddToSpent(ctx, b.ID, 100); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx error = %v, want boom", err)
	}

	expenses, _ := s.ListExpenses(ctx, b.ID, core.ExpenseFilter{})
	if len(expenses) != 0 {
		t.Errorf("expense survived rollback")
	}
	got, _ := s.GetBudget(ctx, b.ID)
	if got.Spent.Cents != 0 {
		t.Errorf("spent=%d after rollback, want 0", got.Spent.Cents)
	}
}

func TestDeleteBudgetCascades(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := seed(t, s)

	e := core.Expense{
		ID:       core.NewID(),
		BudgetID: b.ID,
		Name:     "doomed",
		Amount:   core.Money{Cents: 999},
		Date:     core.NewDate(2025, 4, 1),
	}
	if err := s.InsertExpense(ctx, e); err != nil {
		t.Fatalf("insert expense: %v", err)
	}

	if err := s.DeleteBudget(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetExpense(ctx, e.ID); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("expense survived cascade: %v", err)
	}
}

func TestListExpensesFilterAndSort(t *testing.T) {
	s := New()
	ctx := context.Background()
	b := seed(t, s)

	dates := []core.Date{
		core.NewDate(2025, 1, 10),
		core.NewDate(2025, 1, 5),
		core.NewDate(2025, 1, 20),
	}
	names := []string{"Restaurant", "Market run", "market again"}
	for i := range dates {
		e := core.Expense{
			ID:       core.NewID(),
			BudgetID: b.ID,
			Name:     names[i],
			Amount:   core.Money{Cents: 100},
			Date:     dates[i],
		}
		if err := s.InsertExpense(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	asc, err := s.ListExpenses(ctx, b.ID, core.ExpenseFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(asc) != 3 || asc[0].Name != "Market run" || asc[2].Name != "market again" {
		t.Errorf("asc order wrong: %+v", asc)
	}

	desc, _ := s.ListExpenses(ctx, b.ID, core.ExpenseFilter{Sort: core.SortDesc})
	if desc[0].Name != "market again" {
		t.Errorf("desc order wrong: %+v", desc)
	}

	found, _ := s.ListExpenses(ctx, b.ID, core.ExpenseFilter{Search: "MARKET"})
	if len(found) != 2 {
		t.Errorf("search len=%d, want 2", len(found))
	}

	ranged, _ := s.ListExpenses(ctx, b.ID, core.ExpenseFilter{
		StartDate: core.NewDate(2025, 1, 5),
		EndDate:   core.NewDate(2025, 1, 10),
	})
	if len(ranged) != 2 {
		t.Errorf("range len=%d, want 2", len(ranged))
	}
}
