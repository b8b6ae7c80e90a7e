package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gastos/internal/core"
	"gastos/internal/storage"
	"gastos/internal/storage/memory"
)

// countingMaintainer wraps a real strategy and counts aggregate writes, so
// tests can prove the no-op skip.
type countingMaintainer struct {
	inner   AggregateMaintainer
	mu      sync.Mutex
	updates int
}

func (m *countingMaintainer) OnCreate(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error {
	return m.inner.OnCreate(ctx, q, budgetID, amount)
}

func (m *countingMaintainer) OnUpdate(ctx context.Context, q storage.Querier, budgetID string, delta int64) error {
	m.mu.Lock()
	m.updates++
	m.mu.Unlock()
	return m.inner.OnUpdate(ctx, q, budgetID, delta)
}

func (m *countingMaintainer) OnDelete(ctx context.Context, q storage.Querier, budgetID string, amount core.Money) error {
	return m.inner.OnDelete(ctx, q, budgetID, amount)
}

// brokenMaintainer fails every aggregate write, forcing rollback.
type brokenMaintainer struct{}

var errAggregate = errors.New("aggregate write refused")

func (brokenMaintainer) OnCreate(context.Context, storage.Querier, string, core.Money) error {
	return errAggregate
}
func (brokenMaintainer) OnUpdate(context.Context, storage.Querier, string, int64) error {
	return errAggregate
}
func (brokenMaintainer) OnDelete(context.Context, storage.Querier, string, core.Money) error {
	return errAggregate
}

func newFixture(t *testing.T, agg AggregateMaintainer) (*memory.Store, *BudgetService, *ExpenseService, core.Budget) {
	t.Helper()
	store := memory.New()
	budgets := NewBudgetService(store, nil)
	expenses := NewExpenseService(store, agg, nil)
	b := mustCreateBudget(t, budgets, core.NewID(), 50000)
	return store, budgets, expenses, b
}

func mustCreateExpense(t *testing.T, svc *ExpenseService, b core.Budget, name string, cents int64) core.Expense {
	t.Helper()
	e, err := svc.Create(context.Background(), b, CreateExpenseInput{
		Name:   name,
		Amount: core.Money{Cents: cents},
		Date:   core.NewDate(2025, 1, 4),
	})
	if err != nil {
		t.Fatalf("create expense %q: %v", name, err)
	}
	return e
}

func spent(t *testing.T, store *memory.Store, budgetID string) int64 {
	t.Helper()
	b, err := store.GetBudget(context.Background(), budgetID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	return b.Spent.Cents
}

func TestExpenseCreateAccruesSpent(t *testing.T) {
	store, _, expenses, b := newFixture(t, IncrementalStrategy{})

	mustCreateExpense(t, expenses, b, "Market", 8025)
	mustCreateExpense(t, expenses, b, "Bakery", 1000)

	if got := spent(t, store, b.ID); got != 9025 {
		t.Fatalf("spent=%d, want 9025", got)
	}
}

func TestExpenseCreateValidation(t *testing.T) {
	_, _, expenses, b := newFixture(t, IncrementalStrategy{})

	tests := []struct {
		name    string
		in      CreateExpenseInput
		wantErr error
	}{
		{"empty name", CreateExpenseInput{Name: "", Amount: core.Money{Cents: 100}, Date: core.NewDate(2025, 1, 1)}, core.ErrEmptyName},
		{"zero amount", CreateExpenseInput{Name: "x", Amount: core.Money{}, Date: core.NewDate(2025, 1, 1)}, core.ErrInvalidAmount},
		{"missing date", CreateExpenseInput{Name: "x", Amount: core.Money{Cents: 100}}, core.ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := expenses.Create(context.Background(), b, tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseUpdateAppliesDelta(t *testing.T) {
	store, _, expenses, b := newFixture(t, IncrementalStrategy{})
	e := mustCreateExpense(t, expenses, b, "Dinner", 1000)

	amount := core.Money{Cents: 2550}
	if err := expenses.Update(context.Background(), b, e.ID, core.ExpenseChanges{Amount: &amount}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := spent(t, store, b.ID); got != 2550 {
		t.Fatalf("spent=%d after raise, want 2550", got)
	}

	lower := core.Money{Cents: 500}
	if err := expenses.Update(context.Background(), b, e.ID, core.ExpenseChanges{Amount: &lower}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := spent(t, store, b.ID); got != 500 {
		t.Fatalf("spent=%d after lower, want 500", got)
	}
}

func TestExpenseUpdateWithoutAmountSkipsAggregate(t *testing.T) {
	counting := &countingMaintainer{inner: IncrementalStrategy{}}
	store, _, expenses, b := newFixture(t, counting)
	e := mustCreateExpense(t, expenses, b, "Dinner", 1000)

	name := "Late dinner"
	if err := expenses.Update(context.Background(), b, e.ID, core.ExpenseChanges{Name: &name}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Same amount explicitly set is also a zero delta.
	same := core.Money{Cents: 1000}
	if err := expenses.Update(context.Background(), b, e.ID, core.ExpenseChanges{Amount: &same}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if counting.updates != 0 {
		t.Fatalf("aggregate invoked %d times for zero-delta updates, want 0", counting.updates)
	}
	if got := spent(t, store, b.ID); got != 1000 {
		t.Fatalf("spent=%d, want 1000 unchanged", got)
	}
}

func TestExpenseDeleteReturnsToZero(t *testing.T) {
	store, _, expenses, b := newFixture(t, IncrementalStrategy{})
	e := mustCreateExpense(t, expenses, b, "Only one", 4275)

	if err := expenses.Delete(context.Background(), b, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got := spent(t, store, b.ID); got != 0 {
		t.Fatalf("spent=%d after deleting all expenses, want 0", got)
	}
}

func TestExpenseCreateRollsBackWhenAggregateFails(t *testing.T) {
	store, _, _, b := newFixture(t, IncrementalStrategy{})
	broken := NewExpenseService(store, brokenMaintainer{}, nil)

	_, err := broken.Create(context.Background(), b, CreateExpenseInput{
		Name:   "Never lands",
		Amount: core.Money{Cents: 1234},
		Date:   core.NewDate(2025, 1, 1),
	})
	if !errors.Is(err, core.ErrStorageFailure) {
		t.Fatalf("error = %v, want wrapped ErrStorageFailure", err)
	}

	// The whole unit rolled back: no expense row, no aggregate movement.
	list, listErr := store.ListExpenses(context.Background(), b.ID, core.ExpenseFilter{})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(list) != 0 {
		t.Fatalf("expense row survived rollback: %+v", list)
	}
	if got := spent(t, store, b.ID); got != 0 {
		t.Fatalf("spent=%d after rollback, want 0", got)
	}
}

func TestExpenseUpdateWrongBudgetForbidden(t *testing.T) {
	store, budgets, expenses, b := newFixture(t, IncrementalStrategy{})
	other := mustCreateBudget(t, budgets, b.OwnerID, 10000)
	e := mustCreateExpense(t, expenses, b, "Coffee", 350)

	name := "hijack"
	err := expenses.Update(context.Background(), other, e.ID, core.ExpenseChanges{Name: &name})
	if !errors.Is(err, core.ErrExpenseForbidden) {
		t.Fatalf("update via wrong budget error = %v, want ErrExpenseForbidden", err)
	}

	if err := expenses.Delete(context.Background(), other, e.ID); !errors.Is(err, core.ErrExpenseForbidden) {
		t.Fatalf("delete via wrong budget error = %v, want ErrExpenseForbidden", err)
	}

	// Nothing moved on either budget.
	if got := spent(t, store, b.ID); got != 350 {
		t.Fatalf("owning budget spent=%d, want 350", got)
	}
	if got := spent(t, store, other.ID); got != 0 {
		t.Fatalf("other budget spent=%d, want 0", got)
	}
}

func TestExpenseListEmptyIsNotNil(t *testing.T) {
	_, _, expenses, b := newFixture(t, IncrementalStrategy{})

	list, err := expenses.List(context.Background(), b.ID, core.ExpenseFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list == nil {
		t.Fatalf("empty list must be [], not nil")
	}
}

func TestConcurrentExpenseCreatesCommute(t *testing.T) {
	store, _, expenses, b := newFixture(t, IncrementalStrategy{})

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := expenses.Create(context.Background(), b, CreateExpenseInput{
					Name:   "Concurrent",
					Amount: core.Money{Cents: 125},
					Date:   core.NewDate(2025, 6, 1),
				})
				if err != nil {
					t.Errorf("concurrent create: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	want := int64(workers * perWorker * 125)
	if got := spent(t, store, b.ID); got != want {
		t.Fatalf("spent=%d after concurrent creates, want %d", got, want)
	}

	sum, err := store.SumExpenses(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != want {
		t.Fatalf("expense sum=%d, want %d", sum, want)
	}
}
