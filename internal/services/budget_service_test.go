package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gastos/internal/core"
	"gastos/internal/events"
	"gastos/internal/storage/memory"
)

// capturePublisher records published events in order.
type capturePublisher struct {
	mu     sync.Mutex
	events []*events.BudgetEvent
}

func (p *capturePublisher) PublishBudgetEvent(_ context.Context, ev *events.BudgetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func mustCreateBudget(t *testing.T, svc *BudgetService, ownerID string, amountCents int64) core.Budget {
	t.Helper()
	b, err := svc.Create(context.Background(), ownerID, CreateBudgetInput{
		Name:   "Food",
		Amount: core.Money{Cents: amountCents},
	})
	if err != nil {
		t.Fatalf("create budget: %v", err)
	}
	return b
}

func TestBudgetCreateStartsAtZeroSpent(t *testing.T) {
	store := memory.New()
	svc := NewBudgetService(store, nil)

	b := mustCreateBudget(t, svc, core.NewID(), 50000)

	if b.Spent.Cents != 0 {
		t.Fatalf("new budget spent=%d, want 0", b.Spent.Cents)
	}
	stored, err := store.GetBudget(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if stored.Spent.Cents != 0 {
		t.Fatalf("stored spent=%d, want 0", stored.Spent.Cents)
	}
}

func TestBudgetCreateValidation(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil)

	tests := []struct {
		name    string
		in      CreateBudgetInput
		wantErr error
	}{
		{"empty name", CreateBudgetInput{Name: "", Amount: core.Money{Cents: 100}}, core.ErrEmptyName},
		{"blank name", CreateBudgetInput{Name: "   ", Amount: core.Money{Cents: 100}}, core.ErrEmptyName},
		{"zero amount", CreateBudgetInput{Name: "Food", Amount: core.Money{Cents: 0}}, core.ErrInvalidAmount},
		{"negative amount", CreateBudgetInput{Name: "Food", Amount: core.Money{Cents: -5}}, core.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), core.NewID(), tt.in)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBudgetListShapes(t *testing.T) {
	store := memory.New()
	budgets := NewBudgetService(store, nil)
	expenses := NewExpenseService(store, IncrementalStrategy{}, nil)
	ownerID := core.NewID()

	b := mustCreateBudget(t, budgets, ownerID, 50000)
	_, err := expenses.Create(context.Background(), b, CreateExpenseInput{
		Name:   "Market",
		Amount: core.Money{Cents: 8025},
		Date:   core.NewDate(2025, 1, 4),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	light, err := budgets.ListLight(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("ListLight: %v", err)
	}
	if light.Count != 1 || len(light.Items) != 1 {
		t.Fatalf("light count=%d items=%d, want 1/1", light.Count, len(light.Items))
	}
	if light.Items[0].Expenses != nil {
		t.Errorf("light list must not carry expenses")
	}
	if light.Items[0].Spent.Cents != 8025 {
		t.Errorf("light spent=%d, want 8025", light.Items[0].Spent.Cents)
	}

	full, err := budgets.ListWithExpenses(context.Background(), ownerID)
	if err != nil {
		t.Fatalf("ListWithExpenses: %v", err)
	}
	if len(full.Items) != 1 || len(full.Items[0].Expenses) != 1 {
		t.Fatalf("detailed list missing expenses: %+v", full.Items)
	}
	if full.Items[0].Expenses[0].Name != "Market" {
		t.Errorf("expense name=%q", full.Items[0].Expenses[0].Name)
	}

	// Another owner sees nothing.
	other, err := budgets.ListLight(context.Background(), core.NewID())
	if err != nil {
		t.Fatalf("ListLight other: %v", err)
	}
	if other.Count != 0 {
		t.Errorf("other owner count=%d, want 0", other.Count)
	}
}

func TestBudgetUpdateFields(t *testing.T) {
	store := memory.New()
	svc := NewBudgetService(store, nil)
	b := mustCreateBudget(t, svc, core.NewID(), 50000)

	name := "Groceries"
	amount := core.Money{Cents: 75000}
	category := "essentials"
	if err := svc.Update(context.Background(), b.ID, core.BudgetChanges{
		Name:     &name,
		Amount:   &amount,
		Category: &category,
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.GetBudget(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if got.Name != name || got.Amount != amount || got.Category != category {
		t.Fatalf("update not applied: %+v", got)
	}
	if got.Spent.Cents != 0 {
		t.Fatalf("update touched spent: %d", got.Spent.Cents)
	}
}

func TestBudgetUpdateValidation(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil)
	b := mustCreateBudget(t, svc, core.NewID(), 50000)

	empty := ""
	if err := svc.Update(context.Background(), b.ID, core.BudgetChanges{Name: &empty}); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("empty name error = %v, want ErrEmptyName", err)
	}

	bad := core.Money{Cents: -100}
	if err := svc.Update(context.Background(), b.ID, core.BudgetChanges{Amount: &bad}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("negative amount error = %v, want ErrInvalidAmount", err)
	}
}

func TestBudgetUpdateMissing(t *testing.T) {
	svc := NewBudgetService(memory.New(), nil)

	name := "x"
	err := svc.Update(context.Background(), core.NewID(), core.BudgetChanges{Name: &name})
	if !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("error = %v, want ErrBudgetNotFound", err)
	}
}

func TestBudgetDeleteCascades(t *testing.T) {
	store := memory.New()
	pub := &capturePublisher{}
	budgets := NewBudgetService(store, pub)
	expenses := NewExpenseService(store, IncrementalStrategy{}, pub)
	b := mustCreateBudget(t, budgets, core.NewID(), 50000)

	e, err := expenses.Create(context.Background(), b, CreateExpenseInput{
		Name:   "Doomed",
		Amount: core.Money{Cents: 999},
		Date:   core.NewDate(2025, 4, 1),
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if err := budgets.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := store.GetBudget(context.Background(), b.ID); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Errorf("budget after delete: %v, want ErrBudgetNotFound", err)
	}
	if _, err := store.GetExpense(context.Background(), e.ID); !errors.Is(err, core.ErrExpenseNotFound) {
		t.Errorf("expense after cascade: %v, want ErrExpenseNotFound", err)
	}

	types := pub.types()
	if len(types) != 2 || types[1] != events.BudgetDeleted {
		t.Errorf("published events = %v, want [... budget.deleted]", types)
	}
}

func TestPublisherFailureDoesNotFailMutation(t *testing.T) {
	store := memory.New()
	svc := NewBudgetService(store, failingPublisher{})
	b := mustCreateBudget(t, svc, core.NewID(), 1000)

	if err := svc.Delete(context.Background(), b.ID); err != nil {
		t.Fatalf("Delete with failing publisher: %v", err)
	}
}

type failingPublisher struct{}

func (failingPublisher) PublishBudgetEvent(context.Context, *events.BudgetEvent) error {
	return errors.New("broker down")
}
