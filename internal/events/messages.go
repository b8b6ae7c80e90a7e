// Package events carries budget-touched notifications over AMQP. The API
// server publishes one message after every committed expense mutation; the
// reconciler worker consumes them and verifies the budget's spent cache
// against the expense sum.
package events

import (
	"encoding/json"
	"time"
)

type EventType string

const (
	ExpenseCreated EventType = "expense.created"
	ExpenseUpdated EventType = "expense.updated"
	ExpenseDeleted EventType = "expense.deleted"
	BudgetDeleted  EventType = "budget.deleted"
)

// BudgetEvent is deliberately small: just identifiers and a timestamp. The
// consumer re-reads current state from the store, so a stale or duplicated
// message is harmless.
type BudgetEvent struct {
	Type      EventType `json:"type"`
	BudgetID  string    `json:"budget_id"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetEvent(t EventType, budgetID, expenseID string) *BudgetEvent {
	return &BudgetEvent{
		Type:      t,
		BudgetID:  budgetID,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func (e *BudgetEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func BudgetEventFromJSON(data []byte) (*BudgetEvent, error) {
	var ev BudgetEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
