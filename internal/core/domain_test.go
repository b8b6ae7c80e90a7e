package core

import (
	"errors"
	"testing"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-01-31", true},
		{" 2025-06-01 ", true},
		{"2025-13-01", false},
		{"31-01-2025", false},
		{"2025/01/31", false},
		{"", false},
	}
	for _, tc := range cases {
		d, err := ParseDate(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q expected ok, got %v", tc.in, err)
			}
			if d.String() != "2025-01-31" && d.String() != "2025-06-01" {
				t.Fatalf("%q round-tripped to %q", tc.in, d.String())
			}
		} else if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", tc.in, err)
		}
	}
}

func TestValidateID(t *testing.T) {
	if err := ValidateID(NewID()); err != nil {
		t.Fatalf("fresh id should validate, got %v", err)
	}
	for _, bad := range []string{"", "123", "not-a-uuid", "d94e..00"} {
		if err := ValidateID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("%q expected ErrInvalidID, got %v", bad, err)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	good := Budget{Name: "Groceries", Amount: Money{Cents: 50000}, OwnerID: "user-1"}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Budget{
		{Name: "", Amount: Money{Cents: 1}, OwnerID: "u"},
		{Name: "  ", Amount: Money{Cents: 1}, OwnerID: "u"},
		{Name: "a", Amount: Money{Cents: 0}, OwnerID: "u"},
		{Name: "a", Amount: Money{Cents: 1}, OwnerID: ""},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		BudgetID: NewID(),
		Name:     "coffee",
		Amount:   Money{Cents: 350},
		Date:     NewDate(2025, 6, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{BudgetID: good.BudgetID, Name: "", Amount: Money{Cents: 1}, Date: good.Date},
		{BudgetID: good.BudgetID, Name: "a", Amount: Money{Cents: 0}, Date: good.Date},
		{BudgetID: good.BudgetID, Name: "a", Amount: Money{Cents: 1}, Date: Date{}},
		{BudgetID: "nope", Name: "a", Amount: Money{Cents: 1}, Date: good.Date},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
