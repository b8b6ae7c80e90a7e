package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SortOrder selects expense-list ordering on the date column.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Date is a calendar date without a time component. It marshals to and from
// YYYY-MM-DD and is stored that way.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Budget is a named spending ceiling owned by a user. Spent is a derived
// cache of the sum of the budget's expense amounts; it is never settable by a
// client and is mutated only through the aggregate maintainer.
type Budget struct {
	ID          string
	Name        string
	Amount      Money
	Spent       Money
	OwnerID     string
	Category    string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time

	// Expenses is populated by detailed queries only; light list reads leave
	// it nil.
	Expenses []Expense
}

// Expense is a dated monetary entry belonging to exactly one budget.
type Expense struct {
	ID          string
	BudgetID    string
	Name        string
	Amount      Money
	Date        Date
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const maxNameLen = 200

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if len(b.Name) > maxNameLen {
		return errors.New("name too long (max 200 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.OwnerID == "" {
		return ErrBudgetForbidden
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if len(e.Name) > maxNameLen {
		return errors.New("name too long (max 200 characters)")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := ValidateID(e.BudgetID); err != nil {
		return err
	}
	return nil
}

// ValidateID rejects identifiers that are not well-formed UUIDs, before any
// store lookup happens.
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// NewID mints an identifier for a freshly created entity.
func NewID() string {
	return uuid.NewString()
}

// BudgetChanges carries the settable fields of a budget update. Nil means
// leave untouched. Spent has no slot here on purpose.
type BudgetChanges struct {
	Name        *string
	Amount      *Money
	Category    *string
	Description *string
}

// ExpenseChanges carries the settable fields of an expense update.
type ExpenseChanges struct {
	Name        *string
	Amount      *Money
	Date        *Date
	Description *string
}

// ExpenseFilter narrows an expense listing. Zero-value dates mean unbounded;
// both bounds are inclusive. Search matches case-insensitively against name
// and description. Sort defaults to ascending by date.
type ExpenseFilter struct {
	StartDate Date
	EndDate   Date
	Search    string
	Sort      SortOrder
}
