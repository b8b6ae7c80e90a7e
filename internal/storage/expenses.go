package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gastos/internal/core"
)

const expenseColumns = "id, budget_id, name, amount_cents, date, description, created_at, updated_at"

func scanExpenseRow(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e                    core.Expense
		date                 string
		description          sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&e.ID, &e.BudgetID, &e.Name, &e.Amount.Cents,
		&date, &description, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	d, err := core.ParseDate(date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("stored date %q: %w", date, err)
	}
	e.Date = d
	e.Description = description.String
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return e, nil
}

func (q *Queries) InsertExpense(ctx context.Context, e core.Expense) error {
	now := formatTime(time.Now())
	_, err := q.db.ExecContext(ctx, `INSERT INTO expenses
		(id, budget_id, name, amount_cents, date, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BudgetID, e.Name, e.Amount.Cents, e.Date.String(),
		nullIfEmpty(e.Description), now, now)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (q *Queries) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanExpenseRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// ListExpenses returns a budget's expenses, optionally narrowed by an
// inclusive date range and a case-insensitive substring search over name and
// description. Primary order is by date (ascending unless the filter says
// otherwise); creation time descending breaks ties so the order is
// deterministic.
func (q *Queries) ListExpenses(ctx context.Context, budgetID string, f core.ExpenseFilter) ([]core.Expense, error) {
	where := []string{"budget_id = ?"}
	args := []any{budgetID}

	if !f.StartDate.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsZero() {
		where = append(where, "date <= ?")
		args = append(args, f.EndDate.String())
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(IFNULL(description, '')) LIKE ?)")
		pattern := "%" + strings.ToLower(s) + "%"
		args = append(args, pattern, pattern)
	}

	order := "ASC"
	if f.Sort == core.SortDesc {
		order = "DESC"
	}

	query := "SELECT " + expenseColumns + " FROM expenses WHERE " +
		strings.Join(where, " AND ") +
		" ORDER BY date " + order + ", created_at DESC"

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (q *Queries) UpdateExpense(ctx context.Context, id string, ch core.ExpenseChanges) error {
	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if ch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *ch.Name)
	}
	if ch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, ch.Amount.Cents)
	}
	if ch.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, ch.Date.String())
	}
	if ch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfEmpty(*ch.Description))
	}
	if len(sets) == 0 {
		_, err := q.GetExpense(ctx, id)
		return err
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	res, err := q.db.ExecContext(ctx,
		"UPDATE expenses SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res, core.ErrExpenseNotFound)
}

func (q *Queries) DeleteExpense(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res, core.ErrExpenseNotFound)
}
