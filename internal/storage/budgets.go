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

const budgetColumns = "id, name, amount_cents, spent_cents, owner_id, category, description, created_at, updated_at"

func scanBudget(row interface{ Scan(...any) error }) (core.Budget, error) {
	var (
		b                     core.Budget
		category, description sql.NullString
		createdAt, updatedAt  string
	)
	err := row.Scan(&b.ID, &b.Name, &b.Amount.Cents, &b.Spent.Cents, &b.OwnerID,
		&category, &description, &createdAt, &updatedAt)
	if err != nil {
		return core.Budget{}, err
	}
	b.Category = category.String
	b.Description = description.String
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

func (q *Queries) InsertBudget(ctx context.Context, b core.Budget) error {
	now := formatTime(time.Now())
	_, err := q.db.ExecContext(ctx, `INSERT INTO budgets
		(id, name, amount_cents, spent_cents, owner_id, category, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Amount.Cents, b.Spent.Cents, b.OwnerID,
		nullIfEmpty(b.Category), nullIfEmpty(b.Description), now, now)
	if err != nil {
		return fmt.Errorf("insert budget: %w", err)
	}
	return nil
}

func (q *Queries) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT "+budgetColumns+" FROM budgets WHERE id = ?", id)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (q *Queries) GetBudgetWithExpenses(ctx context.Context, id string) (core.Budget, error) {
	b, err := q.GetBudget(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	expenses, err := q.ListExpenses(ctx, id, core.ExpenseFilter{})
	if err != nil {
		return core.Budget{}, err
	}
	b.Expenses = expenses
	return b, nil
}

// ListBudgetsLight returns the owner's budgets newest first, without their
// expense collections. Only the list-view columns are read; OwnerID is filled
// from the argument.
func (q *Queries) ListBudgetsLight(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT
		id, name, amount_cents, spent_cents, category, description, created_at, updated_at
		FROM budgets WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var budgets []core.Budget
	for rows.Next() {
		var (
			b                     core.Budget
			category, description sql.NullString
			createdAt, updatedAt  string
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.Amount.Cents, &b.Spent.Cents,
			&category, &description, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.OwnerID = ownerID
		b.Category = category.String
		b.Description = description.String
		b.CreatedAt = parseTime(createdAt)
		b.UpdatedAt = parseTime(updatedAt)
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// ListBudgetsWithExpenses returns the owner's budgets newest first, each with
// its full expense collection. Expenses are fetched in one pass and grouped
// in memory.
func (q *Queries) ListBudgetsWithExpenses(ctx context.Context, ownerID string) ([]core.Budget, error) {
	budgets, err := q.ListBudgetsLight(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return budgets, nil
	}

	rows, err := q.db.QueryContext(ctx, `SELECT
		id, budget_id, name, amount_cents, date, description, created_at, updated_at
		FROM expenses
		WHERE budget_id IN (SELECT id FROM budgets WHERE owner_id = ?)
		ORDER BY date ASC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses for budgets: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byBudget := make(map[string][]core.Expense)
	for rows.Next() {
		e, err := scanExpenseRow(rows)
		if err != nil {
			return nil, err
		}
		byBudget[e.BudgetID] = append(byBudget[e.BudgetID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range budgets {
		if expenses, ok := byBudget[budgets[i].ID]; ok {
			budgets[i].Expenses = expenses
		} else {
			budgets[i].Expenses = []core.Expense{}
		}
	}
	return budgets, nil
}

func (q *Queries) UpdateBudget(ctx context.Context, id string, ch core.BudgetChanges) error {
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
	if ch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, nullIfEmpty(*ch.Category))
	}
	if ch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, nullIfEmpty(*ch.Description))
	}
	if len(sets) == 0 {
		// Nothing to change; still confirm the row exists.
		_, err := q.GetBudget(ctx, id)
		return err
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, formatTime(time.Now()), id)

	res, err := q.db.ExecContext(ctx,
		"UPDATE budgets SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRow(res, core.ErrBudgetNotFound)
}

// DeleteBudget removes the budget; the foreign key cascade removes its
// expenses in the same statement.
func (q *Queries) DeleteBudget(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRow(res, core.ErrBudgetNotFound)
}

// AddToSpent applies the delta in a single statement; the row lock taken by
// the UPDATE is what serializes concurrent adjustments to the same budget.
func (q *Queries) AddToSpent(ctx context.Context, budgetID string, deltaCents int64) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE budgets SET spent_cents = spent_cents + ?, updated_at = ? WHERE id = ?",
		deltaCents, formatTime(time.Now()), budgetID)
	if err != nil {
		return fmt.Errorf("adjust spent: %w", err)
	}
	return requireRow(res, core.ErrBudgetNotFound)
}

func (q *Queries) RecalculateSpent(ctx context.Context, budgetID string) error {
	res, err := q.db.ExecContext(ctx, `UPDATE budgets SET
		spent_cents = (SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE budget_id = ?),
		updated_at = ?
		WHERE id = ?`,
		budgetID, formatTime(time.Now()), budgetID)
	if err != nil {
		return fmt.Errorf("recalculate spent: %w", err)
	}
	return requireRow(res, core.ErrBudgetNotFound)
}

func (q *Queries) SumExpenses(ctx context.Context, budgetID string) (int64, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE budget_id = ?",
		budgetID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum expenses: %w", err)
	}
	return sum, nil
}

func (q *Queries) ListBudgetIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT id FROM budgets ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list budget ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
