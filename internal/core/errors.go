package core

import "errors"

// Domain error taxonomy. The HTTP layer maps these with errors.Is; nothing
// below this package should invent its own sentinel for the same condition.
var (
	// Not found: the entity simply does not exist.
	ErrBudgetNotFound  = errors.New("budget not found")
	ErrExpenseNotFound = errors.New("expense not found")

	// Forbidden: the entity exists but does not belong to the actor (or, for
	// an expense, to the budget named in the request).
	ErrBudgetForbidden  = errors.New("you do not have access to this budget")
	ErrExpenseForbidden = errors.New("you do not have access to this expense")

	// Invalid input: rejected before any store lookup.
	ErrInvalidID     = errors.New("invalid id format")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("date must be in YYYY-MM-DD format")
	ErrEmptyName     = errors.New("empty name")

	// Conflict is reserved for optimistic-concurrency detection. The
	// incremental aggregate strategy never raises it; a version column would
	// if the recalculate strategy were made the write path.
	ErrConflict = errors.New("conflicting concurrent modification")

	// ErrStorageFailure wraps transaction failures (connectivity, timeout,
	// constraint violations surfaced by the driver). The whole unit of work
	// has been rolled back; the caller may retry.
	ErrStorageFailure = errors.New("storage failure")
)
