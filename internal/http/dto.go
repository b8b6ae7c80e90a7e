package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gastos/internal/core"
	"gastos/internal/services"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// Request bodies. Amounts arrive as JSON numbers; decoding them through
// json.Number keeps the literal digits so cents parsing never goes through a
// float.
type createBudgetRequest struct {
	Name        string      `json:"name"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
}

type updateBudgetRequest struct {
	Name        *string      `json:"name"`
	Amount      *json.Number `json:"amount"`
	Category    *string      `json:"category"`
	Description *string      `json:"description"`
}

type createExpenseRequest struct {
	Name        string      `json:"name"`
	Amount      json.Number `json:"amount"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
}

type updateExpenseRequest struct {
	Name        *string      `json:"name"`
	Amount      *json.Number `json:"amount"`
	Date        *string      `json:"date"`
	Description *string      `json:"description"`
}

// budgetResponse is the light shape: no expenses, no owner.
type budgetResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Amount      float64   `json:"amount"`
	Spent       float64   `json:"spent"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// budgetWithExpensesResponse is the detail shape; expenses is always present,
// empty when the budget has none.
type budgetWithExpensesResponse struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Amount      float64           `json:"amount"`
	Spent       float64           `json:"spent"`
	Category    string            `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Expenses    []expenseResponse `json:"expenses"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

type expenseResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Amount      float64   `json:"amount"`
	Date        string    `json:"date"`
	Description string    `json:"description,omitempty"`
	BudgetID    string    `json:"budgetId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// listResponse is the count+data envelope shared by the list endpoints.
type listResponse struct {
	Count int `json:"count"`
	Data  any `json:"data"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func amountOut(m core.Money) float64 {
	return float64(m.Cents) / 100
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:          b.ID,
		Name:        b.Name,
		Amount:      amountOut(b.Amount),
		Spent:       amountOut(b.Spent),
		Category:    b.Category,
		Description: b.Description,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toBudgetWithExpensesResponse(b core.Budget) budgetWithExpensesResponse {
	return budgetWithExpensesResponse{
		ID:          b.ID,
		Name:        b.Name,
		Amount:      amountOut(b.Amount),
		Spent:       amountOut(b.Spent),
		Category:    b.Category,
		Description: b.Description,
		Expenses:    toExpenseResponses(b.Expenses),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:          e.ID,
		Name:        e.Name,
		Amount:      amountOut(e.Amount),
		Date:        e.Date.String(),
		Description: e.Description,
		BudgetID:    e.BudgetID,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	return out
}

func toBudgetListResponse(list services.BudgetList) listResponse {
	items := make([]budgetResponse, 0, len(list.Items))
	for _, b := range list.Items {
		items = append(items, toBudgetResponse(b))
	}
	return listResponse{Count: list.Count, Data: items}
}

func toBudgetWithExpensesListResponse(list services.BudgetList) listResponse {
	items := make([]budgetWithExpensesResponse, 0, len(list.Items))
	for _, b := range list.Items {
		items = append(items, toBudgetWithExpensesResponse(b))
	}
	return listResponse{Count: list.Count, Data: items}
}

// decodeJSON reads a request body into dst, rejecting unknown fields and
// oversized payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps domain errors onto HTTP statuses. Unrecognized errors are
// reported as opaque 500s so storage details never leak to clients.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidID),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrEmptyName):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrBudgetNotFound),
		errors.Is(err, core.ErrExpenseNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrBudgetForbidden),
		errors.Is(err, core.ErrExpenseForbidden):
		respondJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrConflict):
		respondJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrStorageFailure):
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
}

func parseAmountField(n json.Number) (core.Money, error) {
	return core.ParseAmount(n.String())
}
