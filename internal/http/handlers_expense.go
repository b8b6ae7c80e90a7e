package http

import (
	"errors"
	"net/http"
	"strings"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	var req createExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		respondError(w, err)
		return
	}

	in := services.CreateExpenseInput{
		Name:        sanitizeInput(req.Name),
		Amount:      amount,
		Date:        date,
		Description: sanitizeInput(req.Description),
	}

	e, err := s.expenses.Create(r.Context(), budget, in)
	if err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense created",
		applog.FieldExpenseID, e.ID, applog.FieldBudgetID, budget.ID, applog.FieldUserID, userID)

	respondJSON(w, http.StatusCreated, messageResponse{Message: "expense created"})
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	filter, err := parseExpenseFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}

	expenses, err := s.expenses.List(r.Context(), budget.ID, filter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, listResponse{Count: len(expenses), Data: toExpenseResponses(expenses)})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	expense, err := s.guard.ResolveExpense(r.Context(), r.PathValue("expenseID"), budget)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	expense, err := s.guard.ResolveExpense(r.Context(), r.PathValue("expenseID"), budget)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	var ch core.ExpenseChanges
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		ch.Name = &name
	}
	if req.Amount != nil {
		amount, err := parseAmountField(*req.Amount)
		if err != nil {
			respondError(w, err)
			return
		}
		ch.Amount = &amount
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			respondError(w, err)
			return
		}
		ch.Date = &date
	}
	if req.Description != nil {
		description := sanitizeInput(*req.Description)
		ch.Description = &description
	}

	if err := s.expenses.Update(r.Context(), budget, expense.ID, ch); err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)
	respondJSON(w, http.StatusOK, messageResponse{Message: "expense updated"})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	expense, err := s.guard.ResolveExpense(r.Context(), r.PathValue("expenseID"), budget)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.expenses.Delete(r.Context(), budget, expense.ID); err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Expense deleted",
		applog.FieldExpenseID, expense.ID, applog.FieldBudgetID, budget.ID, applog.FieldUserID, userID)

	respondJSON(w, http.StatusOK, messageResponse{Message: "expense deleted"})
}

// parseExpenseFilter reads the optional startDate, endDate, search and sort
// query parameters. Dates are inclusive bounds in YYYY-MM-DD form.
func parseExpenseFilter(r *http.Request) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("startDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.ExpenseFilter{}, err
		}
		f.StartDate = d
	}
	if v := strings.TrimSpace(q.Get("endDate")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return core.ExpenseFilter{}, err
		}
		f.EndDate = d
	}
	f.Search = sanitizeInput(q.Get("search"))

	switch strings.ToLower(strings.TrimSpace(q.Get("sort"))) {
	case "", "asc":
		f.Sort = core.SortAsc
	case "desc":
		f.Sort = core.SortDesc
	default:
		return core.ExpenseFilter{}, errors.New("sort must be asc or desc")
	}

	return f, nil
}
