package http

import (
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/services"
)

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	var req createBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	amount, err := parseAmountField(req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}

	in := services.CreateBudgetInput{
		Name:        sanitizeInput(req.Name),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}

	b, err := s.budgets.Create(r.Context(), userID, in)
	if err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget created",
		applog.FieldBudgetID, b.ID, applog.FieldUserID, userID)

	respondJSON(w, http.StatusCreated, messageResponse{Message: "budget created"})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	if list, hit := s.listCache.Get(userID); hit {
		respondJSON(w, http.StatusOK, toBudgetListResponse(list))
		return
	}

	list, err := s.budgets.ListLight(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Set(userID, list)
	respondJSON(w, http.StatusOK, toBudgetListResponse(list))
}

func (s *Server) handleListBudgetsWithExpenses(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	list, err := s.budgets.ListWithExpenses(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toBudgetWithExpensesListResponse(list))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	full, err := s.budgets.GetWithExpenses(r.Context(), budget.ID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, toBudgetWithExpensesResponse(full))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	var req updateBudgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	var ch core.BudgetChanges
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
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		ch.Category = &category
	}
	if req.Description != nil {
		description := sanitizeInput(*req.Description)
		ch.Description = &description
	}

	if err := s.budgets.Update(r.Context(), budget.ID, ch); err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)
	respondJSON(w, http.StatusOK, messageResponse{Message: "budget updated"})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.identify(w, r)
	if !ok {
		return
	}

	budget, err := s.guard.ResolveBudget(r.Context(), r.PathValue("budgetID"), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	if err := s.budgets.Delete(r.Context(), budget.ID); err != nil {
		respondError(w, err)
		return
	}

	s.listCache.Delete(userID)

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget deleted",
		applog.FieldBudgetID, budget.ID, applog.FieldUserID, userID)

	respondJSON(w, http.StatusOK, messageResponse{Message: "budget deleted"})
}
