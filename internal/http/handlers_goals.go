package http

import (
	"errors"
	"net/http"

	"bolso/internal/core"
	"bolso/internal/services"
	"bolso/internal/storage"
)

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listGoals(w, r)
	case http.MethodPost:
		s.upsertGoal(w, r)
	case http.MethodPut:
		s.updateGoal(w, r)
	case http.MethodDelete:
		s.deleteGoal(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (s *Server) listGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.goals.List(r.Context())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

type goalRequest struct {
	Category     core.Category `json:"category"`
	MonthlyLimit core.Money    `json:"monthly_limit"`
}

func (s *Server) upsertGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	goal, err := s.goals.Upsert(r.Context(), req.Category, req.MonthlyLimit)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) updateGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var u services.GoalUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	goal, err := s.goals.Update(r.Context(), id, u)
	if err != nil {
		writeErr(w, r, err, "Meta não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) deleteGoal(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := s.goals.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err, "Meta não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

func (s *Server) handleBudget(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getBudget(w, r)
	case http.MethodPost:
		s.upsertBudget(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	month, err := core.ResolveMonth(r.URL.Query().Get("month"))
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	budget, err := s.goals.Budget(r.Context(), month)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// No cap set for the month is not an error for the client.
			writeJSON(w, http.StatusOK, map[string]any{"month": month, "total_limit": nil})
			return
		}
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

type budgetRequest struct {
	Month      core.Month `json:"month"`
	TotalLimit core.Money `json:"total_limit"`
}

func (s *Server) upsertBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	budget, err := s.goals.UpsertBudget(r.Context(), req.Month, req.TotalLimit)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, budget)
}
