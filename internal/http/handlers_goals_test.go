package http

import (
	"net/http"
	"strings"
	"testing"
)

func TestGoalLifecycle(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/goals", `{"category":"alimentacao","monthly_limit":500}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var goal map[string]any
	decode(t, rr, &goal)
	if goal["category"].(string) != "alimentacao" || goal["monthly_limit"].(float64) != 500 {
		t.Errorf("goal=%v", goal)
	}

	// Posting the same category again replaces the limit.
	rr = doJSON(t, srv, http.MethodPost, "/api/goals", `{"category":"alimentacao","monthly_limit":600}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("upsert status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/goals", "")
	var goals []map[string]any
	decode(t, rr, &goals)
	if len(goals) != 1 {
		t.Fatalf("goals len=%d", len(goals))
	}
	if goals[0]["monthly_limit"].(float64) != 600 {
		t.Errorf("limit=%v", goals[0]["monthly_limit"])
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/goals?id=1", `{"monthly_limit":700}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/goals", `{"monthly_limit":700}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("update without id status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/goals?id=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/goals?id=1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Meta não encontrada") {
		t.Errorf("body=%q", rr.Body.String())
	}
}

func TestGoalValidation(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/goals", `{"category":"cripto","monthly_limit":500}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad category status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "category deve ser") {
		t.Errorf("body=%q", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/goals", `{"category":"lazer"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing limit status=%d", rr.Code)
	}
}

func TestBudgetEndpoint(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	// No cap set yet: an empty value, not a 404.
	rr := doJSON(t, srv, http.MethodGet, "/api/budget?month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unset status=%d", rr.Code)
	}
	var unset struct {
		Month      string   `json:"month"`
		TotalLimit *float64 `json:"total_limit"`
	}
	decode(t, rr, &unset)
	if unset.Month != "2024-03" || unset.TotalLimit != nil {
		t.Errorf("unset=%+v", unset)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/budget", `{"month":"2024-03","total_limit":4000}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget?month=2024-03", "")
	var budget map[string]any
	decode(t, rr, &budget)
	if budget["total_limit"].(float64) != 4000 {
		t.Errorf("budget=%v", budget)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/budget?month=2024", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "month deve ser YYYY-MM") {
		t.Errorf("body=%q", rr.Body.String())
	}
}
