package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, reader)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func doJSONWithKey(t *testing.T, srv *Server, method, target, body, key string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("X-API-Key", key)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","category":"alimentacao","description":"mercado","amount":123.45,"date":"2024-03-10","tags":["mercado"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}

	var created map[string]any
	decode(t, rr, &created)
	if created["id"].(float64) != 1 {
		t.Errorf("id=%v", created["id"])
	}
	if created["amount"].(float64) != 123.45 {
		t.Errorf("amount=%v", created["amount"])
	}
	if created["member"].(string) != "Eu" {
		t.Errorf("member=%v", created["member"])
	}
	if created["is_recurring"].(bool) {
		t.Error("expected one-off entry")
	}
	if created["recurrence"] != nil {
		t.Errorf("recurrence=%v", created["recurrence"])
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?id=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions", "")
	var list []map[string]any
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Fatalf("list len=%d", len(list))
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/transactions?id=1", `{"description":"feira"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}
	var updated map[string]any
	decode(t, rr, &updated)
	if updated["description"].(string) != "feira" {
		t.Errorf("description=%v", updated["description"])
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions?id=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status=%d", rr.Code)
	}
	var deleted map[string]any
	decode(t, rr, &deleted)
	if deleted["deleted"] != true || deleted["id"].(float64) != 1 {
		t.Errorf("delete body=%v", deleted)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?id=1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get after delete status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Transação não encontrada") {
		t.Errorf("body=%q", rr.Body.String())
	}
}

func TestTransactionValidationErrors(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	cases := []struct {
		name, body, wantErr string
	}{
		{"bad type", `{"type":"loan","category":"outros","amount":10,"date":"2024-03-10"}`, "type deve ser"},
		{"bad category", `{"type":"expense","category":"viagens","amount":10,"date":"2024-03-10"}`, "category deve ser"},
		{"bad amount", `{"type":"expense","category":"outros","amount":-5,"date":"2024-03-10"}`, "amount deve ser um número positivo"},
		{"bad date", `{"type":"expense","category":"outros","amount":10,"date":"10/03/2024"}`, "date deve ser YYYY-MM-DD"},
		{"not json", `{"type":`, "JSON inválido"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/api/transactions", tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
			}
			if !strings.Contains(rr.Body.String(), tc.wantErr) {
				t.Errorf("body=%q, want %q", rr.Body.String(), tc.wantErr)
			}
		})
	}
}

func TestExpenseTriggersGoalAlert(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, "")

	rr := doJSON(t, srv, http.MethodPost, "/api/goals", `{"category":"lazer","monthly_limit":100}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("goal status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","category":"lazer","description":"cinema","amount":85,"date":"2024-03-10"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expense status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/alerts", "")
	var alerts []map[string]any
	decode(t, rr, &alerts)
	if len(alerts) != 1 {
		t.Fatalf("alerts len=%d", len(alerts))
	}
	if alerts[0]["type"].(string) != "warning" {
		t.Errorf("type=%v", alerts[0]["type"])
	}
	if !strings.Contains(alerts[0]["message"].(string), "85%") {
		t.Errorf("message=%v", alerts[0]["message"])
	}
}

func TestImportEndpoint(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	body := `{"transactions":[
		{"type":"expense","category":"alimentacao","amount":"10,50","date":"2024-03-01"},
		{"type":"expense","category":"alimentacao","amount":"zero","date":"2024-03-02"},
		{"type":"titulo","category":"cripto","amount":5,"date":"2024-03-03"}
	]}`
	rr := doJSON(t, srv, http.MethodPost, "/api/import", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var result struct {
		Imported int `json:"imported"`
		Errors   []struct {
			Index int    `json:"index"`
			Error string `json:"error"`
		} `json:"errors"`
		Transactions []map[string]any `json:"transactions"`
	}
	decode(t, rr, &result)
	if result.Imported != 2 {
		t.Errorf("imported=%d", result.Imported)
	}
	if len(result.Errors) != 1 || result.Errors[0].Index != 1 {
		t.Fatalf("errors=%+v", result.Errors)
	}
	// Unknown type and category fall back instead of failing the row.
	last := result.Transactions[len(result.Transactions)-1]
	if last["type"].(string) != "expense" || last["category"].(string) != "outros" {
		t.Errorf("fallback row=%v", last)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/import", `{"transactions":[]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty import status=%d", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/transactions",
		`{"type":"expense","category":"alimentacao","description":"mercado","amount":123.45,"date":"2024-03-10","tags":["mercado","semana"]}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/export?format=csv&month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d body=%s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "transacoes_2024-03.csv") {
		t.Errorf("disposition=%q", got)
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "\uFEFF") {
		t.Error("missing UTF-8 BOM")
	}
	if !strings.Contains(body, "ID,Tipo,Categoria") {
		t.Errorf("missing header in %q", body)
	}
	if !strings.Contains(body, "mercado;semana") {
		t.Errorf("missing joined tags in %q", body)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/export?month=2024-03", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("json export status=%d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "transacoes_2024-03.json") {
		t.Errorf("disposition=%q", got)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/export?month=2024-3", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad month status=%d", rr.Code)
	}
}

func TestListTransactionsByMonth(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	for i, date := range []string{"2024-03-10", "2024-04-02"} {
		body := fmt.Sprintf(`{"type":"expense","category":"outros","amount":10,"date":%q,"description":"n%d"}`, date, i)
		if rr := doJSON(t, srv, http.MethodPost, "/api/transactions", body); rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/transactions?month=2024-03", "")
	var list []map[string]any
	decode(t, rr, &list)
	if len(list) != 1 {
		t.Fatalf("filtered len=%d", len(list))
	}
	if list[0]["date"].(string) != "2024-03-10" {
		t.Errorf("date=%v", list[0]["date"])
	}
}
