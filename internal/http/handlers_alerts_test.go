package http

import (
	"net/http"
	"strings"
	"testing"
)

func TestAlertLifecycle(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/alerts", `{"type":"info","message":"fatura fechada","data":{"card":"nu"}}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created map[string]any
	decode(t, rr, &created)
	if created["read"].(bool) {
		t.Error("new alert should be unread")
	}
	if created["data"].(map[string]any)["card"].(string) != "nu" {
		t.Errorf("data=%v", created["data"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/alerts", `{"type":"info"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing message status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "type e message são obrigatórios") {
		t.Errorf("body=%q", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/alerts?id=1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("mark read status=%d body=%s", rr.Code, rr.Body.String())
	}
	var marked map[string]any
	decode(t, rr, &marked)
	if !marked["read"].(bool) {
		t.Error("alert should be read after PUT")
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/alerts?id=99", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown id status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Alerta não encontrado") {
		t.Errorf("body=%q", rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPut, "/api/alerts", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing id status=%d", rr.Code)
	}
}

func TestMarkAllAlertsRead(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	for _, msg := range []string{"um", "dois"} {
		rr := doJSON(t, srv, http.MethodPost, "/api/alerts", `{"type":"info","message":"`+msg+`"}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("create status=%d", rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodPut, "/api/alerts?all=true", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("mark all status=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/alerts", "")
	var alerts []map[string]any
	decode(t, rr, &alerts)
	for _, a := range alerts {
		if !a["read"].(bool) {
			t.Errorf("alert %v still unread", a["id"])
		}
	}
}

func TestNotifyEndpoint(t *testing.T) {
	srv := newTestServer(newMemStore(), "")

	rr := doJSON(t, srv, http.MethodPost, "/api/notify", `{"title":"Backup","message":"concluído","type":"success"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	var alert map[string]any
	decode(t, rr, &alert)
	if alert["type"].(string) != "success" {
		t.Errorf("type=%v", alert["type"])
	}
	if alert["message"].(string) != "Backup: concluído" {
		t.Errorf("message=%v", alert["message"])
	}

	// Unknown types quietly fold to info.
	rr = doJSON(t, srv, http.MethodPost, "/api/notify", `{"message":"oi","type":"urgentíssimo"}`)
	decode(t, rr, &alert)
	if alert["type"].(string) != "info" {
		t.Errorf("type=%v", alert["type"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/notify", `{"title":"Backup"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("missing message status=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "message é obrigatório") {
		t.Errorf("body=%q", rr.Body.String())
	}
}
