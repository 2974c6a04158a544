package http

import (
	"encoding/json"
	"net/http"

	"bolso/internal/core"
)

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listAlerts(w, r)
	case http.MethodPost:
		s.createAlert(w, r)
	case http.MethodPut:
		s.markAlertRead(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT")
	}
}

func (s *Server) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.alerts.List(r.Context())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if alerts == nil {
		alerts = []core.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

type alertRequest struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (s *Server) createAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Type == "" || req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "type e message são obrigatórios")
		return
	}
	alert, err := s.alerts.Create(r.Context(), req.Type, req.Message, req.Data)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

// markAlertRead flags one alert read and returns the updated row. With
// ?all=true and no id it flags every unread alert instead.
func (s *Server) markAlertRead(w http.ResponseWriter, r *http.Request) {
	id, present, ok := queryID(r)
	if !present {
		if r.URL.Query().Get("all") == "true" {
			if err := s.alerts.MarkAllRead(r.Context()); err != nil {
				writeErr(w, r, err, "")
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"updated": true})
			return
		}
		writeJSONError(w, http.StatusBadRequest, core.ErrMissingID.Error())
		return
	}
	if !ok {
		writeJSONError(w, http.StatusBadRequest, core.ErrMissingID.Error())
		return
	}

	alert, err := s.alerts.MarkRead(r.Context(), id)
	if err != nil {
		writeErr(w, r, err, "Alerta não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

type notifyRequest struct {
	Title   string          `json:"title"`
	Message string          `json:"message"`
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
}

// handleNotify lets external automations push alerts into the feed. The
// API key keeps it from being an open spam endpoint.
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	if !s.requireAPIKey(w, r) {
		return
	}

	var req notifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	alert, err := s.alerts.Notify(r.Context(), req.Title, req.Message, req.Type, req.Data)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}
