package http

import (
	"encoding/json"
	"net/http"

	"bolso/internal/core"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	rawMonth := r.URL.Query().Get("month")
	month, err := core.ResolveMonth(rawMonth)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	if s.writeCached(w, r, "summary:"+month.String()) {
		return
	}

	summary, err := s.insights.Summary(r.Context(), rawMonth)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	s.writeAndCache(w, r, "summary:"+month.String(), summary)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getInsights(w, r)
	case http.MethodPost:
		s.postInsight(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	rawMonth := r.URL.Query().Get("month")
	month, err := core.ResolveMonth(rawMonth)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	if s.writeCached(w, r, "insights:"+month.String()) {
		return
	}

	insights, err := s.insights.Insights(r.Context(), rawMonth)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	s.writeAndCache(w, r, "insights:"+month.String(), insights)
}

type insightRequest struct {
	Text  string `json:"text"`
	Month string `json:"month"`
}

// postInsight persists an externally generated insight text as an alert of
// type insight. The endpoint is meant for an AI pipeline, so it sits behind
// the API key.
func (s *Server) postInsight(w http.ResponseWriter, r *http.Request) {
	if !s.requireAPIKey(w, r) {
		return
	}

	var req insightRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeJSONError(w, http.StatusBadRequest, "text é obrigatório")
		return
	}

	month, err := core.ResolveMonth(req.Month)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}

	alert, err := s.alerts.CreateInsight(r.Context(), req.Text, month)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

// writeCached serves a response from the cache, reporting whether it hit.
func (s *Server) writeCached(w http.ResponseWriter, r *http.Request, key string) bool {
	if s.cache == nil {
		return false
	}
	data, ok := s.cache.Get(r.Context(), key)
	if !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return true
}

// writeAndCache renders the body and stores the bytes under key for the
// next request of the same month.
func (s *Server) writeAndCache(w http.ResponseWriter, r *http.Request, key string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if s.cache != nil {
		s.cache.Set(r.Context(), key, data)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
