package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"bolso/internal/core"
	"bolso/internal/services"
	"bolso/internal/storage"
)

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listOrGetTransaction(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodPut:
		s.updateTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (s *Server) listOrGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, present, ok := queryID(r)
	if present {
		if !ok {
			writeErr(w, r, storage.ErrNotFound, "Transação não encontrada")
			return
		}
		row, err := s.transactions.Get(r.Context(), id)
		if err != nil {
			writeErr(w, r, err, "Transação não encontrada")
			return
		}
		writeJSON(w, http.StatusOK, row)
		return
	}

	q := r.URL.Query()
	filter := storage.TransactionFilter{
		Type:      q.Get("type"),
		Category:  q.Get("category"),
		Month:     q.Get("month"),
		From:      q.Get("from"),
		To:        q.Get("to"),
		Search:    q.Get("search"),
		Member:    q.Get("member"),
		Tag:       q.Get("tag"),
		AccountID: q.Get("account_id"),
		Sort:      q.Get("sort"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	rows, err := s.transactions.List(r.Context(), filter)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if rows == nil {
		rows = []storage.TransactionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var in services.TransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	row, err := s.transactions.Create(r.Context(), in)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	s.invalidateCache(r)
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var u services.TransactionUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	row, err := s.transactions.Update(r.Context(), id, u)
	if err != nil {
		writeErr(w, r, err, "Transação não encontrada")
		return
	}
	s.invalidateCache(r)
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := s.transactions.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err, "Transação não encontrada")
		return
	}
	s.invalidateCache(r)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}

type importRequest struct {
	Transactions []json.RawMessage `json:"transactions"`
	AccountID    *int64            `json:"account_id"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}
	result, err := s.transactions.Import(r.Context(), req.Transactions, req.AccountID)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	s.invalidateCache(r)
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	q := r.URL.Query()
	month := q.Get("month")
	if month != "" {
		if err := core.Month(month).Validate(); err != nil {
			writeErr(w, r, err, "")
			return
		}
	}

	rows, err := s.transactions.Export(r.Context(), month)
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if rows == nil {
		rows = []storage.TransactionRow{}
	}

	if q.Get("format") == "csv" {
		filename := services.ExportFilename(month, "csv")
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
		if err := services.WriteCSV(w, rows); err != nil {
			writeErr(w, r, err, "")
		}
		return
	}

	filename := services.ExportFilename(month, "json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	writeJSON(w, http.StatusOK, rows)
}

// invalidateCache drops every cached summary and insight after a write.
func (s *Server) invalidateCache(r *http.Request) {
	if s.cache != nil {
		s.cache.Flush(r.Context())
	}
}
