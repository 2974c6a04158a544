package http

import (
	"net/http"

	"bolso/internal/core"
	"bolso/internal/services"
)

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listOrGetAccount(w, r)
	case http.MethodPost:
		s.createAccount(w, r)
	case http.MethodPut:
		s.updateAccount(w, r)
	case http.MethodDelete:
		s.deleteAccount(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (s *Server) listOrGetAccount(w http.ResponseWriter, r *http.Request) {
	id, present, ok := queryID(r)
	if present {
		if !ok {
			writeJSONError(w, http.StatusNotFound, "Conta não encontrada")
			return
		}
		account, err := s.accounts.Get(r.Context(), id)
		if err != nil {
			writeErr(w, r, err, "Conta não encontrada")
			return
		}
		writeJSON(w, http.StatusOK, account)
		return
	}

	accounts, err := s.accounts.List(r.Context())
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	if accounts == nil {
		accounts = []core.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

type accountRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := s.accounts.Create(r.Context(), core.Account{
		Name:  req.Name,
		Icon:  req.Icon,
		Color: req.Color,
	})
	if err != nil {
		writeErr(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	var u services.AccountUpdate
	if !decodeBody(w, r, &u) {
		return
	}
	account, err := s.accounts.Update(r.Context(), id, u)
	if err != nil {
		writeErr(w, r, err, "Conta não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// deleteAccount removes the account only; transactions keep their
// account_id and simply stop resolving a name for it.
func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := requireID(w, r)
	if !ok {
		return
	}
	if err := s.accounts.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err, "Conta não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true, "id": id})
}
