package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"bolso/internal/core"
	"bolso/internal/log"
	"bolso/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps a service error onto the wire: validation problems surface
// with their own reason as a 400, a missing row becomes a 404 with the
// resource-specific message, everything else is a 500 that never leaks the
// cause to the client.
func writeErr(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	if core.IsValidation(err) {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	writeJSONError(w, http.StatusInternalServerError, "Erro interno do servidor")
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	writeJSONError(w, http.StatusMethodNotAllowed, "Método não permitido")
}

// queryID parses the optional ?id= query parameter. ok is false when the
// parameter is present but not a number.
func queryID(r *http.Request) (id int64, present, ok bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		return 0, false, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, false
	}
	return id, true, true
}

// requireID is queryID for endpoints where the id is mandatory; it writes
// the 400 itself when the id is missing or malformed.
func requireID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, present, ok := queryID(r)
	if !present || !ok {
		writeJSONError(w, http.StatusBadRequest, core.ErrMissingID.Error())
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// Field-level unmarshal errors (a non-positive amount, for one)
		// carry their own reason.
		if core.IsValidation(err) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return false
		}
		writeJSONError(w, http.StatusBadRequest, "JSON inválido")
		return false
	}
	return true
}
