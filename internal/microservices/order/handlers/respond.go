package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"restaurant-system/internal/domain"
	kitchen "restaurant-system/internal/microservices/kitchen/service"
	"restaurant-system/internal/microservices/order/repository"
	"restaurant-system/internal/microservices/order/service"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem writes an RFC 7807 style error body.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrNotReady):
		writeProblem(w, http.StatusServiceUnavailable, "not_ready", err.Error())
	case errors.Is(err, service.ErrUnknownTable):
		writeProblem(w, http.StatusNotFound, "unknown_table", err.Error())
	case errors.Is(err, repository.ErrOrderNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, domain.ErrIllegalTransition):
		writeProblem(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, service.ErrUnknownMenuItem),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidItem),
		errors.Is(err, kitchen.ErrUnknownAction):
		writeProblem(w, http.StatusUnprocessableEntity, "invalid_request", err.Error())
	default:
		writeProblem(w, http.StatusInternalServerError, "store_error", err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_json", err.Error())
		return false
	}
	return true
}

func tableParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_table_id", "table id must be a number")
		return 0, false
	}
	return id, true
}
