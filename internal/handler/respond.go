package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"vshare/internal/domain"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

type errorResponse struct {
	Msg string `json:"msg"`
}

// respondError отображает доменные ошибки в HTTP-статусы.
// Неопознанные ошибки не протекают наружу текстом.
func respondError(w http.ResponseWriter, err error) {
	var status int

	switch {
	case errors.Is(err, domain.ErrNameConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNameResolutionExhausted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidParent):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptySelection):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrExpired):
		status = http.StatusGone
	default:
		log.Printf("Internal error: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{Msg: "Server Error"})
		return
	}

	respondJSON(w, status, errorResponse{Msg: err.Error()})
}
