package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vshare/internal/domain"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrNameConflict, http.StatusConflict},
		{domain.ErrNameResolutionExhausted, http.StatusConflict},
		{domain.ErrInvalidParent, http.StatusBadRequest},
		{domain.ErrEmptySelection, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrExpired, http.StatusGone},
		{errors.New("pq: connection lost"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		rec := httptest.NewRecorder()
		respondError(rec, c.err)
		if rec.Code != c.status {
			t.Errorf("%v: got status %d, want %d", c.err, rec.Code, c.status)
		}
	}
}

func TestRespondErrorWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, fmt.Errorf("failed to create folder: %w", domain.ErrNameConflict))
	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestRespondErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	respondError(rec, errors.New("pq: password authentication failed"))

	var resp errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if strings.Contains(resp.Msg, "password") {
		t.Errorf("internal detail leaked: %q", resp.Msg)
	}
}

func TestParseOptionalUUID(t *testing.T) {
	if id, err := parseOptionalUUID(""); err != nil || id != nil {
		t.Errorf("empty: got (%v, %v)", id, err)
	}
	if id, err := parseOptionalUUID("null"); err != nil || id != nil {
		t.Errorf("null: got (%v, %v)", id, err)
	}
	if id, err := parseOptionalUUID("2f9c0b5e-92a4-4a0b-9a83-70a1a5f1e001"); err != nil || id == nil {
		t.Errorf("valid: got (%v, %v)", id, err)
	}
	if _, err := parseOptionalUUID("not-a-uuid"); err == nil {
		t.Error("expected error for malformed uuid")
	}
}
