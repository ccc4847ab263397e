package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"refurb-cloud/internal/auth"
	diagnostics "refurb-cloud/internal/diagnostics/domain"
	registry "refurb-cloud/internal/registry/domain"
)

func TestUploadErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{diagnostics.ErrMalformedPayload, http.StatusBadRequest},
		{diagnostics.ErrMissingSections, http.StatusUnprocessableEntity},
		{registry.ErrNotFound, http.StatusNotFound},
		{auth.ErrCompanyMismatch, http.StatusForbidden},
		{auth.ErrUnauthorized, http.StatusUnauthorized},
		{diagnostics.ErrReportExists, http.StatusConflict},
		{registry.ErrInvalidTransition, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("decode: %w", diagnostics.ErrMissingSections), http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		if got, _ := uploadErrorStatus(c.err); got != c.want {
			t.Fatalf("uploadErrorStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestNewUploadHandler_NilService(t *testing.T) {
	if _, err := NewUploadHandler(nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}
