package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	inspectionapp "refurb-cloud/internal/inspection/application"
	registryapp "refurb-cloud/internal/registry/application"
	"refurb-cloud/internal/registry/infrastructure/memory"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	devices, err := registryapp.NewService(memory.NewDeviceRepository(), eventing.NewInMemoryBus())
	if err != nil {
		t.Fatalf("registry service: %v", err)
	}
	if _, err := devices.Create(context.Background(), "company-1", registryapp.CreateInput{
		AssetID:      "DEV-100",
		SerialNumber: "SN-100",
		Model:        "ThinkPad T14",
	}); err != nil {
		t.Fatalf("create device: %v", err)
	}
	service, err := inspectionapp.NewService(devices)
	if err != nil {
		t.Fatalf("inspection service: %v", err)
	}
	handler, err := NewHandler(service)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler
}

func post(t *testing.T, handler *Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), "company-1", auth.RoleTechnician, "inspector"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_FullInspectionFlow(t *testing.T) {
	handler := newTestHandler(t)

	rec := post(t, handler, "/api/v1/inspections/DEV-100/physical/start", `{"location":"bench-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d %s", rec.Code, rec.Body.String())
	}
	rec = post(t, handler, "/api/v1/inspections/DEV-100/physical", `{"notes":"minor scratches"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("physical: %d %s", rec.Code, rec.Body.String())
	}
	rec = post(t, handler, "/api/v1/inspections/DEV-100/technical", `{"ready_for_sale":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("technical: %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "ready_for_sale") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_OutOfOrderStep(t *testing.T) {
	handler := newTestHandler(t)
	rec := post(t, handler, "/api/v1/inspections/DEV-100/technical", `{"ready_for_sale":true}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestHandler_UnknownDevice(t *testing.T) {
	handler := newTestHandler(t)
	rec := post(t, handler, "/api/v1/inspections/DEV-404/physical/start", `{}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_ReviewBadDecision(t *testing.T) {
	handler := newTestHandler(t)
	rec := post(t, handler, "/api/v1/inspections/DEV-100/review", `{"decision":"nope"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
