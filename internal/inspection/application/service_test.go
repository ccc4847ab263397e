package application

import (
	"context"
	"errors"
	"testing"

	"refurb-cloud/internal/eventing"
	registryapp "refurb-cloud/internal/registry/application"
	registry "refurb-cloud/internal/registry/domain"
	"refurb-cloud/internal/registry/infrastructure/memory"
)

func newServiceWithDevice(t *testing.T, status registry.Status) (*Service, string) {
	t.Helper()
	devices, err := registryapp.NewService(memory.NewDeviceRepository(), eventing.NewInMemoryBus())
	if err != nil {
		t.Fatalf("registry service: %v", err)
	}
	device, err := devices.Create(context.Background(), "company-1", registryapp.CreateInput{
		AssetID:      "DEV-100",
		SerialNumber: "SN-100",
		Model:        "ThinkPad T14",
	})
	if err != nil {
		t.Fatalf("create device: %v", err)
	}
	if status != registry.StatusReceived {
		walkTo(t, devices, device.AssetID, status)
	}
	service, err := NewService(devices)
	if err != nil {
		t.Fatalf("inspection service: %v", err)
	}
	return service, device.AssetID
}

// walkTo advances a fresh device along the legal path to the wanted status.
func walkTo(t *testing.T, devices *registryapp.Service, assetID string, want registry.Status) {
	t.Helper()
	path := []struct {
		status  registry.Status
		trigger registry.Trigger
	}{
		{registry.StatusInPhysicalInspection, registry.TriggerPhysicalStarted},
		{registry.StatusInTechnicalInspection, registry.TriggerPhysicalRecorded},
		{registry.StatusDiagnosed, registry.TriggerReportIngested},
	}
	for _, step := range path {
		if _, err := devices.TransitionByAssetID(context.Background(), "company-1", assetID, step.status, step.trigger, registryapp.SideEffects{}); err != nil {
			t.Fatalf("walk to %s: %v", step.status, err)
		}
		if step.status == want {
			return
		}
	}
	t.Fatalf("cannot walk to %s", want)
}

func TestStartPhysical(t *testing.T) {
	service, assetID := newServiceWithDevice(t, registry.StatusReceived)
	bench := "bench-3"
	device, err := service.StartPhysical(context.Background(), "company-1", assetID, &bench)
	if err != nil {
		t.Fatalf("start physical: %v", err)
	}
	if device.Status != registry.StatusInPhysicalInspection {
		t.Fatalf("status %s", device.Status)
	}
	if device.CurrentLocation != "bench-3" {
		t.Fatalf("location %q", device.CurrentLocation)
	}
}

func TestRecordTechnical_Decision(t *testing.T) {
	service, assetID := newServiceWithDevice(t, registry.StatusInTechnicalInspection)
	device, err := service.RecordTechnical(context.Background(), "company-1", assetID, false, nil)
	if err != nil {
		t.Fatalf("record technical: %v", err)
	}
	if device.Status != registry.StatusNeedsRepair {
		t.Fatalf("expected needs_repair, got %s", device.Status)
	}
}

func TestReview_Decisions(t *testing.T) {
	service, assetID := newServiceWithDevice(t, registry.StatusDiagnosed)
	device, err := service.Review(context.Background(), "company-1", assetID, "ready_for_sale", nil)
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if device.Status != registry.StatusReadyForSale {
		t.Fatalf("expected ready_for_sale, got %s", device.Status)
	}
}

func TestReview_UnknownDecision(t *testing.T) {
	service, assetID := newServiceWithDevice(t, registry.StatusDiagnosed)
	_, err := service.Review(context.Background(), "company-1", assetID, "melt_down", nil)
	if !errors.Is(err, ErrUnknownDecision) {
		t.Fatalf("expected ErrUnknownDecision, got %v", err)
	}
}

func TestStartPhysical_WrongState(t *testing.T) {
	service, assetID := newServiceWithDevice(t, registry.StatusDiagnosed)
	_, err := service.StartPhysical(context.Background(), "company-1", assetID, nil)
	if !errors.Is(err, registry.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}
