package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"refurb-cloud/internal/eventing"
	registry "refurb-cloud/internal/registry/domain"
	"refurb-cloud/internal/registry/infrastructure/memory"
)

func newTestService(t *testing.T) (*Service, *memory.DeviceRepository, *eventing.InMemoryBus) {
	t.Helper()
	repo := memory.NewDeviceRepository()
	bus := eventing.NewInMemoryBus()
	service, err := NewService(repo, bus)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	service.WithClock(func() time.Time { return time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC) })
	return service, repo, bus
}

func TestCreate_GeneratesAssetID(t *testing.T) {
	service, _, _ := newTestService(t)
	device, err := service.Create(context.Background(), "company-a", CreateInput{
		SerialNumber: "SN-100",
		Model:        "EliteBook 840",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if device.AssetID == "" || device.AssetID[:4] != "DEV-" {
		t.Fatalf("expected DEV-prefixed asset id, got %q", device.AssetID)
	}
	if device.Status != registry.StatusReceived {
		t.Fatalf("expected received, got %s", device.Status)
	}
}

func TestCreate_DuplicateSerialRejected(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-1", Model: "X1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-1", Model: "X1"})
	if !errors.Is(err, registry.ErrDuplicateSerial) {
		t.Fatalf("expected ErrDuplicateSerial, got %v", err)
	}
	// Same serial in another company is fine.
	if _, err := service.Create(ctx, "company-b", CreateInput{SerialNumber: "SN-1", Model: "X1"}); err != nil {
		t.Fatalf("cross-company create: %v", err)
	}
}

func TestTransition_GuardRejectsIllegal(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	device, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-2", Model: "X1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = service.Transition(ctx, "company-a", device.ID, registry.StatusSold, registry.TriggerInvoiceFinalized, SideEffects{})
	if !errors.Is(err, registry.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := service.Get(ctx, "company-a", device.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != registry.StatusReceived {
		t.Fatalf("status mutated despite rejection: %s", got.Status)
	}
}

func TestTransition_PublishesEvent(t *testing.T) {
	service, _, bus := newTestService(t)
	ctx := context.Background()
	device, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-3", Model: "X1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var events []DeviceStatusChanged
	eventing.SubscribeTo(bus, func(ctx context.Context, event DeviceStatusChanged) error {
		events = append(events, event)
		return nil
	})

	updated, err := service.Transition(ctx, "company-a", device.ID, registry.StatusInPhysicalInspection, registry.TriggerPhysicalStarted, SideEffects{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != registry.StatusInPhysicalInspection {
		t.Fatalf("got %s", updated.Status)
	}
	if len(events) != 1 || events[0].From != registry.StatusReceived || events[0].To != registry.StatusInPhysicalInspection {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestTransition_CrossCompanyIsNotFound(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	device, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-4", Model: "X1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = service.Transition(ctx, "company-b", device.ID, registry.StatusInPhysicalInspection, registry.TriggerPhysicalStarted, SideEffects{})
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdate_PatchAppliesAndBumpsUpdatedAt(t *testing.T) {
	service, _, _ := newTestService(t)
	ctx := context.Background()
	device, err := service.Create(ctx, "company-a", CreateInput{SerialNumber: "SN-5", Model: "X1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	location := "bench-2"
	updated, err := service.Update(ctx, "company-a", device.ID, registry.Patch{CurrentLocation: &location})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CurrentLocation != "bench-2" {
		t.Fatalf("patch not applied: %+v", updated)
	}
	if updated.Status != registry.StatusReceived {
		t.Fatal("patch changed status")
	}
}
