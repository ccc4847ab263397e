package application

import (
	"context"
	"errors"

	registryapp "refurb-cloud/internal/registry/application"
	registry "refurb-cloud/internal/registry/domain"
)

// ErrUnknownDecision is returned for a decision outside the allowed set.
var ErrUnknownDecision = errors.New("inspection: unknown decision")

// Service drives the manual inspection steps. Every step is a guarded
// lifecycle transition on the owning device.
type Service struct {
	devices *registryapp.Service
}

// NewService constructs an inspection service.
func NewService(devices *registryapp.Service) (*Service, error) {
	if devices == nil {
		return nil, errors.New("inspection service: nil device service")
	}
	return &Service{devices: devices}, nil
}

// StartPhysical moves a device onto the physical inspection bench.
func (s *Service) StartPhysical(ctx context.Context, companyID, assetID string, location *string) (*registry.Device, error) {
	return s.devices.TransitionByAssetID(ctx, companyID, assetID,
		registry.StatusInPhysicalInspection, registry.TriggerPhysicalStarted,
		registryapp.SideEffects{CurrentLocation: location})
}

// RecordPhysical records the cosmetic findings and hands the device over
// to technical inspection.
func (s *Service) RecordPhysical(ctx context.Context, companyID, assetID string, notes *string) (*registry.Device, error) {
	return s.devices.TransitionByAssetID(ctx, companyID, assetID,
		registry.StatusInTechnicalInspection, registry.TriggerPhysicalRecorded,
		registryapp.SideEffects{Notes: notes})
}

// RecordTechnical applies the technical verdict. A device found fit goes
// straight to sale, otherwise into the repair queue.
func (s *Service) RecordTechnical(ctx context.Context, companyID, assetID string, readyForSale bool, notes *string) (*registry.Device, error) {
	next := registry.StatusNeedsRepair
	if readyForSale {
		next = registry.StatusReadyForSale
	}
	return s.devices.TransitionByAssetID(ctx, companyID, assetID,
		next, registry.TriggerTechnicalDecision,
		registryapp.SideEffects{Notes: notes})
}

// Review applies the human decision taken after reading a diagnostic
// report on a diagnosed device.
func (s *Service) Review(ctx context.Context, companyID, assetID, decision string, notes *string) (*registry.Device, error) {
	var next registry.Status
	switch decision {
	case string(registry.StatusReadyForSale):
		next = registry.StatusReadyForSale
	case string(registry.StatusNeedsRepair):
		next = registry.StatusNeedsRepair
	case string(registry.StatusReturned):
		next = registry.StatusReturned
	default:
		return nil, ErrUnknownDecision
	}
	return s.devices.TransitionByAssetID(ctx, companyID, assetID,
		next, registry.TriggerReviewDecision,
		registryapp.SideEffects{Notes: notes})
}
