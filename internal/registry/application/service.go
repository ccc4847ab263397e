package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	registry "refurb-cloud/internal/registry/domain"
)

// CreateInput carries the fields accepted on device creation.
type CreateInput struct {
	AssetID         string `json:"asset_id"`
	SerialNumber    string `json:"serial_number"`
	Model           string `json:"model"`
	Manufacturer    string `json:"manufacturer"`
	CurrentLocation string `json:"current_location"`
	BranchID        string `json:"branch_id"`
	Notes           string `json:"notes"`
}

// SideEffects carries optional field updates applied together with a
// status transition.
type SideEffects struct {
	CurrentLocation *string
	BranchID        *string
	AssignedTo      *string
	Notes           *string
}

// Service implements device registry use cases.
type Service struct {
	repo registry.Repository
	bus  eventing.EventBus
	now  func() time.Time
}

// NewService constructs a registry service.
func NewService(repo registry.Repository, bus eventing.EventBus) (*Service, error) {
	if repo == nil {
		return nil, errors.New("registry service: nil repository")
	}
	return &Service{repo: repo, bus: bus, now: time.Now}, nil
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create registers a new device in received status.
func (s *Service) Create(ctx context.Context, companyID string, input CreateInput) (*registry.Device, error) {
	if companyID == "" {
		return nil, errors.New("registry service: empty company id")
	}
	if input.SerialNumber == "" {
		return nil, errors.New("registry service: serial_number is required")
	}
	if input.Model == "" {
		return nil, errors.New("registry service: model is required")
	}

	exists, err := s.repo.ExistsSerial(ctx, companyID, input.SerialNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, registry.ErrDuplicateSerial
	}

	now := s.now().UTC()
	assetID := input.AssetID
	if assetID == "" {
		assetID = registry.ManualAssetID(now)
	}

	device := &registry.Device{
		ID:              uuid.NewString(),
		AssetID:         assetID,
		SerialNumber:    input.SerialNumber,
		Model:           input.Model,
		Manufacturer:    input.Manufacturer,
		CompanyID:       companyID,
		Status:          registry.StatusReceived,
		CurrentLocation: input.CurrentLocation,
		BranchID:        input.BranchID,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}
	s.publish(ctx, DeviceCreated{
		CompanyID: companyID,
		DeviceID:  device.ID,
		AssetID:   device.AssetID,
		At:        now,
	})
	return device, nil
}

// Get loads a device by id.
func (s *Service) Get(ctx context.Context, companyID, id string) (*registry.Device, error) {
	return s.repo.GetByID(ctx, companyID, id)
}

// GetByAssetID loads a device by asset id.
func (s *Service) GetByAssetID(ctx context.Context, companyID, assetID string) (*registry.Device, error) {
	return s.repo.GetByAssetID(ctx, companyID, assetID)
}

// List loads devices matching the filter.
func (s *Service) List(ctx context.Context, companyID string, filter registry.Filter) ([]registry.Device, error) {
	return s.repo.List(ctx, companyID, filter)
}

// Update applies an allow-listed patch to a device.
func (s *Service) Update(ctx context.Context, companyID, id string, patch registry.Patch) (*registry.Device, error) {
	device, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if patch.SerialNumber != nil && *patch.SerialNumber != device.SerialNumber {
		exists, err := s.repo.ExistsSerial(ctx, companyID, *patch.SerialNumber)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, registry.ErrDuplicateSerial
		}
	}
	patch.Apply(device)
	device.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// Transition moves a device to the next status through the legal-transition
// guard, re-reading current state first.
func (s *Service) Transition(ctx context.Context, companyID, id string, next registry.Status, trigger registry.Trigger, side SideEffects) (*registry.Device, error) {
	device, err := s.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, device, next, trigger, side)
}

// TransitionByAssetID is Transition keyed by asset id.
func (s *Service) TransitionByAssetID(ctx context.Context, companyID, assetID string, next registry.Status, trigger registry.Trigger, side SideEffects) (*registry.Device, error) {
	device, err := s.repo.GetByAssetID(ctx, companyID, assetID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, device, next, trigger, side)
}

func (s *Service) transition(ctx context.Context, device *registry.Device, next registry.Status, trigger registry.Trigger, side SideEffects) (*registry.Device, error) {
	from := device.Status
	if err := registry.Transition(from, next, trigger); err != nil {
		return nil, err
	}

	device.Status = next
	if side.CurrentLocation != nil {
		device.CurrentLocation = *side.CurrentLocation
	}
	if side.BranchID != nil {
		device.BranchID = *side.BranchID
	}
	if side.AssignedTo != nil {
		device.AssignedTo = *side.AssignedTo
	}
	if side.Notes != nil {
		device.Notes = *side.Notes
	}
	device.UpdatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, device); err != nil {
		return nil, err
	}
	s.publish(ctx, DeviceStatusChanged{
		CompanyID: device.CompanyID,
		DeviceID:  device.ID,
		AssetID:   device.AssetID,
		From:      from,
		To:        next,
		Trigger:   trigger,
		Actor:     auth.SubjectFromContext(ctx),
		At:        device.UpdatedAt,
	})
	return device, nil
}

func (s *Service) publish(ctx context.Context, event any) {
	if s.bus == nil {
		return
	}
	_ = s.bus.Publish(ctx, event)
}
