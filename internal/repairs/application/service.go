package application

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	registry "refurb-cloud/internal/registry/domain"
	registryrepo "refurb-cloud/internal/registry/infrastructure/postgres"
	repairs "refurb-cloud/internal/repairs/domain"
	repairsrepo "refurb-cloud/internal/repairs/infrastructure/postgres"
)

// PartInput carries the fields accepted on a spare part request.
type PartInput struct {
	PartName string `json:"part_name"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

// Service implements the repair workflow. Writes touching both the repair
// and its device run in one transaction.
type Service struct {
	db  *sql.DB
	bus eventing.EventBus
	now func() time.Time
}

// NewService constructs a repair service.
func NewService(db *sql.DB, bus eventing.EventBus) (*Service, error) {
	if db == nil {
		return nil, errors.New("repairs: nil db")
	}
	if bus == nil {
		return nil, errors.New("repairs: nil event bus")
	}
	return &Service{db: db, bus: bus, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// GetForDevice returns the open repair of a device, creating one when the
// device sits in the repair queue without a record yet. Auto-creation also
// moves a needs_repair device into in_repair.
func (s *Service) GetForDevice(ctx context.Context, deviceID string) (*repairs.Repair, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	devices := registryrepo.NewDeviceRepository(tx)
	records := repairsrepo.NewRepairRepository(tx)

	device, err := devices.GetByID(ctx, companyID, deviceID)
	if errors.Is(err, registry.ErrNotFound) {
		device, err = devices.GetByAssetID(ctx, companyID, deviceID)
	}
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	repair, err := records.GetOpenByDevice(ctx, companyID, device.ID)
	if err == nil {
		_ = tx.Rollback()
		return repair, nil
	}
	if !errors.Is(err, repairs.ErrRepairNotFound) {
		_ = tx.Rollback()
		return nil, err
	}

	if device.Status != registry.StatusNeedsRepair && device.Status != registry.StatusInRepair {
		_ = tx.Rollback()
		return nil, repairs.ErrRepairNotFound
	}

	repair = repairs.NewRepair(uuid.NewString(), device.ID, companyID, device.Notes, now)
	if err := records.Insert(ctx, repair); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if device.Status == registry.StatusNeedsRepair {
		if err := registry.Transition(device.Status, registry.StatusInRepair, registry.TriggerRepairOpened); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		device.Status = registry.StatusInRepair
		device.UpdatedAt = now
		if err := devices.Save(ctx, device); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	_ = s.bus.Publish(ctx, RepairOpened{
		CompanyID: companyID,
		DeviceID:  device.ID,
		RepairID:  repair.ID,
		At:        now,
	})
	return repair, nil
}

// ListByDevice returns all repairs of a device, newest first.
func (s *Service) ListByDevice(ctx context.Context, deviceID string) ([]repairs.Repair, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	return repairsrepo.NewRepairRepository(s.db).ListByDevice(ctx, companyID, deviceID)
}

// Get loads one repair.
func (s *Service) Get(ctx context.Context, id string) (*repairs.Repair, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	return repairsrepo.NewRepairRepository(s.db).GetByID(ctx, companyID, id)
}

// Transition moves a repair to the next status. Completion flips the device
// back to ready_for_sale and clears its maintenance location; returning it
// to inspection puts the device back on the technical bench.
func (s *Service) Transition(ctx context.Context, repairID string, next repairs.RepairStatus, technician string) (*repairs.Repair, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	records := repairsrepo.NewRepairRepository(tx)
	devices := registryrepo.NewDeviceRepository(tx)

	repair, err := records.GetByID(ctx, companyID, repairID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	from := repair.Status
	if err := repair.Advance(next, now); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if technician != "" {
		repair.Technician = technician
	}
	if err := records.Save(ctx, repair); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	var completed bool
	switch next {
	case repairs.RepairCompleted:
		completed = true
		if err := s.moveDevice(ctx, devices, companyID, repair.DeviceID, registry.StatusReadyForSale, registry.TriggerRepairCompleted, true, now); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	case repairs.RepairReturnedToInspect:
		if err := s.moveDevice(ctx, devices, companyID, repair.DeviceID, registry.StatusInTechnicalInspection, registry.TriggerRepairReturned, false, now); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	_ = s.bus.Publish(ctx, RepairStatusChanged{
		CompanyID: companyID,
		DeviceID:  repair.DeviceID,
		RepairID:  repair.ID,
		From:      from,
		To:        next,
		Actor:     auth.SubjectFromContext(ctx),
		At:        now,
	})
	if completed {
		_ = s.bus.Publish(ctx, RepairCompleted{
			CompanyID: companyID,
			DeviceID:  repair.DeviceID,
			RepairID:  repair.ID,
			At:        now,
		})
	}
	return repair, nil
}

func (s *Service) moveDevice(ctx context.Context, devices *registryrepo.DeviceRepository, companyID, deviceID string, next registry.Status, trigger registry.Trigger, clearLocation bool, now time.Time) error {
	device, err := devices.GetByID(ctx, companyID, deviceID)
	if err != nil {
		return err
	}
	if err := registry.Transition(device.Status, next, trigger); err != nil {
		return err
	}
	device.Status = next
	if clearLocation {
		device.CurrentLocation = ""
	}
	device.UpdatedAt = now
	return devices.Save(ctx, device)
}

// RequestPart records a spare part request against an open repair.
func (s *Service) RequestPart(ctx context.Context, repairID string, input PartInput) (*repairs.SparePartsRequest, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	if input.PartName == "" {
		return nil, errors.New("repairs: part name is required")
	}
	if input.Quantity <= 0 {
		input.Quantity = 1
	}
	now := s.now().UTC()

	repair, err := repairsrepo.NewRepairRepository(s.db).GetByID(ctx, companyID, repairID)
	if err != nil {
		return nil, err
	}
	if repair.IsClosed() {
		return nil, repairs.ErrRepairClosed
	}

	part := &repairs.SparePartsRequest{
		ID:          uuid.NewString(),
		RepairID:    repair.ID,
		CompanyID:   companyID,
		PartName:    input.PartName,
		Quantity:    input.Quantity,
		Status:      repairs.PartPending,
		RequestedBy: auth.SubjectFromContext(ctx),
		Notes:       input.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repairsrepo.NewPartRepository(s.db).Insert(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}

// ListParts returns the part requests of one repair.
func (s *Service) ListParts(ctx context.Context, repairID string) ([]repairs.SparePartsRequest, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	return repairsrepo.NewPartRepository(s.db).ListByRepair(ctx, companyID, repairID)
}

// DecidePart applies an approval decision to a part request.
func (s *Service) DecidePart(ctx context.Context, partID string, next repairs.PartStatus) (*repairs.SparePartsRequest, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	now := s.now().UTC()

	parts := repairsrepo.NewPartRepository(s.db)
	part, err := parts.GetByID(ctx, companyID, partID)
	if err != nil {
		return nil, err
	}
	if err := part.Decide(next, auth.SubjectFromContext(ctx), now); err != nil {
		return nil, err
	}
	if err := parts.Save(ctx, part); err != nil {
		return nil, err
	}
	return part, nil
}
