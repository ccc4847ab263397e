package application

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	registry "refurb-cloud/internal/registry/domain"
	registryrepo "refurb-cloud/internal/registry/infrastructure/postgres"
)

// ErrVendorRequired is returned when an import carries no vendor name.
var ErrVendorRequired = errors.New("intake: vendor name is required")

// ImportResult summarizes one manifest import.
type ImportResult struct {
	Created  int      `json:"created"`
	Skipped  []string `json:"skipped"`
	AssetIDs []string `json:"asset_ids"`
}

// ImportService turns shipment manifests into registered devices. One
// manifest is one transaction.
type ImportService struct {
	db  *sql.DB
	bus eventing.EventBus
	cfg Config
	now func() time.Time
}

// NewImportService constructs an import service.
func NewImportService(db *sql.DB, bus eventing.EventBus, cfg Config) (*ImportService, error) {
	if db == nil {
		return nil, errors.New("intake: nil db")
	}
	if bus == nil {
		return nil, errors.New("intake: nil event bus")
	}
	return &ImportService{db: db, bus: bus, cfg: cfg, now: time.Now}, nil
}

// WithClock overrides the time source, for tests.
func (s *ImportService) WithClock(now func() time.Time) *ImportService {
	if now != nil {
		s.now = now
	}
	return s
}

// Import registers every manifest row as a received device. Asset ids are
// generated from the vendor prefix and a per-prefix sequence. Rows whose
// serial number already exists in the company are skipped, not failed.
func (s *ImportService) Import(ctx context.Context, vendor string, manifest io.Reader) (*ImportResult, error) {
	companyID := auth.CompanyIDFromContext(ctx)
	if companyID == "" {
		return nil, auth.ErrUnauthorized
	}
	if vendor == "" {
		return nil, ErrVendorRequired
	}

	rows, err := ParseManifest(manifest, s.cfg)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	prefix := registry.AssetPrefix(vendor)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	devices := registryrepo.NewDeviceRepository(tx)

	seq, err := devices.CountByAssetPrefix(ctx, companyID, prefix)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	result := &ImportResult{Skipped: []string{}, AssetIDs: []string{}}
	for _, row := range rows {
		exists, err := devices.ExistsSerial(ctx, companyID, row.SerialNumber)
		if err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if exists {
			result.Skipped = append(result.Skipped, row.SerialNumber)
			continue
		}

		seq++
		device := &registry.Device{
			ID:           uuid.NewString(),
			AssetID:      registry.BatchAssetID(prefix, seq),
			SerialNumber: row.SerialNumber,
			Model:        row.Model,
			Manufacturer: row.Manufacturer,
			CompanyID:    companyID,
			Status:       registry.StatusReceived,
			BranchID:     s.cfg.DefaultBranch,
			Notes:        row.Notes,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if device.Model == "" {
			device.Model = "unknown"
		}
		if err := devices.Create(ctx, device); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		result.Created++
		result.AssetIDs = append(result.AssetIDs, device.AssetID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	_ = s.bus.Publish(ctx, ShipmentImported{
		CompanyID: companyID,
		Vendor:    vendor,
		Created:   result.Created,
		Skipped:   len(result.Skipped),
		At:        now,
	})
	return result, nil
}
