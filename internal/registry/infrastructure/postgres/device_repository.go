package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	registry "refurb-cloud/internal/registry/domain"
)

const defaultDevicesTable = "devices"

const deviceColumns = `id, asset_id, serial_number, model, manufacturer, company_id,
	status, current_location, branch_id, assigned_to, notes,
	latest_report_id, last_diagnostic_at, diagnostic_score,
	cpu_model, gpu_model, ram_size_gb, ram_count, storage_size_gb, storage_count,
	battery_health_percent, storage_health_percent, os, bios_serial,
	created_at, updated_at`

// DeviceRepository is a Postgres implementation for devices.
type DeviceRepository struct {
	db    DBTX
	table string
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository(db DBTX, opts ...DeviceOption) *DeviceRepository {
	repo := &DeviceRepository{db: db, table: defaultDevicesTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// DeviceOption configures the repository.
type DeviceOption func(*DeviceRepository)

// WithDeviceTable overrides the default table name.
func WithDeviceTable(table string) DeviceOption {
	return func(repo *DeviceRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Create inserts a new device.
func (r *DeviceRepository) Create(ctx context.Context, device *registry.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`,
		r.table, deviceColumns)

	_, err := r.db.ExecContext(ctx, query,
		device.ID,
		device.AssetID,
		device.SerialNumber,
		device.Model,
		device.Manufacturer,
		device.CompanyID,
		string(device.Status),
		device.CurrentLocation,
		device.BranchID,
		device.AssignedTo,
		device.Notes,
		device.LatestReportID,
		device.LastDiagnosticAt,
		device.DiagnosticScore,
		device.CPUModel,
		device.GPUModel,
		device.RAMSizeGB,
		device.RAMCount,
		device.StorageSizeGB,
		device.StorageCount,
		device.BatteryHealthPercent,
		device.StorageHealthPercent,
		device.OS,
		device.BIOSSerial,
		device.CreatedAt,
		device.UpdatedAt,
	)
	return err
}

// GetByID loads a device by id within a company.
func (r *DeviceRepository) GetByID(ctx context.Context, companyID, id string) (*registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if companyID == "" || id == "" {
		return nil, errors.New("device repo: empty company or device id")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND id = $2
LIMIT 1`, deviceColumns, r.table)
	return r.scanOne(ctx, query, companyID, id)
}

// GetByAssetID loads a device by asset id within a company.
func (r *DeviceRepository) GetByAssetID(ctx context.Context, companyID, assetID string) (*registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if companyID == "" || assetID == "" {
		return nil, errors.New("device repo: empty company or asset id")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE company_id = $1 AND asset_id = $2
LIMIT 1`, deviceColumns, r.table)
	return r.scanOne(ctx, query, companyID, assetID)
}

// FindByAssetID loads a device by asset id across companies. Ingestion uses
// it to tell a foreign-tenant device apart from a missing one.
func (r *DeviceRepository) FindByAssetID(ctx context.Context, assetID string) (*registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if assetID == "" {
		return nil, errors.New("device repo: empty asset id")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE asset_id = $1
LIMIT 1`, deviceColumns, r.table)
	return r.scanOne(ctx, query, assetID)
}

// List loads devices for a company with optional filters.
func (r *DeviceRepository) List(ctx context.Context, companyID string, filter registry.Filter) ([]registry.Device, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("device repo: nil db")
	}
	if companyID == "" {
		return nil, errors.New("device repo: empty company id")
	}

	where := []string{"company_id = $1"}
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.BranchID != "" {
		args = append(args, filter.BranchID)
		where = append(where, fmt.Sprintf("branch_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(asset_id ILIKE $%d OR serial_number ILIKE $%d OR model ILIKE $%d)", len(args), len(args), len(args)))
	}

	order := "created_at DESC"
	switch filter.Sort {
	case "asset_id":
		order = "asset_id ASC"
	case "status":
		order = "status ASC, created_at DESC"
	case "score":
		order = "diagnostic_score DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE %s
ORDER BY %s
LIMIT %d OFFSET %d`, deviceColumns, r.table, strings.Join(where, " AND "), order, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	devices := make([]registry.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	return devices, rows.Err()
}

// Save persists all mutable fields of an existing device.
func (r *DeviceRepository) Save(ctx context.Context, device *registry.Device) error {
	if r == nil || r.db == nil {
		return errors.New("device repo: nil db")
	}
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
UPDATE %s
SET serial_number = $3, model = $4, manufacturer = $5,
	status = $6, current_location = $7, branch_id = $8, assigned_to = $9, notes = $10,
	latest_report_id = $11, last_diagnostic_at = $12, diagnostic_score = $13,
	cpu_model = $14, gpu_model = $15, ram_size_gb = $16, ram_count = $17,
	storage_size_gb = $18, storage_count = $19,
	battery_health_percent = $20, storage_health_percent = $21,
	os = $22, bios_serial = $23, updated_at = $24
WHERE company_id = $1 AND id = $2`, r.table)

	result, err := r.db.ExecContext(ctx, query,
		device.CompanyID,
		device.ID,
		device.SerialNumber,
		device.Model,
		device.Manufacturer,
		string(device.Status),
		device.CurrentLocation,
		device.BranchID,
		device.AssignedTo,
		device.Notes,
		device.LatestReportID,
		device.LastDiagnosticAt,
		device.DiagnosticScore,
		device.CPUModel,
		device.GPUModel,
		device.RAMSizeGB,
		device.RAMCount,
		device.StorageSizeGB,
		device.StorageCount,
		device.BatteryHealthPercent,
		device.StorageHealthPercent,
		device.OS,
		device.BIOSSerial,
		device.UpdatedAt,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return registry.ErrNotFound
	}
	return nil
}

// CountByAssetPrefix counts devices whose asset id carries the batch prefix.
func (r *DeviceRepository) CountByAssetPrefix(ctx context.Context, companyID, prefix string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT COUNT(*)
FROM %s
WHERE company_id = $1 AND asset_id LIKE $2`, r.table)

	var count int
	if err := r.db.QueryRowContext(ctx, query, companyID, prefix+"-%").Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsSerial checks for a serial number within a company.
func (r *DeviceRepository) ExistsSerial(ctx context.Context, companyID, serialNumber string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("device repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT EXISTS (
	SELECT 1 FROM %s WHERE company_id = $1 AND serial_number = $2
)`, r.table)

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, companyID, serialNumber).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *DeviceRepository) scanOne(ctx context.Context, query string, args ...any) (*registry.Device, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	device, err := scanDevice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, registry.ErrNotFound
		}
		return nil, err
	}
	return device, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*registry.Device, error) {
	var device registry.Device
	var status string
	var latestReportID sql.NullString
	var lastDiagnosticAt sql.NullTime
	if err := row.Scan(
		&device.ID,
		&device.AssetID,
		&device.SerialNumber,
		&device.Model,
		&device.Manufacturer,
		&device.CompanyID,
		&status,
		&device.CurrentLocation,
		&device.BranchID,
		&device.AssignedTo,
		&device.Notes,
		&latestReportID,
		&lastDiagnosticAt,
		&device.DiagnosticScore,
		&device.CPUModel,
		&device.GPUModel,
		&device.RAMSizeGB,
		&device.RAMCount,
		&device.StorageSizeGB,
		&device.StorageCount,
		&device.BatteryHealthPercent,
		&device.StorageHealthPercent,
		&device.OS,
		&device.BIOSSerial,
		&device.CreatedAt,
		&device.UpdatedAt,
	); err != nil {
		return nil, err
	}
	device.Status = registry.Status(status)
	if latestReportID.Valid {
		device.LatestReportID = &latestReportID.String
	}
	if lastDiagnosticAt.Valid {
		at := lastDiagnosticAt.Time.UTC()
		device.LastDiagnosticAt = &at
	}
	device.CreatedAt = device.CreatedAt.UTC()
	device.UpdatedAt = device.UpdatedAt.UTC()
	return &device, nil
}
