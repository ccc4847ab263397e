package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	diagnostics "refurb-cloud/internal/diagnostics/domain"
)

const defaultHardwareSpecsTable = "device_hardware_specs"

const hardwareSpecColumns = `id, report_id, device_id,
	bios_vendor, bios_version, bios_serial,
	motherboard_manufacturer, motherboard_model, motherboard_serial,
	os_name, os_version, os_build,
	cpu_model, cpu_cores, cpu_threads, cpu_base_clock_mhz, cpu_boost_clock_mhz,
	cpu_cache_kb, cpu_socket, cpu_features,
	ram_total_gb, ram_type, ram_slot_count, ram_slots,
	gpu_model, gpus,
	storage_total_gb, storage_count, storage_health_percent, storage_devices,
	battery_health_percent, battery_cycle_count, battery_chemistry,
	network_adapters, monitors, usb_devices, created_at`

// HardwareSpecRepository is a Postgres implementation for hardware snapshots.
type HardwareSpecRepository struct {
	db    DBTX
	table string
}

// NewHardwareSpecRepository constructs a repository.
func NewHardwareSpecRepository(db DBTX, opts ...HardwareSpecOption) *HardwareSpecRepository {
	repo := &HardwareSpecRepository{db: db, table: defaultHardwareSpecsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// HardwareSpecOption configures the repository.
type HardwareSpecOption func(*HardwareSpecRepository)

// WithHardwareSpecTable overrides the default table name.
func WithHardwareSpecTable(table string) HardwareSpecOption {
	return func(repo *HardwareSpecRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Insert stores a hardware snapshot.
func (r *HardwareSpecRepository) Insert(ctx context.Context, spec *diagnostics.HardwareSpec) error {
	if r == nil || r.db == nil {
		return errors.New("hardware spec repo: nil db")
	}
	if spec == nil {
		return errors.New("hardware spec repo: nil spec")
	}

	features, err := json.Marshal(spec.CPUFeatures)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32, $33, $34, $35, $36, $37)`,
		r.table, hardwareSpecColumns)

	_, err = r.db.ExecContext(ctx, query,
		spec.ID,
		spec.ReportID,
		spec.DeviceID,
		spec.BIOSVendor,
		spec.BIOSVersion,
		spec.BIOSSerial,
		spec.MotherboardManufacturer,
		spec.MotherboardModel,
		spec.MotherboardSerial,
		spec.OSName,
		spec.OSVersion,
		spec.OSBuild,
		spec.CPUModel,
		spec.CPUCores,
		spec.CPUThreads,
		spec.CPUBaseClockMHz,
		spec.CPUBoostClockMHz,
		spec.CPUCacheKB,
		spec.CPUSocket,
		features,
		spec.RAMTotalGB,
		spec.RAMType,
		spec.RAMSlotCount,
		[]byte(spec.RAMSlots),
		spec.GPUModel,
		[]byte(spec.GPUs),
		spec.StorageTotalGB,
		spec.StorageCount,
		spec.StorageHealthPercent,
		[]byte(spec.StorageDevices),
		spec.BatteryHealthPercent,
		spec.BatteryCycleCount,
		spec.BatteryChemistry,
		[]byte(spec.NetworkAdapters),
		[]byte(spec.Monitors),
		[]byte(spec.USBDevices),
		spec.CreatedAt,
	)
	return err
}

// GetByReport loads the snapshot taken with one report.
func (r *HardwareSpecRepository) GetByReport(ctx context.Context, reportID string) (*diagnostics.HardwareSpec, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("hardware spec repo: nil db")
	}
	query := fmt.Sprintf(`
SELECT %s
FROM %s
WHERE report_id = $1
LIMIT 1`, hardwareSpecColumns, r.table)

	var spec diagnostics.HardwareSpec
	var features, ramSlots, gpus, storageDevices, network, monitors, usb []byte
	err := r.db.QueryRowContext(ctx, query, reportID).Scan(
		&spec.ID,
		&spec.ReportID,
		&spec.DeviceID,
		&spec.BIOSVendor,
		&spec.BIOSVersion,
		&spec.BIOSSerial,
		&spec.MotherboardManufacturer,
		&spec.MotherboardModel,
		&spec.MotherboardSerial,
		&spec.OSName,
		&spec.OSVersion,
		&spec.OSBuild,
		&spec.CPUModel,
		&spec.CPUCores,
		&spec.CPUThreads,
		&spec.CPUBaseClockMHz,
		&spec.CPUBoostClockMHz,
		&spec.CPUCacheKB,
		&spec.CPUSocket,
		&features,
		&spec.RAMTotalGB,
		&spec.RAMType,
		&spec.RAMSlotCount,
		&ramSlots,
		&spec.GPUModel,
		&gpus,
		&spec.StorageTotalGB,
		&spec.StorageCount,
		&spec.StorageHealthPercent,
		&storageDevices,
		&spec.BatteryHealthPercent,
		&spec.BatteryCycleCount,
		&spec.BatteryChemistry,
		&network,
		&monitors,
		&usb,
		&spec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, diagnostics.ErrReportNotFound
		}
		return nil, err
	}
	if len(features) > 0 {
		_ = json.Unmarshal(features, &spec.CPUFeatures)
	}
	if spec.CPUFeatures == nil {
		spec.CPUFeatures = []string{}
	}
	spec.RAMSlots = json.RawMessage(ramSlots)
	spec.GPUs = json.RawMessage(gpus)
	spec.StorageDevices = json.RawMessage(storageDevices)
	spec.NetworkAdapters = json.RawMessage(network)
	spec.Monitors = json.RawMessage(monitors)
	spec.USBDevices = json.RawMessage(usb)
	spec.CreatedAt = spec.CreatedAt.UTC()
	return &spec, nil
}
