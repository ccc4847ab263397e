package registry

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a device does not exist.
	ErrNotFound = errors.New("registry: device not found")
	// ErrDuplicateSerial is returned when a serial number already exists
	// within the company.
	ErrDuplicateSerial = errors.New("registry: duplicate serial number")
)

// Device is the central refurbishment entity.
type Device struct {
	ID           string
	AssetID      string
	SerialNumber string
	Model        string
	Manufacturer string
	CompanyID    string

	Status          Status
	CurrentLocation string
	BranchID        string
	AssignedTo      string
	Notes           string

	LatestReportID   *string
	LastDiagnosticAt *time.Time
	DiagnosticScore  int

	CPUModel             string
	GPUModel             string
	RAMSizeGB            int
	RAMCount             int
	StorageSizeGB        int
	StorageCount         int
	BatteryHealthPercent int
	StorageHealthPercent int
	OS                   string
	BIOSSerial           string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks device invariants.
func (d Device) Validate() error {
	if d.ID == "" {
		return errors.New("registry: empty device id")
	}
	if d.CompanyID == "" {
		return errors.New("registry: empty company id")
	}
	if d.SerialNumber == "" {
		return errors.New("registry: empty serial number")
	}
	if d.Model == "" {
		return errors.New("registry: empty model")
	}
	if _, ok := NormalizeStatus(string(d.Status)); !ok {
		return ErrUnknownStatus
	}
	return nil
}

// Patch is the typed allow-list for device field updates. Lifecycle status,
// company scope and diagnostic summary fields are deliberately absent: those
// change only through their owning code paths.
type Patch struct {
	SerialNumber    *string
	Model           *string
	Manufacturer    *string
	CurrentLocation *string
	BranchID        *string
	AssignedTo      *string
	Notes           *string

	CPUModel             *string
	GPUModel             *string
	RAMSizeGB            *int
	RAMCount             *int
	StorageSizeGB        *int
	StorageCount         *int
	BatteryHealthPercent *int
	StorageHealthPercent *int
	OS                   *string
	BIOSSerial           *string
}

// Apply copies the set patch fields onto the device.
func (p Patch) Apply(device *Device) {
	if device == nil {
		return
	}
	if p.SerialNumber != nil {
		device.SerialNumber = *p.SerialNumber
	}
	if p.Model != nil {
		device.Model = *p.Model
	}
	if p.Manufacturer != nil {
		device.Manufacturer = *p.Manufacturer
	}
	if p.CurrentLocation != nil {
		device.CurrentLocation = *p.CurrentLocation
	}
	if p.BranchID != nil {
		device.BranchID = *p.BranchID
	}
	if p.AssignedTo != nil {
		device.AssignedTo = *p.AssignedTo
	}
	if p.Notes != nil {
		device.Notes = *p.Notes
	}
	if p.CPUModel != nil {
		device.CPUModel = *p.CPUModel
	}
	if p.GPUModel != nil {
		device.GPUModel = *p.GPUModel
	}
	if p.RAMSizeGB != nil {
		device.RAMSizeGB = *p.RAMSizeGB
	}
	if p.RAMCount != nil {
		device.RAMCount = *p.RAMCount
	}
	if p.StorageSizeGB != nil {
		device.StorageSizeGB = *p.StorageSizeGB
	}
	if p.StorageCount != nil {
		device.StorageCount = *p.StorageCount
	}
	if p.BatteryHealthPercent != nil {
		device.BatteryHealthPercent = *p.BatteryHealthPercent
	}
	if p.StorageHealthPercent != nil {
		device.StorageHealthPercent = *p.StorageHealthPercent
	}
	if p.OS != nil {
		device.OS = *p.OS
	}
	if p.BIOSSerial != nil {
		device.BIOSSerial = *p.BIOSSerial
	}
}

// Filter narrows device listings.
type Filter struct {
	Status   Status
	BranchID string
	Search   string

	Limit  int
	Offset int
	Sort   string
}

// Repository manages device persistence. All reads and writes are scoped to
// one company.
type Repository interface {
	Create(ctx context.Context, device *Device) error
	GetByID(ctx context.Context, companyID, id string) (*Device, error)
	GetByAssetID(ctx context.Context, companyID, assetID string) (*Device, error)
	List(ctx context.Context, companyID string, filter Filter) ([]Device, error)
	Save(ctx context.Context, device *Device) error
	CountByAssetPrefix(ctx context.Context, companyID, prefix string) (int, error)
	ExistsSerial(ctx context.Context, companyID, serialNumber string) (bool, error)
}
