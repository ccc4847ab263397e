package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	registry "refurb-cloud/internal/registry/domain"
)

// DeviceRepository is an in-memory repository for demo/testing.
type DeviceRepository struct {
	mu   sync.RWMutex
	data map[string]*registry.Device
}

// NewDeviceRepository constructs a repository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{data: make(map[string]*registry.Device)}
}

// Create inserts a new device.
func (r *DeviceRepository) Create(ctx context.Context, device *registry.Device) error {
	_ = ctx
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[device.ID]; ok {
		return errors.New("device repo: duplicate id")
	}
	clone := *device
	r.data[device.ID] = &clone
	return nil
}

// GetByID loads a device by id within a company.
func (r *DeviceRepository) GetByID(ctx context.Context, companyID, id string) (*registry.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	device, ok := r.data[id]
	if !ok || device.CompanyID != companyID {
		return nil, registry.ErrNotFound
	}
	clone := *device
	return &clone, nil
}

// GetByAssetID loads a device by asset id within a company.
func (r *DeviceRepository) GetByAssetID(ctx context.Context, companyID, assetID string) (*registry.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, device := range r.data {
		if device.CompanyID == companyID && device.AssetID == assetID {
			clone := *device
			return &clone, nil
		}
	}
	return nil, registry.ErrNotFound
}

// List loads devices for a company with optional filters.
func (r *DeviceRepository) List(ctx context.Context, companyID string, filter registry.Filter) ([]registry.Device, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]registry.Device, 0)
	for _, device := range r.data {
		if device.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && device.Status != filter.Status {
			continue
		}
		if filter.BranchID != "" && device.BranchID != filter.BranchID {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(device.AssetID), needle) &&
				!strings.Contains(strings.ToLower(device.SerialNumber), needle) &&
				!strings.Contains(strings.ToLower(device.Model), needle) {
				continue
			}
		}
		devices = append(devices, *device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].AssetID < devices[j].AssetID })
	return devices, nil
}

// Save persists an existing device.
func (r *DeviceRepository) Save(ctx context.Context, device *registry.Device) error {
	_ = ctx
	if device == nil {
		return errors.New("device repo: nil device")
	}
	if err := device.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[device.ID]
	if !ok || existing.CompanyID != device.CompanyID {
		return registry.ErrNotFound
	}
	clone := *device
	r.data[device.ID] = &clone
	return nil
}

// CountByAssetPrefix counts devices whose asset id carries the batch prefix.
func (r *DeviceRepository) CountByAssetPrefix(ctx context.Context, companyID, prefix string) (int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, device := range r.data {
		if device.CompanyID == companyID && strings.HasPrefix(device.AssetID, prefix+"-") {
			count++
		}
	}
	return count, nil
}

// ExistsSerial checks for a serial number within a company.
func (r *DeviceRepository) ExistsSerial(ctx context.Context, companyID, serialNumber string) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, device := range r.data {
		if device.CompanyID == companyID && device.SerialNumber == serialNumber {
			return true, nil
		}
	}
	return false, nil
}
