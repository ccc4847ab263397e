package integration_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	registry "refurb-cloud/internal/registry/domain"
	registryrepo "refurb-cloud/internal/registry/infrastructure/postgres"
	repairapp "refurb-cloud/internal/repairs/application"
	repairs "refurb-cloud/internal/repairs/domain"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func TestRepairs_AutoCreateAndComplete(t *testing.T) {
	db := openTestDB(t)
	ctx := auth.WithIdentity(context.Background(), "company-rep", auth.RoleTechnician, "tech-1")

	device := seedDevice(t, db, "company-rep", "DEV-200", registry.StatusNeedsRepair)
	service := newService(t, db)

	repair, err := service.GetForDevice(ctx, device.ID)
	if err != nil {
		t.Fatalf("auto-create: %v", err)
	}
	if repair.Status != repairs.RepairPending {
		t.Fatalf("expected pending, got %s", repair.Status)
	}
	if len(repair.StatusHistory) != 1 {
		t.Fatalf("expected seeded history, got %d entries", len(repair.StatusHistory))
	}

	// Auto-creation also moves the device into repair.
	devices := registryrepo.NewDeviceRepository(db)
	stored, err := devices.GetByID(ctx, "company-rep", device.ID)
	if err != nil {
		t.Fatalf("reload device: %v", err)
	}
	if stored.Status != registry.StatusInRepair {
		t.Fatalf("expected in_repair, got %s", stored.Status)
	}

	// Second access returns the same open repair instead of a new one.
	again, err := service.GetForDevice(ctx, device.ID)
	if err != nil {
		t.Fatalf("second access: %v", err)
	}
	if again.ID != repair.ID {
		t.Fatal("expected the existing open repair")
	}

	for _, next := range []repairs.RepairStatus{repairs.RepairInProgress, repairs.RepairTesting, repairs.RepairCompleted} {
		if repair, err = service.Transition(ctx, repair.ID, next, "tech-1"); err != nil {
			t.Fatalf("to %s: %v", next, err)
		}
	}
	if repair.ClosedAt == nil {
		t.Fatal("completed repair must be closed")
	}

	stored, err = devices.GetByID(ctx, "company-rep", device.ID)
	if err != nil {
		t.Fatalf("reload device: %v", err)
	}
	if stored.Status != registry.StatusReadyForSale {
		t.Fatalf("expected ready_for_sale, got %s", stored.Status)
	}
	if stored.CurrentLocation != "" {
		t.Fatalf("maintenance location not cleared: %q", stored.CurrentLocation)
	}
}

func TestRepairs_HistoryRulePersisted(t *testing.T) {
	db := openTestDB(t)
	ctx := auth.WithIdentity(context.Background(), "company-hist", auth.RoleTechnician, "tech-1")

	device := seedDevice(t, db, "company-hist", "DEV-201", registry.StatusNeedsRepair)
	service := newService(t, db)

	repair, err := service.GetForDevice(ctx, device.ID)
	if err != nil {
		t.Fatalf("auto-create: %v", err)
	}
	if _, err := service.Transition(ctx, repair.ID, repairs.RepairDiagnosing, ""); err != nil {
		t.Fatalf("to diagnosing: %v", err)
	}
	repair, err = service.Transition(ctx, repair.ID, repairs.RepairInProgress, "")
	if err != nil {
		t.Fatalf("to in_progress: %v", err)
	}

	if len(repair.StatusHistory) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(repair.StatusHistory))
	}
	if repair.StatusHistory[0].EndedAt == nil || repair.StatusHistory[1].EndedAt == nil {
		t.Fatal("closed entries must carry ended_at")
	}
	if repair.StatusHistory[2].EndedAt != nil {
		t.Fatal("open entry must not carry ended_at")
	}
}

func TestRepairs_SpareParts(t *testing.T) {
	db := openTestDB(t)
	tech := auth.WithIdentity(context.Background(), "company-parts", auth.RoleTechnician, "tech-1")
	mgr := auth.WithIdentity(context.Background(), "company-parts", auth.RoleManager, "mgr-1")

	device := seedDevice(t, db, "company-parts", "DEV-202", registry.StatusNeedsRepair)
	service := newService(t, db)

	repair, err := service.GetForDevice(tech, device.ID)
	if err != nil {
		t.Fatalf("auto-create: %v", err)
	}
	part, err := service.RequestPart(tech, repair.ID, repairapp.PartInput{PartName: "battery", Quantity: 1})
	if err != nil {
		t.Fatalf("request part: %v", err)
	}
	if part.Status != repairs.PartPending || part.RequestedBy != "tech-1" {
		t.Fatalf("unexpected part: %+v", part)
	}

	part, err = service.DecidePart(mgr, part.ID, repairs.PartApproved)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if part.DecidedBy != "mgr-1" {
		t.Fatalf("decided_by %q", part.DecidedBy)
	}
	if _, err := service.DecidePart(mgr, part.ID, repairs.PartRejected); !errors.Is(err, repairs.ErrInvalidPartStatus) {
		t.Fatalf("expected ErrInvalidPartStatus, got %v", err)
	}
}

func TestRepairs_NotInRepairQueue(t *testing.T) {
	db := openTestDB(t)
	ctx := auth.WithIdentity(context.Background(), "company-q", auth.RoleTechnician, "tech-1")

	device := seedDevice(t, db, "company-q", "DEV-203", registry.StatusReceived)
	service := newService(t, db)

	if _, err := service.GetForDevice(ctx, device.ID); !errors.Is(err, repairs.ErrRepairNotFound) {
		t.Fatalf("expected ErrRepairNotFound, got %v", err)
	}
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	content, err := os.ReadFile(filepath.Join(projectRoot(), "migrations", "001_init.sql"))
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if _, err := db.Exec(string(content)); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	for _, table := range []string{"spare_parts_requests", "repairs", "device_hardware_specs", "diagnostic_test_results", "diagnostic_reports", "devices"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}
	return db
}

func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return filepath.Clean(filepath.Join(dir, "..", "..", ".."))
}

func newService(t *testing.T, db *sql.DB) *repairapp.Service {
	t.Helper()
	service, err := repairapp.NewService(db, eventing.NewInMemoryBus())
	if err != nil {
		t.Fatalf("repairs service: %v", err)
	}
	return service
}

func seedDevice(t *testing.T, db *sql.DB, companyID, assetID string, status registry.Status) *registry.Device {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	device := &registry.Device{
		ID:           uuid.NewString(),
		AssetID:      assetID,
		SerialNumber: "SN-" + assetID,
		Model:        "ThinkPad T14",
		CompanyID:    companyID,
		Status:       status,
		Notes:        "no boot reported at intake",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	repo := registryrepo.NewDeviceRepository(db)
	if err := repo.Create(context.Background(), device); err != nil {
		t.Fatalf("seed device: %v", err)
	}
	return device
}
