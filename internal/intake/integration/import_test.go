package integration_test

import (
	"bytes"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"refurb-cloud/internal/auth"
	"refurb-cloud/internal/eventing"
	intakeapp "refurb-cloud/internal/intake/application"
	registry "refurb-cloud/internal/registry/domain"
	registryrepo "refurb-cloud/internal/registry/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/xuri/excelize/v2"
)

func TestImport_SequentialAssetIDs(t *testing.T) {
	db := openTestDB(t)
	ctx := auth.WithIdentity(context.Background(), "company-imp", auth.RoleManager, "ops")

	cfg := intakeapp.Config{SkipHeader: true, MaxRows: 100}
	service, err := intakeapp.NewImportService(db, eventing.NewInMemoryBus(), cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	result, err := service.Import(ctx, "Dell Trading", manifest(t, [][]string{
		{"SN-A", "Latitude 5420", "Dell"},
		{"SN-B", "Latitude 5430", "Dell"},
	}))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Created != 2 {
		t.Fatalf("expected 2 created, got %d", result.Created)
	}
	if result.AssetIDs[0] != "D-0001" || result.AssetIDs[1] != "D-0002" {
		t.Fatalf("unexpected asset ids: %v", result.AssetIDs)
	}

	// A second shipment continues the sequence and skips known serials.
	result, err = service.Import(ctx, "Dell Trading", manifest(t, [][]string{
		{"SN-B", "Latitude 5430", "Dell"},
		{"SN-C", "Latitude 5440", "Dell"},
	}))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if result.Created != 1 || len(result.Skipped) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.AssetIDs[0] != "D-0003" {
		t.Fatalf("sequence did not continue: %v", result.AssetIDs)
	}

	devices := registryrepo.NewDeviceRepository(db)
	device, err := devices.GetByAssetID(ctx, "company-imp", "D-0003")
	if err != nil {
		t.Fatalf("load imported device: %v", err)
	}
	if device.Status != registry.StatusReceived {
		t.Fatalf("expected received, got %s", device.Status)
	}
}

func TestImport_ArabicVendorPrefix(t *testing.T) {
	db := openTestDB(t)
	ctx := auth.WithIdentity(context.Background(), "company-ar", auth.RoleManager, "ops")

	service, err := intakeapp.NewImportService(db, eventing.NewInMemoryBus(), intakeapp.Config{SkipHeader: true, MaxRows: 100})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	result, err := service.Import(ctx, "شركة التقنية", manifest(t, [][]string{
		{"SN-AR-1", "ProBook 450", "HP"},
	}))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.AssetIDs[0] != "S-0001" {
		t.Fatalf("expected transliterated prefix, got %v", result.AssetIDs)
	}
}

func TestImport_PrefixSharedAcrossCompanies(t *testing.T) {
	db := openTestDB(t)
	service, err := intakeapp.NewImportService(db, eventing.NewInMemoryBus(), intakeapp.Config{SkipHeader: true, MaxRows: 100})
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	ctxA := auth.WithIdentity(context.Background(), "company-a", auth.RoleManager, "ops-a")
	result, err := service.Import(ctxA, "Baraka Electronics", manifest(t, [][]string{
		{"SN-BA-1", "Latitude 5420", "Dell"},
		{"SN-BA-2", "Latitude 5430", "Dell"},
	}))
	if err != nil {
		t.Fatalf("first company import: %v", err)
	}
	if result.AssetIDs[0] != "B-0001" || result.AssetIDs[1] != "B-0002" {
		t.Fatalf("unexpected asset ids: %v", result.AssetIDs)
	}

	// Asset ids are scoped per company, so another tenant restarts the
	// same prefix at 0001 without colliding.
	ctxB := auth.WithIdentity(context.Background(), "company-b", auth.RoleManager, "ops-b")
	result, err = service.Import(ctxB, "Bright Trading", manifest(t, [][]string{
		{"SN-BB-1", "ThinkPad T14", "Lenovo"},
	}))
	if err != nil {
		t.Fatalf("second company import: %v", err)
	}
	if result.Created != 1 || result.AssetIDs[0] != "B-0001" {
		t.Fatalf("expected B-0001 for second company, got %+v", result)
	}

	devices := registryrepo.NewDeviceRepository(db)
	deviceA, err := devices.GetByAssetID(ctxA, "company-a", "B-0001")
	if err != nil {
		t.Fatalf("load company-a device: %v", err)
	}
	deviceB, err := devices.GetByAssetID(ctxB, "company-b", "B-0001")
	if err != nil {
		t.Fatalf("load company-b device: %v", err)
	}
	if deviceA.SerialNumber == deviceB.SerialNumber {
		t.Fatalf("expected distinct devices behind the shared asset id")
	}
}

func manifest(t *testing.T, rows [][]string) *bytes.Reader {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	_ = f.SetCellValue(sheet, "A1", "serial_number")
	_ = f.SetCellValue(sheet, "B1", "model")
	_ = f.SetCellValue(sheet, "C1", "manufacturer")
	for i, row := range rows {
		for j, value := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, value)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write xlsx: %v", err)
	}
	return bytes.NewReader(buf.Bytes())
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

	root := filepath.Clean(filepath.Join(mustGetwd(t), "..", "..", ".."))
	content, err := os.ReadFile(filepath.Join(root, "migrations", "001_init.sql"))
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

func mustGetwd(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return dir
}
