package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"refurb-cloud/internal/audit"
	"refurb-cloud/internal/auth"
	diagapp "refurb-cloud/internal/diagnostics/application"
	diaghttp "refurb-cloud/internal/diagnostics/interfaces/http"
	"refurb-cloud/internal/eventing"
	inspectionapp "refurb-cloud/internal/inspection/application"
	inspectionhttp "refurb-cloud/internal/inspection/interfaces/http"
	intakeapp "refurb-cloud/internal/intake/application"
	intakehttp "refurb-cloud/internal/intake/interfaces/http"
	"refurb-cloud/internal/observability/metrics"
	registryapp "refurb-cloud/internal/registry/application"
	registrypostgres "refurb-cloud/internal/registry/infrastructure/postgres"
	registryhttp "refurb-cloud/internal/registry/interfaces/http"
	repairapp "refurb-cloud/internal/repairs/application"
	repairhttp "refurb-cloud/internal/repairs/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)
	bus := eventing.NewInMemoryBus()

	deviceRepo := registrypostgres.NewDeviceRepository(db)
	registryService, err := registryapp.NewService(deviceRepo, bus)
	if err != nil {
		logger.Fatalf("registry service error: %v", err)
	}
	deviceHandler, err := registryhttp.NewDeviceHandler(registryService)
	if err != nil {
		logger.Fatalf("device handler error: %v", err)
	}

	ingestService, err := diagapp.NewIngestService(db, bus)
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}
	uploadHandler, err := diaghttp.NewUploadHandler(ingestService)
	if err != nil {
		logger.Fatalf("upload handler error: %v", err)
	}
	queryService, err := diagapp.NewQueryService(db)
	if err != nil {
		logger.Fatalf("query service error: %v", err)
	}
	reportHandler, err := diaghttp.NewReportHandler(queryService)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}

	inspectionService, err := inspectionapp.NewService(registryService)
	if err != nil {
		logger.Fatalf("inspection service error: %v", err)
	}
	inspectionHandler, err := inspectionhttp.NewHandler(inspectionService)
	if err != nil {
		logger.Fatalf("inspection handler error: %v", err)
	}

	repairService, err := repairapp.NewService(db, bus)
	if err != nil {
		logger.Fatalf("repair service error: %v", err)
	}
	repairHandler, err := repairhttp.NewHandler(repairService)
	if err != nil {
		logger.Fatalf("repair handler error: %v", err)
	}

	intakeCfg, err := intakeapp.LoadConfig()
	if err != nil {
		logger.Fatalf("intake config error: %v", err)
	}
	importService, err := intakeapp.NewImportService(db, bus, intakeCfg)
	if err != nil {
		logger.Fatalf("import service error: %v", err)
	}
	importHandler, err := intakehttp.NewHandler(importService)
	if err != nil {
		logger.Fatalf("import handler error: %v", err)
	}

	wireSubscribers(bus, auditRepo, logger)

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/agent/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	agentAuth := auth.NewAgentAuthMiddleware([]byte(cfg.AgentSecret), time.Duration(cfg.AgentSkewSeconds)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/agent/diagnostic-reports/upload/", agentAuth.Wrap(uploadHandler))
	mux.Handle("/api/v1/diagnostic-reports/upload/", uploadHandler)
	mux.Handle("/api/v1/diagnostic-reports", reportHandler)
	mux.Handle("/api/v1/diagnostic-reports/", reportHandler)
	mux.Handle("/api/v1/devices", deviceHandler)
	mux.Handle("/api/v1/devices/", deviceHandler)
	mux.Handle("/api/v1/inspections/", inspectionHandler)
	mux.Handle("/api/v1/repairs", repairHandler)
	mux.Handle("/api/v1/repairs/", repairHandler)
	mux.Handle("/api/v1/shipments/import", importHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func wireSubscribers(bus eventing.EventBus, auditRepo audit.Logger, logger *log.Logger) {
	eventing.SubscribeTo(bus, func(ctx context.Context, evt registryapp.DeviceCreated) error {
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     "system",
			Action:    "device.created",
			Entity:    "device",
			EntityID:  evt.DeviceID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt registryapp.DeviceStatusChanged) error {
		metrics.IncDeviceTransition(string(evt.To))
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     evt.Actor,
			Action:    "device.status_changed",
			Entity:    "device",
			EntityID:  evt.DeviceID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt diagapp.ReportIngested) error {
		logger.Printf("report ingested: device=%s report=%s score=%d failed=%d", evt.DeviceID, evt.ReportID, evt.ScorePercent, evt.FailedTests)
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     "field-agent",
			Action:    "report.ingested",
			Entity:    "diagnostic_report",
			EntityID:  evt.ReportID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt repairapp.RepairOpened) error {
		metrics.IncRepairOpened()
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     "system",
			Action:    "repair.opened",
			Entity:    "repair",
			EntityID:  evt.RepairID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt repairapp.RepairStatusChanged) error {
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     evt.Actor,
			Action:    "repair.status_changed",
			Entity:    "repair",
			EntityID:  evt.RepairID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt repairapp.RepairCompleted) error {
		metrics.IncRepairCompleted()
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     "system",
			Action:    "repair.completed",
			Entity:    "repair",
			EntityID:  evt.RepairID,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
	eventing.SubscribeTo(bus, func(ctx context.Context, evt intakeapp.ShipmentImported) error {
		metrics.AddImportRows("created", evt.Created)
		metrics.AddImportRows("skipped", evt.Skipped)
		logger.Printf("shipment imported: vendor=%q created=%d skipped=%d", evt.Vendor, evt.Created, evt.Skipped)
		return writeAudit(ctx, auditRepo, logger, audit.Entry{
			CompanyID: evt.CompanyID,
			Actor:     "system",
			Action:    "shipment.imported",
			Entity:    "shipment",
			EntityID:  evt.Vendor,
			Detail:    mustDetail(evt),
			CreatedAt: evt.At,
		})
	})
}

func writeAudit(ctx context.Context, repo audit.Logger, logger *log.Logger, entry audit.Entry) error {
	if repo == nil {
		return nil
	}
	if err := repo.Log(ctx, entry); err != nil {
		logger.Printf("audit write error: %v", err)
	}
	return nil
}

func mustDetail(event any) json.RawMessage {
	data, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	return data
}

type config struct {
	DatabaseURL      string
	HTTPAddr         string
	JWTSecret        string
	AgentSecret      string
	AgentSkewSeconds int
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:      getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:        getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		AgentSecret:      getenvDefault("AGENT_HMAC_SECRET", ""),
		AgentSkewSeconds: getenvIntDefault("AGENT_MAX_SKEW_SECONDS", 300),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
