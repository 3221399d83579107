package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/kpidashboards/consultslt-backend/internal/agency"
	"github.com/kpidashboards/consultslt-backend/internal/config"
	"github.com/kpidashboards/consultslt-backend/internal/metrics"
	"github.com/kpidashboards/consultslt-backend/internal/publisher"
	"github.com/kpidashboards/consultslt-backend/internal/repository"
	"github.com/kpidashboards/consultslt-backend/internal/server"
	"github.com/kpidashboards/consultslt-backend/internal/service"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetOutput(os.Stdout)

	// Financial values go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	log.Info("Starting database migration...")
	m, err := migrate.New("file://db/migrations", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DB.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	appMetrics := metrics.New()

	// Create repositories
	fiscalRepository := repository.NewPostgresFiscalRepository(db)
	empresaRepository := repository.NewPostgresEmpresaRepository(db)
	auditRepository := repository.NewPostgresAuditRepository(db)

	// e-CAC client, cached in redis when an address is configured
	ecacClient := agency.NewClient(cfg.Agency.BaseURL, cfg.Agency.Timeout)
	var agencyClient service.AgencyClient = ecacClient
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.WithField("error", err).Warn("Could not reach redis, e-CAC cache disabled")
		} else {
			agencyClient = agency.NewCachedClient(ecacClient, rdb, cfg.Redis.TTL, appMetrics)
			log.Info("e-CAC cache enabled")
		}
	}

	// Kafka mirror of the audit trail, optional
	var auditPublisher service.EventPublisher
	if cfg.Kafka.BootstrapServers != "" {
		p, err := publisher.NewAuditPublisher(cfg.Kafka.BootstrapServers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.WithField("error", err).Warn("Could not create audit publisher, events will not be mirrored")
		} else {
			defer p.Close()
			auditPublisher = p
		}
	}

	// Create services
	auditRecorder := service.NewAuditRecorder(auditRepository, auditPublisher, appMetrics)
	fiscalService := service.NewFiscalService(fiscalRepository, appMetrics)
	mergerService := service.NewMergerService(fiscalRepository, agencyClient)
	empresaService := service.NewEmpresaService(empresaRepository)
	dashboardService := service.NewDashboardService(fiscalRepository, empresaRepository, auditRepository)

	// Create servers
	srv := server.NewServer(db, dashboardService, auditRecorder)
	fiscalServer := server.NewFiscalServer(fiscalService)
	ecacServer := server.NewEcacServer(mergerService)
	empresaServer := server.NewEmpresaServer(empresaService)

	// Setup Echo
	e := echo.New()
	e.Validator = server.NewRequestValidator()

	e.GET("/health", srv.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Every mutating call under /api leaves an audit entry.
	api := e.Group("/api", server.RequestAudit(auditRecorder))

	fiscal := api.Group("/fiscal")
	iris := fiscal.Group("/iris")
	iris.POST("", fiscalServer.CreateCalculo)
	iris.GET("", fiscalServer.ListCalculos)
	iris.GET("/:id", fiscalServer.GetCalculo)
	iris.PUT("/:id", fiscalServer.UpdateCalculo)
	iris.DELETE("/:id", fiscalServer.DeleteCalculo)

	ecac := fiscal.Group("/ecac")
	ecac.GET("/certidoes/:cnpj", ecacServer.SyncCertidoes)
	ecac.GET("/pendencias/:cnpj", ecacServer.SyncPendencias)

	empresas := api.Group("/empresas")
	empresas.POST("", empresaServer.CreateEmpresa)
	empresas.GET("", empresaServer.ListEmpresas)
	empresas.GET("/:id", empresaServer.GetEmpresa)
	empresas.PUT("/:id", empresaServer.UpdateEmpresa)
	empresas.DELETE("/:id", empresaServer.DeleteEmpresa)

	api.GET("/dashboard", srv.GetDashboard)
	api.GET("/auditoria", srv.ListAuditoria)

	log.WithField("port", cfg.HTTP.Port).Info("Fiscal service is starting with Echo")

	if err := e.Start(":" + cfg.HTTP.Port); err != nil && err != http.ErrServerClosed {
		log.WithField("error", err).Fatal("Echo server failed to start")
	}
}
