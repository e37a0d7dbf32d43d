package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"photovault/internal/database"
	"photovault/internal/dedup"
	"photovault/internal/handlers"
	"photovault/internal/logging"
	"photovault/internal/metrics"
	"photovault/internal/middleware"
	"photovault/internal/scan"
	"photovault/internal/startup"
	"photovault/internal/thumbs"
	"photovault/internal/watch"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	info := startup.GetBuildInfo()
	metrics.SetAppInfo(info.Version, info.Commit, info.GoVersion)
	metrics.InitializeMetrics()

	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Clean up expired sessions periodically
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		for range ticker.C {
			if err := db.CleanExpiredSessions(); err != nil {
				logging.Warn("Session cleanup failed: %v", err)
			}
		}
	}()

	collector := metrics.NewCollector(db, 1*time.Minute)
	collector.Start()

	thumbs.InitVips()
	ts := thumbs.NewService(db, config.CacheMaxBytes, config.CacheMaxEntries)

	orch := scan.NewOrchestrator(db)
	seedScanRoots(db, config.PhotoDirs)

	monitor := watch.NewMonitor(db, orch, config.PollInterval)
	monitor.Start()

	h := handlers.New(db, orch, dedup.New(db), ts)
	router := mux.NewRouter()
	h.RegisterRoutes(router)
	startup.LogHTTPRoutes(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(
		middleware.Metrics(middleware.DefaultMetricsConfig())(
			middleware.Compression()(router)))

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var metricsSrv *http.Server
	if config.MetricsEnabled {
		mm := http.NewServeMux()
		mm.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:         ":" + config.MetricsPort,
			Handler:      mm,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	if config.ScanOnStart {
		go func() {
			if _, err := orch.Start(context.Background()); err != nil {
				logging.Error("Failed to start initial scan: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, monitor, orch, collector)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

// seedScanRoots registers configured photo directories that are not yet
// in the database. Roots added at runtime via the API are kept as-is.
func seedScanRoots(db *database.Database, dirs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	existing, err := db.ListScanRoots(ctx)
	if err != nil {
		logging.Error("Failed to list scan roots: %v", err)
		return
	}
	known := make(map[string]bool, len(existing))
	for _, root := range existing {
		known[root.Path] = true
	}

	for _, dir := range dirs {
		if known[dir] {
			continue
		}
		if _, err := db.AddScanRoot(ctx, dir, true); err != nil {
			logging.Error("Failed to register scan root %s: %v", dir, err)
			continue
		}
		logging.Info("Registered scan root: %s", dir)
	}
}

func handleShutdown(srv, metricsSrv *http.Server, monitor *watch.Monitor, orch *scan.Orchestrator, collector *metrics.Collector) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping change monitor")
	monitor.Stop()
	startup.LogShutdownStepComplete("Change monitor stopped")

	if orch.Cancel() {
		startup.LogShutdownStep("Cancelling running scan")
		startup.LogShutdownStepComplete("Scan cancelled")
	}

	startup.LogShutdownStep("Stopping metrics collector")
	collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Releasing image decoders")
	thumbs.ShutdownVips()
	startup.LogShutdownStepComplete("Image decoders released")

	startup.LogShutdownComplete()
}
