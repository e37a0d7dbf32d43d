package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"photovault/internal/logging"

	"github.com/gorilla/mux"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// Config holds all application configuration
type Config struct {
	PhotoDirs      []string
	DatabaseDir    string
	Port           string
	MetricsPort    string
	MetricsEnabled bool
	PollInterval   time.Duration
	ScanOnStart    bool

	CacheMaxBytes   int64
	CacheMaxEntries int

	LogHealthChecks bool

	// Derived paths
	DatabasePath string
}

const (
	defaultCacheMaxBytes   = 64 << 20
	defaultCacheMaxEntries = 2048
)

// LoadConfig loads and validates configuration from environment variables
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	photoDirs := splitDirs(getEnv("PHOTO_DIRS", "/photos"))
	databaseDir := getEnv("DATABASE_DIR", "/database")
	port := getEnv("PORT", "8080")
	metricsPort := getEnv("METRICS_PORT", "9090")
	metricsEnabled := getEnvBool("METRICS_ENABLED", true)
	pollIntervalStr := getEnv("POLL_INTERVAL", "2m")
	scanOnStart := getEnvBool("SCAN_ON_START", true)
	cacheMaxBytes := getEnvInt64("CACHE_MAX_BYTES", defaultCacheMaxBytes)
	cacheMaxEntries := int(getEnvInt64("CACHE_MAX_ENTRIES", defaultCacheMaxEntries))
	logHealthChecks := getEnvBool("LOG_HEALTH_CHECKS", false)

	logging.Info("  PHOTO_DIRS:        %s", strings.Join(photoDirs, ", "))
	logging.Info("  DATABASE_DIR:      %s", databaseDir)
	logging.Info("  PORT:              %s", port)
	logging.Info("  METRICS_PORT:      %s", metricsPort)
	logging.Info("  METRICS_ENABLED:   %v", metricsEnabled)
	logging.Info("  POLL_INTERVAL:     %s", pollIntervalStr)
	logging.Info("  SCAN_ON_START:     %v", scanOnStart)
	logging.Info("  CACHE_MAX_BYTES:   %d", cacheMaxBytes)
	logging.Info("  CACHE_MAX_ENTRIES: %d", cacheMaxEntries)
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())

	pollInterval, err := time.ParseDuration(pollIntervalStr)
	if err != nil {
		logging.Warn("  Invalid POLL_INTERVAL, using default: 2m")
		pollInterval = 2 * time.Minute
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if len(photoDirs) == 0 {
		return nil, fmt.Errorf("PHOTO_DIRS resolved to no directories")
	}
	for i, dir := range photoDirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving photo directory %s: %w", dir, err)
		}
		photoDirs[i] = abs
		// A missing photo directory is not fatal; discovery reports it
		// per scan and the directory may appear later (mounts).
		if err := ensureDirectory(abs, "photos"); err != nil {
			logging.Warn("  Photo directory issue: %v", err)
		} else {
			logging.Info("  Photo directory: %s", abs)
		}
	}

	databaseDir, err = filepath.Abs(databaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving database directory: %w", err)
	}
	if err := ensureDirectory(databaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}

	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(databaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable: %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	config := &Config{
		PhotoDirs:       photoDirs,
		DatabaseDir:     databaseDir,
		Port:            port,
		MetricsPort:     metricsPort,
		MetricsEnabled:  metricsEnabled,
		PollInterval:    pollInterval,
		ScanOnStart:     scanOnStart,
		CacheMaxBytes:   cacheMaxBytes,
		CacheMaxEntries: cacheMaxEntries,
		LogHealthChecks: logHealthChecks,
		DatabasePath:    filepath.Join(databaseDir, "photovault.db"),
	}
	return config, nil
}

// splitDirs parses the PHOTO_DIRS list. Both the platform list
// separator and commas are accepted.
func splitDirs(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == os.PathListSeparator || r == ','
	})
	var dirs []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			dirs = append(dirs, f)
		}
	}
	return dirs
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}
		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}
		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})
	return routes, err
}

// LogHTTPRoutes logs the registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if !logging.IsDebugEnabled() {
		return
	}
	routes, err := GetRoutes(router)
	if err != nil {
		logging.Warn("error walking routes: %v", err)
		return
	}
	logging.Debug("  Registered routes (%d total):", len(routes))
	for _, route := range routes {
		logging.Debug("    %-7s %s", route.Method, route.Path)
	}
}

// ServerConfig describes the endpoints for the started banner
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs the post-startup summary
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:  %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application: http://localhost:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:     http://localhost:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:     DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
    ____  __          __       _    __            ____
   / __ \/ /_  ____  / /_____ | |  / /___ ___  __/ / /_
  / /_/ / __ \/ __ \/ __/ __ \| | / / __ '/ / / / / __/
 / ____/ / / / /_/ / /_/ /_/ /| |/ / /_/ / /_/ / / /_
/_/   /_/ /_/\____/\__/\____/ |___/\__,_/\__,_/_/\__/

------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}
	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
