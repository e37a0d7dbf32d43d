package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

func TestSplitDirs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/photos", []string{"/photos"}},
		{"/a:/b", []string{"/a", "/b"}},
		{"/a, /b", []string{"/a", "/b"}},
		{" ", nil},
		{"/a::,/b", []string{"/a", "/b"}},
	}
	for _, tt := range tests {
		got := splitDirs(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitDirs(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitDirs(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestLoadConfigDefaultsAndDerivedPaths(t *testing.T) {
	photos := t.TempDir()
	dbDir := t.TempDir()
	t.Setenv("PHOTO_DIRS", photos)
	t.Setenv("DATABASE_DIR", dbDir)
	t.Setenv("POLL_INTERVAL", "45s")
	t.Setenv("CACHE_MAX_BYTES", "1048576")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.PhotoDirs) != 1 || cfg.PhotoDirs[0] != photos {
		t.Errorf("PhotoDirs = %v", cfg.PhotoDirs)
	}
	if cfg.DatabasePath != filepath.Join(dbDir, "photovault.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if cfg.PollInterval != 45*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.CacheMaxBytes != 1048576 {
		t.Errorf("CacheMaxBytes = %d", cfg.CacheMaxBytes)
	}
	if cfg.Port != "8080" || cfg.MetricsPort != "9090" {
		t.Errorf("ports = %s/%s", cfg.Port, cfg.MetricsPort)
	}
}

func TestLoadConfigBadDurationFallsBack(t *testing.T) {
	t.Setenv("PHOTO_DIRS", t.TempDir())
	t.Setenv("DATABASE_DIR", t.TempDir())
	t.Setenv("POLL_INTERVAL", "not-a-duration")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.PollInterval != 2*time.Minute {
		t.Errorf("PollInterval = %v, want default 2m", cfg.PollInterval)
	}
}

func TestLoadConfigUnwritableDatabaseDirFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission bits are not enforced")
	}
	dbDir := t.TempDir()
	if err := os.Chmod(dbDir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PHOTO_DIRS", t.TempDir())
	t.Setenv("DATABASE_DIR", dbDir)

	if _, err := LoadConfig(); err == nil {
		t.Error("expected failure for read-only database dir")
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_STR", "value")
	if got := getEnv("TEST_STR", "d"); got != "value" {
		t.Errorf("getEnv = %q", got)
	}
	if got := getEnv("TEST_UNSET_9", "d"); got != "d" {
		t.Errorf("getEnv default = %q", got)
	}

	t.Setenv("TEST_BOOL", "false")
	if getEnvBool("TEST_BOOL", true) {
		t.Error("getEnvBool should honor false")
	}
	t.Setenv("TEST_BOOL", "garbage")
	if !getEnvBool("TEST_BOOL", true) {
		t.Error("getEnvBool should fall back on parse error")
	}

	t.Setenv("TEST_INT", "42")
	if got := getEnvInt64("TEST_INT", 7); got != 42 {
		t.Errorf("getEnvInt64 = %d", got)
	}
	t.Setenv("TEST_INT", "-3")
	if got := getEnvInt64("TEST_INT", 7); got != 7 {
		t.Errorf("getEnvInt64 negative = %d, want default", got)
	}
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/scan", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodPost)
	r.HandleFunc("/api/images/{id}/thumbnail", func(http.ResponseWriter, *http.Request) {}).Methods(http.MethodGet)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 2 {
		t.Fatalf("routes = %d, want 2", len(routes))
	}
	if routes[0].Method != http.MethodPost || routes[0].Path != "/api/scan" {
		t.Errorf("first route = %+v", routes[0])
	}
}

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()
	if info.Version == "" || info.GoVersion == "" || info.OS == "" {
		t.Errorf("incomplete build info: %+v", info)
	}
}
