package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("FEDBOARD_LISTEN_ADDR", ":9000")
	t.Setenv("FEDBOARD_DIRECTOR_URL", "https://director.example.org")
	t.Setenv("FEDBOARD_SCRAPE_TARGETS", "origin-1=http://o1/metrics, ,cache-1=http://c1/metrics")
	t.Setenv("FEDBOARD_SCRAPE_ENABLED", "true")
	t.Setenv("FEDBOARD_PROM_QUERY_STEP_SEC", "not-a-number")

	cfg := FromEnv()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "https://director.example.org", cfg.DirectorURL)
	assert.True(t, cfg.ScrapeEnabled)
	assert.Equal(t, []string{"origin-1=http://o1/metrics", "cache-1=http://c1/metrics"}, cfg.ScrapeTargets)
	assert.Equal(t, time.Minute, cfg.PromQueryStep)
	assert.Equal(t, 50, cfg.AlertHistorySize)
}

func TestApplyEnvDefaultsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fedboard.env")
	body := strings.Join([]string{
		"# comment",
		"FEDBOARD_TEST_QUOTED=\"hello world\"",
		"export FEDBOARD_TEST_EXPORTED=yes",
		"FEDBOARD_TEST_PRESET=from-file",
		"garbage line",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	t.Setenv("FEDBOARD_TEST_QUOTED", "")
	t.Setenv("FEDBOARD_TEST_EXPORTED", "")
	t.Setenv("FEDBOARD_TEST_PRESET", "from-env")

	require.NoError(t, applyEnvDefaultsFromFile(path))
	assert.Equal(t, "hello world", os.Getenv("FEDBOARD_TEST_QUOTED"))
	assert.Equal(t, "yes", os.Getenv("FEDBOARD_TEST_EXPORTED"))
	assert.Equal(t, "from-env", os.Getenv("FEDBOARD_TEST_PRESET"))

	assert.Error(t, applyEnvDefaultsFromFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestExplicitConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "explicit.env")
	require.NoError(t, os.WriteFile(path, []byte("FEDBOARD_DIRECTOR_TIMEOUT_SEC=3\n"), 0o600))
	t.Setenv(EnvConfigFile, path)
	t.Setenv("FEDBOARD_DIRECTOR_TIMEOUT_SEC", "")

	cfg := FromEnv()
	assert.Equal(t, 3*time.Second, cfg.DirectorTimeout)
}

func TestMySQLDSN(t *testing.T) {
	cfg := Config{DBUser: "fed", DBPassword: "pw", DBHost: "db", DBPort: 3307, DBName: "board", DBConnTimeout: 5 * time.Second}
	dsn := cfg.MySQLDSN()
	assert.True(t, strings.HasPrefix(dsn, "fed:pw@tcp(db:3307)/board?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.Local, Config{}.Location())
	assert.Equal(t, time.Local, Config{Timezone: "Nowhere/Special"}.Location())
	assert.Equal(t, "UTC", Config{Timezone: "UTC"}.Location().String())
}
