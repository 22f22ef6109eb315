package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
)

// EnvConfigFile names the variable pointing at an explicit env file.
const EnvConfigFile = "FEDBOARD_CONFIG_FILE"

// Config holds runtime configuration for the dashboard service.
type Config struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	LogLevel  string
	LogFormat string
	Timezone  string

	AlertHistorySize int

	DirectorURL       string
	DirectorToken     string
	DirectorTimeout   time.Duration
	DirectorCacheTTL  time.Duration
	DirectorCacheSize int

	PromQueryURL     string
	PromQueryTimeout time.Duration
	PromQueryRange   time.Duration
	PromQueryStep    time.Duration
	MetricPagesFile  string

	ScrapeEnabled          bool
	ScrapeTargets          []string
	ScrapeMatchPrefix      string
	ScrapeTimeout          time.Duration
	ScrapeInterval         time.Duration
	ScrapeHistoryMaxPoints int

	DowntimeEnabled    bool
	DowntimeDriver     string
	DowntimeSQLitePath string
	DBHost             string
	DBPort             int
	DBUser             string
	DBPassword         string
	DBName             string
	DBConnTimeout      time.Duration
	DBQueryTimeout     time.Duration
}

// FromEnv loads configuration from environment variables with sensible defaults.
func FromEnv() Config {
	loadConfigDefaultsFromFile()
	loadSecretsDefaultsFromFile()

	return Config{
		ListenAddr:             getEnv("FEDBOARD_LISTEN_ADDR", ":8444"),
		ReadTimeout:            time.Duration(getEnvInt("FEDBOARD_READ_TIMEOUT_SEC", 10)) * time.Second,
		WriteTimeout:           time.Duration(getEnvInt("FEDBOARD_WRITE_TIMEOUT_SEC", 30)) * time.Second,
		ShutdownTimeout:        time.Duration(getEnvInt("FEDBOARD_SHUTDOWN_TIMEOUT_SEC", 10)) * time.Second,
		LogLevel:               getEnv("FEDBOARD_LOG_LEVEL", "info"),
		LogFormat:              getEnv("FEDBOARD_LOG_FORMAT", "text"),
		Timezone:               getEnv("FEDBOARD_TIMEZONE", "Local"),
		AlertHistorySize:       getEnvInt("FEDBOARD_ALERT_HISTORY_SIZE", 50),
		DirectorURL:            getEnv("FEDBOARD_DIRECTOR_URL", ""),
		DirectorToken:          getEnv("FEDBOARD_DIRECTOR_TOKEN", ""),
		DirectorTimeout:        time.Duration(getEnvInt("FEDBOARD_DIRECTOR_TIMEOUT_SEC", 10)) * time.Second,
		DirectorCacheTTL:       time.Duration(getEnvInt("FEDBOARD_DIRECTOR_CACHE_TTL_SEC", 15)) * time.Second,
		DirectorCacheSize:      getEnvInt("FEDBOARD_DIRECTOR_CACHE_SIZE", 128),
		PromQueryURL:           getEnv("FEDBOARD_PROM_QUERY_URL", ""),
		PromQueryTimeout:       time.Duration(getEnvInt("FEDBOARD_PROM_QUERY_TIMEOUT_SEC", 10)) * time.Second,
		PromQueryRange:         time.Duration(getEnvInt("FEDBOARD_PROM_QUERY_RANGE_MIN", 60)) * time.Minute,
		PromQueryStep:          time.Duration(getEnvInt("FEDBOARD_PROM_QUERY_STEP_SEC", 60)) * time.Second,
		MetricPagesFile:        getEnv("FEDBOARD_METRIC_PAGES_FILE", ""),
		ScrapeEnabled:          getEnvBool("FEDBOARD_SCRAPE_ENABLED", false),
		ScrapeTargets:          getEnvList("FEDBOARD_SCRAPE_TARGETS", nil),
		ScrapeMatchPrefix:      getEnv("FEDBOARD_SCRAPE_MATCH_PREFIX", "xrootd_"),
		ScrapeTimeout:          time.Duration(getEnvInt("FEDBOARD_SCRAPE_TIMEOUT_SEC", 5)) * time.Second,
		ScrapeInterval:         time.Duration(getEnvInt("FEDBOARD_SCRAPE_INTERVAL_SEC", 15)) * time.Second,
		ScrapeHistoryMaxPoints: getEnvInt("FEDBOARD_SCRAPE_HISTORY_MAX_POINTS", 720),
		DowntimeEnabled:        getEnvBool("FEDBOARD_DOWNTIME_ENABLED", true),
		DowntimeDriver:         getEnv("FEDBOARD_DOWNTIME_DRIVER", "sqlite"),
		DowntimeSQLitePath:     getEnv("FEDBOARD_DOWNTIME_SQLITE_PATH", "./fedboard-downtime.db"),
		DBHost:                 getEnv("FEDBOARD_DB_HOST", "127.0.0.1"),
		DBPort:                 getEnvInt("FEDBOARD_DB_PORT", 3306),
		DBUser:                 getEnv("FEDBOARD_DB_USER", "fedboard"),
		DBPassword:             getEnv("FEDBOARD_DB_PASSWORD", ""),
		DBName:                 getEnv("FEDBOARD_DB_NAME", "fedboard"),
		DBConnTimeout:          time.Duration(getEnvInt("FEDBOARD_DB_CONN_TIMEOUT_SEC", 5)) * time.Second,
		DBQueryTimeout:         time.Duration(getEnvInt("FEDBOARD_DB_QUERY_TIMEOUT_SEC", 10)) * time.Second,
	}
}

// Location resolves Timezone, falling back to the local zone.
func (c Config) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || name == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).WithField("timezone", name).Warn("Unknown timezone; using local time")
		return time.Local
	}
	return loc
}

// MySQLDSN returns a mysql driver DSN with safe defaults for TCP access.
func (c Config) MySQLDSN() string {
	mc := mysql.NewConfig()
	mc.User = c.DBUser
	mc.Passwd = c.DBPassword
	mc.Net = "tcp"
	mc.Addr = c.DBHost + ":" + strconv.Itoa(c.DBPort)
	mc.DBName = c.DBName
	mc.ParseTime = true
	mc.Timeout = c.DBConnTimeout
	mc.ReadTimeout = c.DBQueryTimeout
	mc.WriteTimeout = c.DBQueryTimeout
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

func loadConfigDefaultsFromFile() {
	bootstrapCandidates := []string{
		"./fedboard.env",
		"/etc/default/fedboard",
	}

	for _, candidate := range bootstrapCandidates {
		_ = applyEnvDefaultsFromFile(absPath(candidate))
	}

	candidates := make([]string, 0, 2)
	if explicit := strings.TrimSpace(os.Getenv(EnvConfigFile)); explicit != "" {
		candidates = append(candidates, explicit)
	}
	candidates = append(candidates, "/etc/fedboard/config.env")

	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(absPath(candidate)); err == nil {
			return
		}
	}
}

func loadSecretsDefaultsFromFile() {
	candidates := make([]string, 0, 3)
	if explicit := strings.TrimSpace(os.Getenv("FEDBOARD_SECRETS_FILE")); explicit != "" {
		candidates = append(candidates, explicit)
	}
	if credDir := strings.TrimSpace(os.Getenv("CREDENTIALS_DIRECTORY")); credDir != "" {
		credName := strings.TrimSpace(os.Getenv("FEDBOARD_SECRETS_CREDENTIAL_NAME"))
		if credName == "" {
			credName = "fedboard-secrets"
		}
		candidates = append(candidates, filepath.Join(credDir, credName))
	}
	candidates = append(candidates, "/etc/fedboard/secrets.env")
	for _, candidate := range candidates {
		if err := applyEnvDefaultsFromFile(candidate); err == nil {
			return
		}
	}
}

func absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, p)
	}
	return p
}

// applyEnvDefaultsFromFile sets KEY=VALUE pairs that are not already present
// in the environment.
func applyEnvDefaultsFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if key == "" {
			continue
		}

		if len(val) >= 2 {
			if (val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'') {
				val = val[1 : len(val)-1]
			}
		}

		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}

	return scanner.Err()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		log.WithField("key", key).Warnf("Ignoring non-integer value %q", val)
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		log.WithField("key", key).Warnf("Ignoring non-boolean value %q", val)
		return def
	}
	return parsed
}

func getEnvList(key string, def []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	src := def
	if val != "" {
		src = strings.Split(val, ",")
	}

	out := make([]string, 0, len(src))
	for _, p := range src {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
