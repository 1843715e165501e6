package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/soaringjerry/Assay/internal/db"
	"github.com/soaringjerry/Assay/internal/utils"
)

// Config is the process configuration, read once at startup.
type Config struct {
	Store         string
	SQLitePath    string
	SnapshotPath  string
	PostgresDSN   string
	MigrationsDir string

	Roles      []string
	JWTSecret  string
	SessionTTL time.Duration

	LogFile       string
	LogMaxMB      int
	LogBackups    int
	LogMaxAgeDays int

	CloseSweep string
	SeedSample bool
	Locale     string
}

var defaultRoles = []string{"admin", "librarian", "student"}

// Load reads an optional env file (".env" when files is empty) and then the
// process environment. Variables already set in the environment win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}
	cfg := &Config{
		Store:         strings.ToLower(utils.SafeEnv("ASSAY_STORE", "sqlite")),
		SQLitePath:    utils.SafeEnv("ASSAY_SQLITE_PATH", "data/assay.db"),
		SnapshotPath:  utils.SafeEnv("ASSAY_SNAPSHOT_PATH", "data/assay.json"),
		PostgresDSN:   utils.SafeEnv("ASSAY_POSTGRES_DSN", ""),
		MigrationsDir: utils.SafeEnv("ASSAY_MIGRATIONS_DIR", ""),
		Roles:         utils.SafeEnvList("ASSAY_ROLES", defaultRoles),
		JWTSecret:     utils.SafeEnv("ASSAY_JWT_SECRET", "assay-dev-secret"),
		SessionTTL:    utils.SafeEnvDuration("ASSAY_SESSION_TTL", 8*time.Hour),
		LogFile:       utils.SafeEnv("ASSAY_LOG_FILE", ""),
		LogMaxMB:      utils.SafeEnvInt("ASSAY_LOG_MAX_MB", 10),
		LogBackups:    utils.SafeEnvInt("ASSAY_LOG_BACKUPS", 3),
		LogMaxAgeDays: utils.SafeEnvInt("ASSAY_LOG_MAX_AGE_DAYS", 28),
		CloseSweep:    utils.SafeEnv("ASSAY_CLOSE_SWEEP", "@every 1m"),
		SeedSample:    utils.SafeEnvBool("ASSAY_SEED_SAMPLE", false),
	}
	cfg.Locale = utils.DetermineLocale(os.Getenv("ASSAY_LOCALE"), os.Getenv("LANGUAGE"), os.Getenv("LANG"), utils.Locales(), "en")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Store {
	case "sqlite", "file":
	case "postgres":
		if c.PostgresDSN == "" {
			return errors.New("ASSAY_POSTGRES_DSN is required when ASSAY_STORE=postgres")
		}
	default:
		return fmt.Errorf("ASSAY_STORE: unknown store %q", c.Store)
	}
	if len(c.Roles) == 0 {
		return errors.New("ASSAY_ROLES must name at least one role")
	}
	return nil
}

// GatewayOptions maps the storage settings onto db.NewGateway.
func (c *Config) GatewayOptions() db.Options {
	return db.Options{
		Store:         c.Store,
		SQLitePath:    c.SQLitePath,
		SnapshotPath:  c.SnapshotPath,
		PostgresDSN:   c.PostgresDSN,
		MigrationsDir: c.MigrationsDir,
	}
}
