package config

import (
	"os"
	"strconv"
	"strings"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/core"
)

// Environment keys
const (
	EnvDebug         = "CLOUDKIT_DEBUG"
	EnvDatabase      = "CLOUDKIT_DATABASE"
	EnvStrictClauses = "CLOUDKIT_STRICT_CLAUSES"
	EnvPageSize      = "CLOUDKIT_PAGE_SIZE"
)

// DefaultDatabasePath is the SQLite database used when none is configured
const DefaultDatabasePath = "cloudkit.db"

// Config holds all application configuration
type Config struct {
	DebugEnabled bool
	DatabasePath string
	// StrictClauses makes adapters reject clause kinds they do not
	// understand instead of skipping them
	StrictClauses bool
	PageSize      int
}

// LoadConfig loads configuration from environment variables
// .env file is automatically loaded via autoload import
func LoadConfig() *Config {
	return &Config{
		DebugEnabled:  getBoolEnvWithDefault(EnvDebug, getBoolEnvWithDefault("DEBUG", false)),
		DatabasePath:  getEnvWithDefault(EnvDatabase, DefaultDatabasePath),
		StrictClauses: getBoolEnvWithDefault(EnvStrictClauses, false),
		PageSize:      core.ClampPageSize(getIntEnvWithDefault(EnvPageSize, core.DefaultPageSize)),
	}
}

// Log writes the loaded configuration at debug level
func (c *Config) Log(log *zap.Logger) {
	log.Debug("loaded config",
		zap.Bool("debug", c.DebugEnabled),
		zap.String("database", c.DatabasePath),
		zap.Bool("strictClauses", c.StrictClauses),
		zap.Int("pageSize", c.PageSize))
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnvWithDefault gets a boolean environment variable with a default fallback
func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
