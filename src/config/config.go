package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = "49500"
	DefaultTimeout      = 2 * time.Second
	DefaultStaleBackoff = 100 * time.Millisecond
	DefaultCodec        = "msgpack"
	DefaultLogLevel     = "info"

	EnvFileEnvVar = "PROCESS_MUTEX_ENV"
)

type LoadOptions struct {
	HostOverride     string
	PortOverride     string
	CodecOverride    string
	LogLevelOverride string
}

type Config struct {
	Host              string
	Port              string
	Timeout           time.Duration
	StaleRetries      int
	StaleBackoff      time.Duration
	Codec             string
	LogLevel          string
	EnableFileLogging bool
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) LoadOptions (command-line flags)
	// 2) process environment
	// 3) .env next to the executable, or the file named by PROCESS_MUTEX_ENV
	if envPath := resolveEnvPath(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	cfg := &Config{
		Host:              firstNonEmpty(opts.HostOverride, os.Getenv("PROCESS_MUTEX_HOST"), DefaultHost),
		Port:              firstNonEmpty(opts.PortOverride, os.Getenv("PROCESS_MUTEX_PORT"), DefaultPort),
		Timeout:           getMillis("PROCESS_MUTEX_TIMEOUT_MS", DefaultTimeout),
		StaleRetries:      getNonNegativeInt("PROCESS_MUTEX_STALE_RETRIES", 0),
		StaleBackoff:      getMillis("PROCESS_MUTEX_STALE_BACKOFF_MS", DefaultStaleBackoff),
		Codec:             strings.ToLower(firstNonEmpty(opts.CodecOverride, os.Getenv("PROCESS_MUTEX_CODEC"), DefaultCodec)),
		LogLevel:          strings.ToLower(firstNonEmpty(opts.LogLevelOverride, os.Getenv("LOG_LEVEL"), DefaultLogLevel)),
		EnableFileLogging: strings.ToLower(os.Getenv("ENABLE_FILE_LOGGING")) == "true",
	}

	return cfg, nil
}

func resolveEnvPath() string {
	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func getMillis(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	return defaultValue
}

func getNonNegativeInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultValue
}
