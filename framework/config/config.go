package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App         AppConfig
	Container   ContainerConfig
	Diagnostics DiagnosticsConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

// ContainerConfig controls how the application container is built.
type ContainerConfig struct {
	// ResolveImplicit lets the container build unregistered structs.
	ResolveImplicit bool
	// LogVerbosity is the highest logr V-level that is printed.
	LogVerbosity int
}

// DiagnosticsConfig controls the read-only introspection endpoints.
type DiagnosticsConfig struct {
	Enabled bool
	Prefix  string
}

// Load reads .env (if present) and populates a Config from environment variables.
// Call once at bootstrap: cfg := config.Load()
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "GoIoC"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		Container: ContainerConfig{
			ResolveImplicit: envBool("IOC_RESOLVE_IMPLICIT", false),
			LogVerbosity:    GetInt("IOC_LOG_VERBOSITY", 0),
		},
		Diagnostics: DiagnosticsConfig{
			Enabled: envBool("IOC_DIAGNOSTICS", true),
			Prefix:  env("IOC_DIAGNOSTICS_PREFIX", "/_container"),
		},
	}
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
