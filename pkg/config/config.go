// Package config loads kiwi-kernel configuration from the environment, the
// same plain os.Getenv style the rest of the stack uses rather than a
// config-file/flags layer.
package config

import (
	"os"
	"strconv"
)

// Config holds process-wide kernel configuration.
type Config struct {
	// ProjectRoot is the project's ".ai" root; defaults to ".ai" in the
	// current working directory.
	ProjectRoot string
	// UserRoot is the user-scoped ".ai" root; defaults to "~/.ai".
	UserRoot string
	// KeyDir holds the Ed25519 keypair; defaults to "~/.kiwi/keys".
	KeyDir string
	// RegistryDBPath is the SQLite thread-registry path.
	RegistryDBPath string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// OTLPEndpoint is the OpenTelemetry collector gRPC endpoint.
	OTLPEndpoint string
	// ObservabilityEnabled toggles OTel tracer/meter initialization.
	ObservabilityEnabled bool
	// ToolRegistryType selects the resolver's remote registry tier backend.
	ToolRegistryType string
}

// Load reads configuration from the environment, applying the same
// defaulting style as the teacher's config loader: read, fall back to a
// sane default, never error.
func Load() *Config {
	home, _ := os.UserHomeDir()

	projectRoot := os.Getenv("KIWI_PROJECT_ROOT")
	if projectRoot == "" {
		projectRoot = ".ai"
	}

	userRoot := os.Getenv("KIWI_USER_ROOT")
	if userRoot == "" {
		userRoot = home + "/.ai"
	}

	keyDir := os.Getenv("KIWI_KEY_DIR")
	if keyDir == "" {
		keyDir = home + "/.kiwi/keys"
	}

	registryDB := os.Getenv("KIWI_REGISTRY_DB")
	if registryDB == "" {
		registryDB = projectRoot + "/threads/registry.db"
	}

	logLevel := os.Getenv("KIWI_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	otlpEndpoint := os.Getenv("KIWI_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	obsEnabled, _ := strconv.ParseBool(os.Getenv("KIWI_OBSERVABILITY_ENABLED"))

	registryType := os.Getenv("TOOL_REGISTRY_TYPE")
	if registryType == "" {
		registryType = "none"
	}

	return &Config{
		ProjectRoot:          projectRoot,
		UserRoot:             userRoot,
		KeyDir:               keyDir,
		RegistryDBPath:       registryDB,
		LogLevel:             logLevel,
		OTLPEndpoint:         otlpEndpoint,
		ObservabilityEnabled: obsEnabled,
		ToolRegistryType:     registryType,
	}
}
