package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by FromEnv, with their defaults.
const (
	EnvCoordinatorURL = "ACN_COORDINATOR_URL"
	EnvRegistryURL    = "ACN_REGISTRY_URL"
	EnvAPIKey         = "ACN_API_KEY"

	DefaultCoordinatorURL = "https://coordinator.acnet.io"
	DefaultRegistryURL    = "https://registry.acnet.io"
)

// VariableNotFoundError is returned when a requested variable isn't present
// in any configured source.
type VariableNotFoundError struct {
	Name string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q not found in any configuration source", e.Name)
}

// VariablesConfig is the interface for any variable-loading strategy
// consulted ahead of the process environment.
type VariablesConfig interface {
	// Load returns all variables available from this source.
	Load() (map[string]string, error)
	// Get returns a single variable value or an error if not present.
	Get(key string) (string, error)
}

// DotEnv implements VariablesConfig by reading a .env file.
type DotEnv struct {
	Path string
}

func NewDotEnv(path string) *DotEnv {
	return &DotEnv{Path: path}
}

func (d *DotEnv) Load() (map[string]string, error) {
	return godotenv.Read(d.Path)
}

func (d *DotEnv) Get(key string) (string, error) {
	vars, err := d.Load()
	if err != nil {
		return "", err
	}
	if val, ok := vars[key]; ok {
		return val, nil
	}
	return "", &VariableNotFoundError{Name: key}
}

// Config holds the remote endpoints and credentials the bridge talks to.
type Config struct {
	// CoordinatorURL is the base URL of the workflow coordinator.
	CoordinatorURL string `yaml:"coordinator_url"`
	// RegistryURL is the base URL of the capability search registry.
	RegistryURL string `yaml:"registry_url"`
	// APIKey, when set, is sent as the x-api-key header on coordinator
	// calls. The registry search endpoint is unauthenticated.
	APIKey string `yaml:"api_key"`
}

// FromEnv builds a Config from the environment. Loaders, when given, are
// consulted before the process environment (e.g. a .env file); the
// documented defaults apply last. Loader failures are ignored so a missing
// .env file never blocks startup.
func FromEnv(loaders ...VariablesConfig) *Config {
	return &Config{
		CoordinatorURL: lookup(EnvCoordinatorURL, DefaultCoordinatorURL, loaders),
		RegistryURL:    lookup(EnvRegistryURL, DefaultRegistryURL, loaders),
		APIKey:         lookup(EnvAPIKey, "", loaders),
	}
}

// FromFile reads a YAML config file; fields left empty in the file fall back
// to the environment and then the defaults.
func FromFile(path string, loaders ...VariablesConfig) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file %q: %w", path, err)
	}
	env := FromEnv(loaders...)
	if cfg.CoordinatorURL == "" {
		cfg.CoordinatorURL = env.CoordinatorURL
	}
	if cfg.RegistryURL == "" {
		cfg.RegistryURL = env.RegistryURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = env.APIKey
	}
	return &cfg, nil
}

func lookup(key, fallback string, loaders []VariablesConfig) string {
	for _, loader := range loaders {
		if val, err := loader.Get(key); err == nil && val != "" {
			return val
		}
	}
	if env := os.Getenv(key); env != "" {
		return env
	}
	return fallback
}
