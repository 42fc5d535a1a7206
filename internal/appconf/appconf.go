// Package appconf defines the application configuration and its loading
// from a JSON file plus environment overrides.
package appconf

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Environment selects runtime behavior (logging verbosity defaults,
// in-memory databases under test).
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment maps a -env flag value to an Environment.
// Unrecognized values fall back to Development.
func EnvFlagToEnvironment(flag string) Environment {
	switch strings.ToLower(strings.TrimSpace(flag)) {
	case "test":
		return Test
	case "production", "prod":
		return Production
	default:
		return Development
	}
}

// Config holds everything the application needs to start.
type Config struct {
	Env  Environment `json:"-"`
	Port int         `json:"port" validate:"required,gt=0,lte=65535"`

	// Provider settings for the upstream transit API.
	ProviderBaseURL string `json:"providerBaseUrl" validate:"required,url"`
	ProviderAPIKey  string `json:"providerApiKey" validate:"required"`

	// Timezone is the agency's local IANA timezone name.
	Timezone string `json:"timezone" validate:"required"`

	// InventoryPath is the stop inventory snapshot file.
	InventoryPath string `json:"inventoryPath" validate:"required"`
	// ScheduleDBPath is the SQLite schedule database, ":memory:" under
	// test.
	ScheduleDBPath string `json:"scheduleDbPath" validate:"required"`
	// GTFSPath is an optional local GTFS zip imported at startup.
	GTFSPath string `json:"gtfsPath"`

	// APIKeys authorizes callers of this service's own REST surface.
	APIKeys []string `json:"apiKeys"`
	// RateLimit is requests per second per API key; 0 disables limiting.
	RateLimit int `json:"rateLimit" validate:"gte=0"`

	Verbose bool `json:"verbose"`
}

// LoadFromFile reads and validates a JSON config file.
func LoadFromFile(path string, env Environment) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Env = env

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks a config against its declared constraints.
func Validate(cfg Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Env == Test && cfg.ScheduleDBPath != ":memory:" {
		return fmt.Errorf("test environment requires an in-memory schedule database, got %q", cfg.ScheduleDBPath)
	}
	return nil
}
