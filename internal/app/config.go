package app

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// StdinPath is the bundle path that selects standard input.
const StdinPath = "-"

var configValidate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	BundlePath   string `validate:"required"` // YAML/JSON bundle stream, or "-"
	Model        string // falls back to the settings file, then DefaultModel
	SettingsPath string `validate:"required_if=Watch true"`
	Formula      string // overrides edit_formula of the equation model
	Watch        bool
	DumpSettings bool // write the resolved settings and exit

	LogFormat       string        `validate:"oneof=text json"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
	HealthcheckPort int           `validate:"gte=0,lte=65535"`
	ProcessTimeout  time.Duration `validate:"gte=0"`
}

// DefaultModel is selected when neither the flags nor the settings file name
// a model.
const DefaultModel = "equation"

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
