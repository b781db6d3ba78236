package config

import (
	"context"
	"io"

	"github.com/zclconf/go-cty/cty"
)

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// LoadManifest parses a model manifest into its option definitions.
	LoadManifest(ctx context.Context, filename string, src []byte) (*ModelDefinition, error)

	// LoadSettings reads a settings file. Values are checked against the
	// option definitions of the model they target.
	LoadSettings(ctx context.Context, path string, defs map[string]*ModelDefinition) (*SettingsFile, error)

	// WriteSettings renders the writable values of one model in the format
	// LoadSettings reads.
	WriteSettings(ctx context.Context, w io.Writer, def *ModelDefinition, values map[string]cty.Value) error
}

// Converter binds option values to the Go types used by models.
type Converter interface {
	// DecodeValues populates the bggo-tagged fields of target, a pointer to
	// a struct, from values keyed by option path.
	DecodeValues(ctx context.Context, target any, values map[string]cty.Value) error

	// ToCtyValue converts a native Go value into its cty.Value equivalent.
	ToCtyValue(v any) (cty.Value, error)
}
