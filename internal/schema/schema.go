// Package schema holds the gohcl decoding targets for model manifests and
// settings files.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Model Manifest Schemas ---

// OptionDefinition is a single `option` block of a manifest.
type OptionDefinition struct {
	Name        string         `hcl:"name,label"`
	Type        hcl.Expression `hcl:"type"`
	Title       string         `hcl:"title,optional"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
	Min         *float64       `hcl:"min,optional"`
	Max         *float64       `hcl:"max,optional"`
	Limits      []string       `hcl:"limits,optional"`
	ReadOnly    bool           `hcl:"readonly,optional"`
}

// GroupDefinition is a `group` block. Groups nest.
type GroupDefinition struct {
	Name    string              `hcl:"name,label"`
	Title   string              `hcl:"title,optional"`
	Options []*OptionDefinition `hcl:"option,block"`
	Groups  []*GroupDefinition  `hcl:"group,block"`
}

// ModelDefinition is the `model` block describing one computation model.
type ModelDefinition struct {
	Name        string              `hcl:"name,label"`
	Description string              `hcl:"description,optional"`
	Options     []*OptionDefinition `hcl:"option,block"`
	Groups      []*GroupDefinition  `hcl:"group,block"`
}

// ManifestConfig is the top-level structure of a manifest file.
type ManifestConfig struct {
	Model *ModelDefinition `hcl:"model,block"`
}

// --- Settings File Schemas ---

// SettingsBlock holds the option values for one model. Its body is decoded
// against the model's definitions.
type SettingsBlock struct {
	Model string   `hcl:"model,label"`
	Body  hcl.Body `hcl:",remain"`
}

// SettingsConfig is the top-level structure of a user settings file.
type SettingsConfig struct {
	Model    string           `hcl:"model,optional"`
	Settings []*SettingsBlock `hcl:"settings,block"`
}
