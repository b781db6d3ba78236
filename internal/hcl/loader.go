package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadManifest parses an embedded model manifest.
func (l *Loader) LoadManifest(ctx context.Context, filename string, src []byte) (*config.ModelDefinition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading model manifest.", "file", filename)

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", filename, diags)
	}

	var root schema.ManifestConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", filename, diags)
	}
	if root.Model == nil {
		return nil, fmt.Errorf("manifest %s declares no model block", filename)
	}
	return translateModelDefinition(ctx, root.Model)
}

// LoadSettings reads a settings file and checks every value against the
// definitions of the model it belongs to.
func (l *Loader) LoadSettings(ctx context.Context, path string, defs map[string]*config.ModelDefinition) (*config.SettingsFile, error) {
	logger := ctxlog.FromContext(ctx).With("file", path)
	logger.Debug("Loading settings file.")

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root schema.SettingsConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	out := &config.SettingsFile{
		Model:  root.Model,
		Values: make(map[string]map[string]cty.Value),
	}
	if root.Model != "" {
		if _, ok := defs[root.Model]; !ok {
			return nil, fmt.Errorf("%s: unknown model %q", path, root.Model)
		}
	}
	for _, block := range root.Settings {
		def, ok := defs[block.Model]
		if !ok {
			return nil, fmt.Errorf("%s: settings for unknown model %q", path, block.Model)
		}
		if _, dup := out.Values[block.Model]; dup {
			return nil, fmt.Errorf("%s: duplicate settings block for model %q", path, block.Model)
		}
		values := make(map[string]cty.Value)
		if err := decodeSettingsBody(block.Body, "", def.Options, values); err != nil {
			return nil, fmt.Errorf("%s: settings for model %q: %w", path, block.Model, err)
		}
		out.Values[block.Model] = values
		logger.Debug("Settings block decoded.", "model", block.Model, "values", len(values))
	}
	return out, nil
}

// decodeSettingsBody decodes body against the option definitions of one
// level: leaves become attributes, groups become nested blocks.
func decodeSettingsBody(body hcl.Body, prefix string, opts []*config.OptionDefinition, out map[string]cty.Value) error {
	bodySchema := &hcl.BodySchema{}
	byName := make(map[string]*config.OptionDefinition, len(opts))
	for _, o := range opts {
		byName[o.Name] = o
		if o.IsGroup() {
			bodySchema.Blocks = append(bodySchema.Blocks, hcl.BlockHeaderSchema{Type: o.Name})
			continue
		}
		bodySchema.Attributes = append(bodySchema.Attributes, hcl.AttributeSchema{Name: o.Name})
	}

	content, diags := body.Content(bodySchema)
	if diags.HasErrors() {
		return diags
	}
	for name, attr := range content.Attributes {
		def := byName[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diags
		}
		checked, err := def.Check(val)
		if err != nil {
			return fmt.Errorf("%s: option '%s': %w", attr.Range, def.Path, err)
		}
		out[def.Path] = checked
	}
	seen := make(map[string]struct{})
	for _, block := range content.Blocks {
		if _, dup := seen[block.Type]; dup {
			return fmt.Errorf("%s: duplicate group '%s'", block.DefRange, joinPrefix(prefix, block.Type))
		}
		seen[block.Type] = struct{}{}
		def := byName[block.Type]
		if err := decodeSettingsBody(block.Body, def.Path, def.Children, out); err != nil {
			return err
		}
	}
	return nil
}
