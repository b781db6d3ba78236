// This file contains the logic for translating HCL manifest schema structs
// into the format-agnostic option model defined in the config package.

package hcl

import (
	"context"
	"fmt"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/schema"
	"github.com/zclconf/go-cty/cty"
)

// translateModelDefinition converts a `model` block into the agnostic model.
func translateModelDefinition(ctx context.Context, s *schema.ModelDefinition) (*config.ModelDefinition, error) {
	logger := ctxlog.FromContext(ctx).With("model", s.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating model manifest.")

	opts, err := translateOptions(ctx, "", s.Options, s.Groups)
	if err != nil {
		return nil, fmt.Errorf("in model '%s': %w", s.Name, err)
	}
	return &config.ModelDefinition{
		Name:        s.Name,
		Description: s.Description,
		Options:     opts,
	}, nil
}

func translateOptions(ctx context.Context, prefix string, options []*schema.OptionDefinition, groups []*schema.GroupDefinition) ([]*config.OptionDefinition, error) {
	seen := make(map[string]struct{})
	out := make([]*config.OptionDefinition, 0, len(options)+len(groups))

	for _, o := range options {
		if _, dup := seen[o.Name]; dup {
			return nil, fmt.Errorf("duplicate option '%s'", joinPrefix(prefix, o.Name))
		}
		seen[o.Name] = struct{}{}
		def, err := translateOptionDefinition(ctx, prefix, o)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	for _, g := range groups {
		if _, dup := seen[g.Name]; dup {
			return nil, fmt.Errorf("duplicate option '%s'", joinPrefix(prefix, g.Name))
		}
		seen[g.Name] = struct{}{}
		path := joinPrefix(prefix, g.Name)
		children, err := translateOptions(ctx, path, g.Options, g.Groups)
		if err != nil {
			return nil, err
		}
		out = append(out, &config.OptionDefinition{
			Name:     g.Name,
			Path:     path,
			Title:    g.Title,
			Kind:     config.KindGroup,
			Type:     cty.DynamicPseudoType,
			Children: children,
		})
	}
	return out, nil
}

// translateOptionDefinition processes a single option block, handling its
// type keyword and default value.
func translateOptionDefinition(ctx context.Context, prefix string, in *schema.OptionDefinition) (*config.OptionDefinition, error) {
	path := joinPrefix(prefix, in.Name)
	logger := ctxlog.FromContext(ctx).With("option", path)

	kind, ty, err := typeExprToKind(ctx, in.Type)
	if err != nil {
		return nil, fmt.Errorf("option '%s': %w", path, err)
	}

	def := &config.OptionDefinition{
		Name:        in.Name,
		Path:        path,
		Title:       in.Title,
		Description: in.Description,
		Kind:        kind,
		Type:        ty,
		Min:         in.Min,
		Max:         in.Max,
		Limits:      in.Limits,
		ReadOnly:    in.ReadOnly,
		Default:     zeroValue(kind),
	}
	if def.Title == "" {
		def.Title = in.Name
	}

	if in.Default != nil {
		val, diags := in.Default.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid default value for option '%s': %w", path, diags)
		}
		if !val.IsNull() {
			converted, err := def.Check(val)
			if err != nil {
				return nil, fmt.Errorf("invalid default value for option '%s': %w", path, err)
			}
			def.Default = converted
			logger.Debug("Option default parsed.", "default", converted.GoString())
		}
	}
	return def, nil
}

func joinPrefix(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return config.JoinPath(prefix, name)
}
