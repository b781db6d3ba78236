package registry

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ValidateRegistry performs a strict parity check between manifests and Go code.
// It checks both the presence of options and the compatibility of their types.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.Names() {
		m := r.ModelRegistry[name]
		def, ok := r.DefinitionRegistry[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("model '%s': no manifest definition loaded", name))
			continue
		}
		leaves := def.Leaves()

		if m.SettingsType == nil {
			if len(leaves) > 0 {
				errs = append(errs, fmt.Sprintf("model '%s': manifest declares options, but Go model has no settings struct", name))
			}
			continue
		}
		if m.SettingsType.Kind() != reflect.Struct {
			errs = append(errs, fmt.Sprintf("model '%s': settings type %s is not a struct", name, m.SettingsType))
			continue
		}

		hclOptions := make(map[string]*config.OptionDefinition, len(leaves))
		for _, leaf := range leaves {
			hclOptions[leaf.Path] = leaf
		}

		goOptions := make(map[string]reflect.StructField)
		for i := 0; i < m.SettingsType.NumField(); i++ {
			field := m.SettingsType.Field(i)
			if !field.IsExported() {
				continue
			}
			tagName := strings.Split(field.Tag.Get("bggo"), ",")[0]
			if tagName != "" && tagName != "-" {
				goOptions[tagName] = field
			}
		}

		// Check for presence mismatches
		for path := range goOptions {
			if _, ok := hclOptions[path]; !ok {
				errs = append(errs, fmt.Sprintf("model '%s': Go struct has field for option '%s' which is not declared in manifest", name, path))
			}
		}
		for path := range hclOptions {
			if _, ok := goOptions[path]; !ok {
				errs = append(errs, fmt.Sprintf("model '%s': manifest declares option '%s' which is not found in Go struct", name, path))
			}
		}

		// Check for type mismatches
		for path, opt := range hclOptions {
			goField, ok := goOptions[path]
			if !ok {
				continue
			}
			goFieldType, err := gocty.ImpliedType(reflect.Zero(goField.Type).Interface())
			if err != nil {
				errs = append(errs, fmt.Sprintf("model '%s', option '%s': could not imply cty type from Go field type %s: %v", name, path, goField.Type, err))
				continue
			}
			if !opt.Type.Equals(goFieldType) {
				errs = append(errs, fmt.Sprintf("model '%s', option '%s': type mismatch. Manifest requires '%s' but Go struct field '%s' provides '%s'",
					name, path, opt.Kind, goField.Name, goFieldType.FriendlyName()))
				continue
			}
			if opt.Kind == config.KindInt && !isInteger(goField.Type.Kind()) {
				errs = append(errs, fmt.Sprintf("model '%s', option '%s': int option bound to non-integer field '%s' (%s)", name, path, goField.Name, goField.Type))
			}
		}
		logger.Debug("Model validated.", "model", name, "options", len(hclOptions))
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}
