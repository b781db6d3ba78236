package hcl

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Converter is the HCL-specific implementation of the config.Converter interface.
type Converter struct{}

// NewConverter creates a new HCL converter.
func NewConverter() *Converter {
	return &Converter{}
}

// DecodeValues walks the bggo-tagged fields of target and decodes the value
// stored under each tag's option path. Fields without a value are left alone.
func (c *Converter) DecodeValues(ctx context.Context, target any, values map[string]cty.Value) error {
	logger := ctxlog.FromContext(ctx)

	structVal := reflect.ValueOf(target)
	if structVal.Kind() != reflect.Ptr || structVal.IsNil() || structVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("target must be a non-nil pointer to a struct, got %T", target)
	}
	structVal = structVal.Elem()
	structType := structVal.Type()

	for i := 0; i < structType.NumField(); i++ {
		fieldDef := structType.Field(i)
		fieldVal := structVal.Field(i)
		if !fieldDef.IsExported() || !fieldVal.CanSet() {
			continue
		}
		path := TagPath(fieldDef)
		if path == "" {
			continue
		}
		val, ok := values[path]
		if !ok {
			logger.Debug("No value for settings field.", "path", path, "field", fieldDef.Name)
			continue
		}
		if err := c.decode(ctx, val, fieldVal.Addr().Interface()); err != nil {
			return fmt.Errorf("failed to decode option '%s': %w", path, err)
		}
	}
	return nil
}

// TagPath returns the option path of a bggo-tagged struct field, or "" when
// the field is not bound to an option.
func TagPath(field reflect.StructField) string {
	tag := strings.Split(field.Tag.Get("bggo"), ",")[0]
	if tag == "-" {
		return ""
	}
	return tag
}

// decode handles the conversion and decoding of a cty.Value into a Go pointer.
func (c *Converter) decode(ctx context.Context, val cty.Value, goVal any) error {
	logger := ctxlog.FromContext(ctx)
	valPtr := reflect.ValueOf(goVal)

	impliedType, err := gocty.ImpliedType(valPtr.Elem().Interface())
	if err != nil {
		logger.Debug("Could not imply cty.Type from Go type, attempting direct decoding.", "go_type", valPtr.Elem().Type().String(), "error", err)
		return gocty.FromCtyValue(val, goVal)
	}

	convertedVal, err := convert.Convert(val, impliedType)
	if err != nil {
		return fmt.Errorf("cannot convert %s to required type %s: %w", val.Type().FriendlyName(), impliedType.FriendlyName(), err)
	}
	if !val.Type().Equals(convertedVal.Type()) {
		logger.Debug("Implicitly converted value type.",
			"from", val.Type().FriendlyName(),
			"to", convertedVal.Type().FriendlyName(),
		)
	}
	return gocty.FromCtyValue(convertedVal, goVal)
}

// ToCtyValue converts a native Go value into its corresponding cty.Value.
func (c *Converter) ToCtyValue(v any) (cty.Value, error) {
	if v == nil {
		return cty.NilVal, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
