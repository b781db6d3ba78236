package hcl

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// WriteSettings renders values as a settings file selecting def. Read-only
// options and values that are absent or null are left out.
func (l *Loader) WriteSettings(ctx context.Context, w io.Writer, def *config.ModelDefinition, values map[string]cty.Value) error {
	f := hclwrite.NewEmptyFile()
	root := f.Body()
	root.SetAttributeValue("model", cty.StringVal(def.Name))
	root.AppendNewline()

	block := root.AppendNewBlock("settings", []string{def.Name})
	n := writeOptions(block.Body(), def.Options, values)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write settings for model '%s': %w", def.Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Settings written.", "model", def.Name, "values", n)
	return nil
}

func writeOptions(body *hclwrite.Body, opts []*config.OptionDefinition, values map[string]cty.Value) int {
	written := 0
	for _, o := range opts {
		if o.IsGroup() {
			child := body.AppendNewBlock(o.Name, nil)
			written += writeOptions(child.Body(), o.Children, values)
			continue
		}
		if o.ReadOnly {
			continue
		}
		v, ok := values[o.Path]
		if !ok || v.IsNull() {
			continue
		}
		body.SetAttributeValue(o.Name, v)
		written++
	}
	return written
}
