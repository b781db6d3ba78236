package config

import (
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the declared type keyword of an option.
type Kind string

const (
	KindText       Kind = "text"
	KindBool       Kind = "bool"
	KindInt        Kind = "int"
	KindFloat      Kind = "float"
	KindItemSelect Kind = "item_select"
	KindGroup      Kind = "group"
)

// ItemSelectType is the cty shape of an item_select option.
var ItemSelectType = cty.Object(map[string]cty.Type{
	"all_items": cty.List(cty.String),
	"selected":  cty.List(cty.String),
})

// ItemSelect is the Go form of an item_select option: every selectable item
// and the currently selected subset.
type ItemSelect struct {
	AllItems []string `cty:"all_items"`
	Selected []string `cty:"selected"`
}

// EmptyItemSelect is the value of an item_select with nothing to choose from.
func EmptyItemSelect() cty.Value {
	return ItemSelectVal(nil, nil)
}

// ItemSelectVal builds an item_select value.
func ItemSelectVal(all, selected []string) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{
		"all_items": stringList(all),
		"selected":  stringList(selected),
	})
}

func stringList(items []string) cty.Value {
	if len(items) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(items))
	for i, s := range items {
		vals[i] = cty.StringVal(s)
	}
	return cty.ListVal(vals)
}

// ModelDefinition is the declarative option list of one computation model.
type ModelDefinition struct {
	Name        string
	Description string
	Options     []*OptionDefinition
}

// OptionDefinition describes a single option, or a group of options when
// Kind is KindGroup.
type OptionDefinition struct {
	Name        string
	Path        string // dot-separated, e.g. "cropping.ind_min"
	Title       string
	Description string
	Kind        Kind
	Type        cty.Type
	Default     cty.Value
	Min         *float64
	Max         *float64
	Limits      []string
	ReadOnly    bool
	Children    []*OptionDefinition
}

// IsGroup reports whether the definition only holds other options.
func (o *OptionDefinition) IsGroup() bool {
	return o.Kind == KindGroup
}

// Leaves returns every non-group option, depth first in declaration order.
func (m *ModelDefinition) Leaves() []*OptionDefinition {
	var out []*OptionDefinition
	var walk func([]*OptionDefinition)
	walk = func(opts []*OptionDefinition) {
		for _, o := range opts {
			if o.IsGroup() {
				walk(o.Children)
				continue
			}
			out = append(out, o)
		}
	}
	walk(m.Options)
	return out
}

// Lookup finds an option or group by its dotted path.
func (m *ModelDefinition) Lookup(path string) (*OptionDefinition, bool) {
	opts := m.Options
	var found *OptionDefinition
	for _, part := range strings.Split(path, ".") {
		found = nil
		for _, o := range opts {
			if o.Name == part {
				found = o
				break
			}
		}
		if found == nil {
			return nil, false
		}
		opts = found.Children
	}
	return found, found != nil
}

// JoinPath joins option path segments.
func JoinPath(parts ...string) string {
	return strings.Join(parts, ".")
}

// SettingsFile holds the values read from a user settings file, keyed by
// model name and then by option path.
type SettingsFile struct {
	Model  string
	Values map[string]map[string]cty.Value
}
