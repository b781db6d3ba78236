package config

import (
	"fmt"
	"math/big"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Check converts val to the option's type and enforces its constraints:
// whole numbers for int, min/max bounds and the allowed values of limits.
func (def *OptionDefinition) Check(val cty.Value) (cty.Value, error) {
	if def.IsGroup() {
		return cty.NilVal, fmt.Errorf("'%s' is a group, not an option", def.Path)
	}
	converted, err := convert.Convert(val, def.Type)
	if err != nil {
		return cty.NilVal, fmt.Errorf("cannot convert %s to %s: %w", val.Type().FriendlyName(), def.Kind, err)
	}
	if converted.IsNull() || !converted.IsKnown() {
		return cty.NilVal, fmt.Errorf("value for '%s' must be known and not null", def.Path)
	}

	switch def.Kind {
	case KindInt, KindFloat:
		f := converted.AsBigFloat()
		if def.Kind == KindInt && !f.IsInt() {
			return cty.NilVal, fmt.Errorf("value %s is not a whole number", f.Text('g', -1))
		}
		if def.Min != nil && f.Cmp(big.NewFloat(*def.Min)) < 0 {
			return cty.NilVal, fmt.Errorf("value %s is below the minimum %g", f.Text('g', -1), *def.Min)
		}
		if def.Max != nil && f.Cmp(big.NewFloat(*def.Max)) > 0 {
			return cty.NilVal, fmt.Errorf("value %s is above the maximum %g", f.Text('g', -1), *def.Max)
		}
	case KindText:
		if len(def.Limits) > 0 && !contains(def.Limits, converted.AsString()) {
			return cty.NilVal, fmt.Errorf("value %q is not one of %v", converted.AsString(), def.Limits)
		}
	}
	return converted, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
