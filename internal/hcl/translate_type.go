// This file contains the logic for parsing option type keywords (e.g. `text`,
// `item_select`) into their config.Kind and cty.Type.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// typeExprToKind converts an option's type expression into its kind and the
// cty.Type that values of that kind carry.
func typeExprToKind(ctx context.Context, expr hcl.Expression) (config.Kind, cty.Type, error) {
	logger := ctxlog.FromContext(ctx)

	v, ok := expr.(*hclsyntax.ScopeTraversalExpr)
	if !ok {
		return "", cty.NilType, fmt.Errorf("unsupported expression for type definition: %T", expr)
	}
	if len(v.Traversal) != 1 {
		return "", cty.NilType, fmt.Errorf("invalid type keyword: traversal path is not a single identifier")
	}
	rootName := v.Traversal.RootName()
	logger.Debug("Parsing option type keyword.", "keyword", rootName)

	switch config.Kind(rootName) {
	case config.KindText:
		return config.KindText, cty.String, nil
	case config.KindBool:
		return config.KindBool, cty.Bool, nil
	case config.KindInt:
		return config.KindInt, cty.Number, nil
	case config.KindFloat:
		return config.KindFloat, cty.Number, nil
	case config.KindItemSelect:
		return config.KindItemSelect, config.ItemSelectType, nil
	}
	return "", cty.NilType, fmt.Errorf("unknown option type %q", rootName)
}

// zeroValue is the default of an option whose manifest declares none.
func zeroValue(kind config.Kind) cty.Value {
	switch kind {
	case config.KindText:
		return cty.StringVal("")
	case config.KindBool:
		return cty.False
	case config.KindInt, config.KindFloat:
		return cty.Zero
	case config.KindItemSelect:
		return config.EmptyItemSelect()
	}
	return cty.NullVal(cty.DynamicPseudoType)
}
