package formula

import (
	"fmt"
	"slices"

	"github.com/vk/datamixer/internal/dataset"
	"gonum.org/v1/gonum/floats"
)

// Value is the result of evaluating a formula: either a plain number or a
// dataset.
type Value struct {
	scalar float64
	data   *dataset.Dataset
}

// Scalar wraps a plain number.
func Scalar(v float64) Value {
	return Value{scalar: v}
}

// IsScalar reports whether the value carries no dataset.
func (v Value) IsScalar() bool {
	return v.data == nil
}

// Float returns the number held by a scalar value.
func (v Value) Float() float64 {
	return v.scalar
}

// Dataset returns the dataset held by v, or nil for scalars.
func (v Value) Dataset() *dataset.Dataset {
	return v.data
}

// ToDataset converts v into a named dataset. Dataset values keep their
// origin; scalars become 0D datasets under fallbackOrigin.
func (v Value) ToDataset(name, fallbackOrigin string) *dataset.Dataset {
	if v.data == nil {
		d := dataset.New(name, fallbackOrigin, []float64{v.scalar})
		d.Source = dataset.SourceCalculated
		return d
	}
	d := v.data.DeepCopy()
	d.Name = name
	d.Source = dataset.SourceCalculated
	return d
}

// shapeLike builds a calculated dataset with tmpl's metadata and comps.
func shapeLike(tmpl *dataset.Dataset, comps [][]float64) *dataset.Dataset {
	out := &dataset.Dataset{
		Name:       tmpl.Name,
		Origin:     tmpl.Origin,
		Source:     dataset.SourceCalculated,
		Dim:        tmpl.Dim,
		Shape:      append([]int(nil), tmpl.Shape...),
		Components: comps,
	}
	if len(tmpl.Labels) == len(comps) {
		out.Labels = append([]string(nil), tmpl.Labels...)
	}
	if tmpl.Axes != nil {
		out.Axes = make([]dataset.Axis, len(tmpl.Axes))
		for i, ax := range tmpl.Axes {
			ax.Data = append([]float64(nil), ax.Data...)
			out.Axes[i] = ax
		}
	}
	return out
}

// mapValue applies f to every element of v.
func mapValue(v Value, f func(float64) float64) Value {
	if v.data == nil {
		return Scalar(f(v.scalar))
	}
	comps := make([][]float64, len(v.data.Components))
	for i, c := range v.data.Components {
		out := make([]float64, len(c))
		for j, x := range c {
			out[j] = f(x)
		}
		comps[i] = out
	}
	return Value{data: shapeLike(v.data, comps)}
}

// operands returns the per-component arrays of v, a scalar being a single
// one-element component.
func operands(v Value) [][]float64 {
	if v.data == nil {
		return [][]float64{{v.scalar}}
	}
	return v.data.Components
}

// broadcast combines a and b elementwise. Components and elements broadcast
// when counts are equal or one side has exactly one. Two datasets with more
// than one element each must have the same shape. The result takes its
// metadata from the larger operand.
func broadcast(a, b Value, f func(x, y float64) float64, vec func(dst, s, t []float64) []float64) (Value, error) {
	if a.data == nil && b.data == nil {
		return Scalar(f(a.scalar, b.scalar)), nil
	}
	if a.data != nil && b.data != nil && a.data.Size() > 1 && b.data.Size() > 1 &&
		!slices.Equal(a.data.Shape, b.data.Shape) {
		return Value{}, fmt.Errorf("%w: cannot broadcast shape %v against %v", ErrEvaluation, a.data.Shape, b.data.Shape)
	}
	tmpl := a.data
	if tmpl == nil || (b.data != nil && b.data.Size() > tmpl.Size()) {
		tmpl = b.data
	}
	ac, bc := operands(a), operands(b)
	nComp, err := broadcastLen(len(ac), len(bc))
	if err != nil {
		return Value{}, fmt.Errorf("%w: component count %d vs %d", ErrEvaluation, len(ac), len(bc))
	}
	comps := make([][]float64, nComp)
	for i := range comps {
		x, y := ac[min(i, len(ac)-1)], bc[min(i, len(bc)-1)]
		n, err := broadcastLen(len(x), len(y))
		if err != nil {
			return Value{}, fmt.Errorf("%w: cannot broadcast %d values against %d", ErrEvaluation, len(x), len(y))
		}
		out := make([]float64, n)
		if vec != nil && len(x) == len(y) {
			comps[i] = vec(out, x, y)
			continue
		}
		for j := range out {
			out[j] = f(x[min(j, len(x)-1)], y[min(j, len(y)-1)])
		}
		comps[i] = out
	}
	return Value{data: shapeLike(tmpl, comps)}, nil
}

func broadcastLen(n, m int) (int, error) {
	switch {
	case n == m:
		return n, nil
	case n == 1:
		return m, nil
	case m == 1:
		return n, nil
	}
	return 0, fmt.Errorf("lengths %d and %d do not broadcast", n, m)
}

// reduce collapses every component of v to one number. The result of a
// dataset reduction is a 0D dataset with one value per component. Empty
// components cannot be reduced.
func reduce(v Value, f func([]float64) float64) (Value, error) {
	if v.data == nil {
		return Scalar(f([]float64{v.scalar})), nil
	}
	comps := make([][]float64, len(v.data.Components))
	for i, c := range v.data.Components {
		if len(c) == 0 {
			return Value{}, fmt.Errorf("%w: cannot reduce empty component %d of %s", ErrEvaluation, i, v.data.FullName())
		}
		comps[i] = []float64{f(c)}
	}
	out := &dataset.Dataset{
		Name:       v.data.Name,
		Origin:     v.data.Origin,
		Source:     dataset.SourceCalculated,
		Dim:        dataset.Dim0D,
		Shape:      []int{1},
		Components: comps,
	}
	if len(v.data.Labels) == len(comps) {
		out.Labels = append([]string(nil), v.data.Labels...)
	}
	return Value{data: out}, nil
}

var (
	vecAdd = floats.AddTo
	vecSub = floats.SubTo
	vecMul = floats.MulTo
	vecDiv = floats.DivTo
)
