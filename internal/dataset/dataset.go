package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// Dim is the dimensionality class of a dataset's signal.
type Dim int

const (
	Dim0D Dim = iota
	Dim1D
	Dim2D
	DimND
)

// AllDims lists the dimensionality classes in display order.
var AllDims = []Dim{Dim0D, Dim1D, Dim2D, DimND}

// String returns the short label used in configuration, e.g. "0D".
func (d Dim) String() string {
	switch d {
	case Dim0D:
		return "0D"
	case Dim1D:
		return "1D"
	case Dim2D:
		return "2D"
	case DimND:
		return "ND"
	default:
		return fmt.Sprintf("Dim(%d)", int(d))
	}
}

// ParseDim parses a label such as "1D" (case-insensitive).
func ParseDim(s string) (Dim, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "0D":
		return Dim0D, nil
	case "1D":
		return Dim1D, nil
	case "2D":
		return Dim2D, nil
	case "ND":
		return DimND, nil
	}
	return 0, fmt.Errorf("unknown dimensionality %q", s)
}

// DimForShape infers the dimensionality class from a signal shape.
func DimForShape(shape []int) Dim {
	switch {
	case len(shape) == 0:
		return Dim0D
	case len(shape) == 1 && shape[0] == 1:
		return Dim0D
	case len(shape) == 1:
		return Dim1D
	case len(shape) == 2:
		return Dim2D
	default:
		return DimND
	}
}

// Source tells whether a dataset was acquired or computed.
type Source string

const (
	SourceRaw        Source = "raw"
	SourceCalculated Source = "calculated"
)

// Axis is the coordinate metadata for one signal dimension.
type Axis struct {
	Label string    `yaml:"label,omitempty"`
	Units string    `yaml:"units,omitempty"`
	Index int       `yaml:"index"`
	Data  []float64 `yaml:"data"`
}

// Dataset is one named numeric series, scalar or array, with optional axes.
//
// Every component holds prod(Shape) values in row-major order.
type Dataset struct {
	Name       string
	Origin     string
	Source     Source
	Dim        Dim
	Shape      []int
	Components [][]float64
	Labels     []string
	Axes       []Axis
}

var (
	// ErrInvalidDataset is returned by Validate for inconsistent payloads.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrUnsupportedDim is returned by operations restricted to one class.
	ErrUnsupportedDim = errors.New("unsupported dimensionality")
)

// New builds a raw dataset and infers its shape from the first component.
// A single-valued component yields a 0D dataset.
func New(name, origin string, components ...[]float64) *Dataset {
	shape := []int{1}
	if len(components) > 0 {
		shape = []int{len(components[0])}
	}
	return &Dataset{
		Name:       name,
		Origin:     origin,
		Source:     SourceRaw,
		Dim:        DimForShape(shape),
		Shape:      shape,
		Components: components,
	}
}

// FullName returns the canonical "origin/name" channel identifier.
func (d *Dataset) FullName() string {
	return d.Origin + "/" + d.Name
}

// Size is the number of values in each component.
func (d *Dataset) Size() int {
	if len(d.Shape) == 0 {
		return 1
	}
	n := 1
	for _, s := range d.Shape {
		n *= s
	}
	return n
}

// Validate checks that the payload and axes are consistent with Shape.
func (d *Dataset) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDataset)
	}
	if len(d.Components) == 0 {
		return fmt.Errorf("%w: %s has no components", ErrInvalidDataset, d.FullName())
	}
	size := d.Size()
	for i, c := range d.Components {
		if len(c) != size {
			return fmt.Errorf("%w: %s component %d has %d values, shape %v wants %d",
				ErrInvalidDataset, d.FullName(), i, len(c), d.Shape, size)
		}
	}
	if len(d.Labels) > 0 && len(d.Labels) != len(d.Components) {
		return fmt.Errorf("%w: %s has %d labels for %d components",
			ErrInvalidDataset, d.FullName(), len(d.Labels), len(d.Components))
	}
	for _, ax := range d.Axes {
		if ax.Index < 0 || ax.Index >= len(d.Shape) {
			return fmt.Errorf("%w: %s axis %q has index %d outside shape %v",
				ErrInvalidDataset, d.FullName(), ax.Label, ax.Index, d.Shape)
		}
		if len(ax.Data) != d.Shape[ax.Index] {
			return fmt.Errorf("%w: %s axis %q has %d values, dimension is %d",
				ErrInvalidDataset, d.FullName(), ax.Label, len(ax.Data), d.Shape[ax.Index])
		}
	}
	return nil
}

// DeepCopy returns a dataset sharing no memory with d.
func (d *Dataset) DeepCopy() *Dataset {
	out := &Dataset{
		Name:   d.Name,
		Origin: d.Origin,
		Source: d.Source,
		Dim:    d.Dim,
		Shape:  append([]int(nil), d.Shape...),
		Labels: append([]string(nil), d.Labels...),
	}
	out.Components = make([][]float64, len(d.Components))
	for i, c := range d.Components {
		out.Components[i] = append([]float64(nil), c...)
	}
	if d.Axes != nil {
		out.Axes = make([]Axis, len(d.Axes))
		for i, ax := range d.Axes {
			ax.Data = append([]float64(nil), ax.Data...)
			out.Axes[i] = ax
		}
	}
	return out
}

// Axis returns the axis attached to signal dimension index, if any.
func (d *Dataset) Axis(index int) (Axis, bool) {
	for _, ax := range d.Axes {
		if ax.Index == index {
			return ax, true
		}
	}
	return Axis{}, false
}

// AxisData returns the coordinates of dimension index, falling back to
// plain indices when no axis is attached.
func (d *Dataset) AxisData(index int) []float64 {
	if ax, ok := d.Axis(index); ok {
		return ax.Data
	}
	n := 1
	if index < len(d.Shape) {
		n = d.Shape[index]
	}
	return indexAxis(n)
}

// CreateMissingAxes attaches an index-based axis to every signal dimension
// of a 1D or 2D dataset that has none.
func (d *Dataset) CreateMissingAxes() {
	if d.Dim == Dim0D || d.Dim == DimND {
		return
	}
	for i, n := range d.Shape {
		if _, ok := d.Axis(i); ok {
			continue
		}
		d.Axes = append(d.Axes, Axis{Index: i, Data: indexAxis(n)})
	}
}

// Crop keeps the half-open index range [start, stop) of a 1D dataset.
// Axes are cropped alongside the data.
func (d *Dataset) Crop(start, stop int) error {
	if d.Dim != Dim1D {
		return fmt.Errorf("%w: cannot crop %s data", ErrUnsupportedDim, d.Dim)
	}
	n := d.Size()
	if start < 0 || stop > n || start >= stop {
		return fmt.Errorf("crop window [%d, %d) outside [0, %d)", start, stop, n)
	}
	for i, c := range d.Components {
		d.Components[i] = append([]float64(nil), c[start:stop]...)
	}
	for i, ax := range d.Axes {
		d.Axes[i].Data = append([]float64(nil), ax.Data[start:stop]...)
	}
	d.Shape = []int{stop - start}
	d.Dim = DimForShape(d.Shape)
	if d.Dim == Dim0D {
		// a single-point crop is still a 1D trace
		d.Dim = Dim1D
	}
	return nil
}

func indexAxis(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
