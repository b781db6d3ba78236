package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelNotFound is returned when no dataset has the requested full name.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrAmbiguousChannel is returned when several datasets share a full name.
	ErrAmbiguousChannel = errors.New("ambiguous channel")
)

// Bundle is an ordered collection of datasets taken together.
type Bundle struct {
	Name string
	Data []*Dataset
}

// NewBundle creates a bundle holding data in the given order.
func NewBundle(name string, data ...*Dataset) *Bundle {
	return &Bundle{Name: name, Data: data}
}

// Append adds datasets at the end of the bundle.
func (b *Bundle) Append(data ...*Dataset) {
	b.Data = append(b.Data, data...)
}

// Len returns the number of datasets.
func (b *Bundle) Len() int {
	return len(b.Data)
}

// At returns the dataset at position i.
func (b *Bundle) At(i int) (*Dataset, error) {
	if i < 0 || i >= len(b.Data) {
		return nil, fmt.Errorf("%w: index %d in bundle %q of length %d", ErrChannelNotFound, i, b.Name, len(b.Data))
	}
	return b.Data[i], nil
}

// Get returns the single dataset whose full name equals fullName.
func (b *Bundle) Get(fullName string) (*Dataset, error) {
	var found *Dataset
	for _, d := range b.Data {
		if d.FullName() != fullName {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %q appears more than once in bundle %q", ErrAmbiguousChannel, fullName, b.Name)
		}
		found = d
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q in bundle %q", ErrChannelNotFound, fullName, b.Name)
	}
	return found, nil
}

// FullNames returns the full names of datasets of the given dimensionality,
// in bundle order.
func (b *Bundle) FullNames(dim Dim) []string {
	names := []string{}
	for _, d := range b.Data {
		if d.Dim == dim {
			names = append(names, d.FullName())
		}
	}
	return names
}

// Channels groups every full name by dimensionality.
func (b *Bundle) Channels() map[Dim][]string {
	out := make(map[Dim][]string, len(AllDims))
	for _, dim := range AllDims {
		out[dim] = b.FullNames(dim)
	}
	return out
}

// Validate checks every dataset of the bundle.
func (b *Bundle) Validate() error {
	for _, d := range b.Data {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("bundle %q: %w", b.Name, err)
		}
	}
	return nil
}
