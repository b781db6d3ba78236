package dataset

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// bundleDoc and datasetDoc are the on-disk shapes of a Bundle. JSON input is
// accepted too since it is valid YAML.
type bundleDoc struct {
	Name string        `yaml:"name"`
	Data []*datasetDoc `yaml:"data"`
}

type datasetDoc struct {
	Name   string      `yaml:"name"`
	Origin string      `yaml:"origin"`
	Source string      `yaml:"source,omitempty"`
	Dim    string      `yaml:"dim,omitempty"`
	Shape  []int       `yaml:"shape,flow,omitempty"`
	Labels []string    `yaml:"labels,flow,omitempty"`
	Data   [][]float64 `yaml:"data,flow"`
	Axes   []Axis      `yaml:"axes,omitempty"`
}

// Decoder reads a stream of bundles.
type Decoder struct {
	dec *yaml.Decoder
}

// NewDecoder returns a decoder reading YAML documents from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: yaml.NewDecoder(r)}
}

// Decode reads the next bundle. It returns io.EOF at the end of the stream.
func (d *Decoder) Decode() (*Bundle, error) {
	var doc bundleDoc
	if err := d.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode bundle: %w", err)
	}
	return doc.toBundle()
}

// Encoder writes a stream of bundles as YAML documents.
type Encoder struct {
	enc   *yaml.Encoder
	wrote bool
}

// NewEncoder returns an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &Encoder{enc: enc}
}

// Encode writes one bundle document.
func (e *Encoder) Encode(b *Bundle) error {
	doc := bundleDoc{Name: b.Name, Data: make([]*datasetDoc, 0, len(b.Data))}
	for _, d := range b.Data {
		doc.Data = append(doc.Data, &datasetDoc{
			Name:   d.Name,
			Origin: d.Origin,
			Source: string(d.Source),
			Dim:    d.Dim.String(),
			Shape:  d.Shape,
			Labels: d.Labels,
			Data:   d.Components,
			Axes:   d.Axes,
		})
	}
	e.wrote = true
	return e.enc.Encode(&doc)
}

// Close flushes the underlying YAML encoder. An encoder that wrote nothing
// leaves the stream empty.
func (e *Encoder) Close() error {
	if !e.wrote {
		return nil
	}
	return e.enc.Close()
}

func (doc *bundleDoc) toBundle() (*Bundle, error) {
	b := &Bundle{Name: doc.Name, Data: make([]*Dataset, 0, len(doc.Data))}
	for i, dd := range doc.Data {
		if dd == nil {
			return nil, fmt.Errorf("bundle %q: dataset %d is empty", doc.Name, i)
		}
		d := &Dataset{
			Name:       dd.Name,
			Origin:     dd.Origin,
			Source:     SourceRaw,
			Shape:      dd.Shape,
			Components: dd.Data,
			Labels:     dd.Labels,
			Axes:       dd.Axes,
		}
		if dd.Source != "" {
			d.Source = Source(dd.Source)
		}
		if len(d.Shape) == 0 && len(d.Components) > 0 {
			d.Shape = []int{len(d.Components[0])}
		}
		d.Dim = DimForShape(d.Shape)
		if dd.Dim != "" {
			dim, err := ParseDim(dd.Dim)
			if err != nil {
				return nil, fmt.Errorf("bundle %q, dataset %q: %w", doc.Name, dd.Name, err)
			}
			d.Dim = dim
		}
		b.Data = append(b.Data, d)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
