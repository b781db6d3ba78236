// Package settings holds the live option values of one computation model.
//
// A Tree is the mutable, mutex-guarded store the user and the model write
// to. Process calls receive a Snapshot, an immutable copy that can be decoded
// into the model's settings struct.
package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vk/datamixer/internal/config"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrUnknownOption is returned for paths the model does not declare.
	ErrUnknownOption = errors.New("unknown option")
	// ErrReadOnly is returned when a user writes a read-only status option.
	ErrReadOnly = errors.New("option is read-only")
	// ErrInvalidValue is returned when a value fails type or range checks.
	ErrInvalidValue = errors.New("invalid option value")
)

// Change records one option write.
type Change struct {
	Path string
	Old  cty.Value
	New  cty.Value
}

// Changed reports whether the write altered the stored value.
func (c Change) Changed() bool {
	return !c.Old.RawEquals(c.New)
}

// Tree is the live settings store of one model.
type Tree struct {
	def  *config.ModelDefinition
	conv config.Converter

	mu     sync.RWMutex
	values map[string]cty.Value
	leaves map[string]*config.OptionDefinition
}

// NewTree creates a tree holding the manifest defaults of def.
func NewTree(def *config.ModelDefinition, conv config.Converter) *Tree {
	t := &Tree{
		def:    def,
		conv:   conv,
		values: make(map[string]cty.Value),
		leaves: make(map[string]*config.OptionDefinition),
	}
	for _, leaf := range def.Leaves() {
		t.leaves[leaf.Path] = leaf
		t.values[leaf.Path] = leaf.Default
	}
	return t
}

// Definition returns the option definitions backing the tree.
func (t *Tree) Definition() *config.ModelDefinition {
	return t.def
}

// Set is a user write. Read-only options are rejected.
func (t *Tree) Set(path string, v cty.Value) (Change, error) {
	return t.write(path, v, false)
}

// Publish is a model write. Read-only status options may be updated.
func (t *Tree) Publish(path string, v cty.Value) (Change, error) {
	return t.write(path, v, true)
}

func (t *Tree) write(path string, v cty.Value, allowReadOnly bool) (Change, error) {
	def, ok := t.leaves[path]
	if !ok {
		return Change{}, fmt.Errorf("%w: %q in model %q", ErrUnknownOption, path, t.def.Name)
	}
	if def.ReadOnly && !allowReadOnly {
		return Change{}, fmt.Errorf("%w: %q", ErrReadOnly, path)
	}
	checked, err := def.Check(v)
	if err != nil {
		return Change{}, fmt.Errorf("%w: %q: %w", ErrInvalidValue, path, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	change := Change{Path: path, Old: t.values[path], New: checked}
	t.values[path] = checked
	return change, nil
}

// Apply writes several user values in path order. It stops at the first
// invalid value; writes before it stay applied.
func (t *Tree) Apply(values map[string]cty.Value) ([]Change, error) {
	paths := make([]string, 0, len(values))
	for p := range values {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var changes []Change
	for _, p := range paths {
		c, err := t.Set(p, values[p])
		if err != nil {
			return changes, err
		}
		if c.Changed() {
			changes = append(changes, c)
		}
	}
	return changes, nil
}

// Get returns the current value of one option.
func (t *Tree) Get(path string) (cty.Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[path]
	if !ok {
		return cty.NilVal, fmt.Errorf("%w: %q in model %q", ErrUnknownOption, path, t.def.Name)
	}
	return v, nil
}

// Snapshot returns an immutable copy of every value.
func (t *Tree) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	values := make(map[string]cty.Value, len(t.values))
	for k, v := range t.values {
		values[k] = v
	}
	return Snapshot{values: values, conv: t.conv}
}

// Snapshot is a point-in-time copy of a Tree. cty values are immutable, so
// sharing them is safe.
type Snapshot struct {
	values map[string]cty.Value
	conv   config.Converter
}

// Get returns the value stored under path.
func (s Snapshot) Get(path string) (cty.Value, bool) {
	v, ok := s.values[path]
	return v, ok
}

// Values returns a copy of every value keyed by path.
func (s Snapshot) Values() map[string]cty.Value {
	out := make(map[string]cty.Value, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Decode populates target, a pointer to a bggo-tagged struct.
func (s Snapshot) Decode(ctx context.Context, target any) error {
	if s.conv == nil {
		return errors.New("settings snapshot has no converter")
	}
	return s.conv.DecodeValues(ctx, target, s.values)
}
