package mixer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/metrics"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/internal/settings"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrNoModel is returned by operations that need a selected model.
	ErrNoModel = errors.New("no model selected")
	// ErrUnknownModel is returned by Select for unregistered names.
	ErrUnknownModel = errors.New("unknown model")
)

// Subscriber receives every successful result.
type Subscriber func(ctx context.Context, out *dataset.Bundle)

// Options configure a Mixer.
type Options struct {
	// ProcessTimeout bounds each Process call. Zero means no bound.
	ProcessTimeout time.Duration
	// Channels lists available channels for model Init. When nil the
	// channels of the last fed bundle are used.
	Channels model.ChannelSource
}

// Mixer selects a model and feeds it bundles.
type Mixer struct {
	reg      *registry.Registry
	conv     config.Converter
	opts     Options
	id       string
	lastSeen *LastSeen

	// mu serializes every call into the active model.
	mu     sync.Mutex
	name   string
	active model.Model
	tree   *settings.Tree

	subsMu sync.RWMutex
	subs   []Subscriber
}

// New creates a Mixer over a loaded and validated registry.
func New(reg *registry.Registry, conv config.Converter, opts Options) *Mixer {
	m := &Mixer{
		reg:      reg,
		conv:     conv,
		opts:     opts,
		id:       uuid.NewString(),
		lastSeen: &LastSeen{},
	}
	if m.opts.Channels == nil {
		m.opts.Channels = m.lastSeen
	}
	return m
}

// ID identifies this mixer session in logs.
func (m *Mixer) ID() string {
	return m.id
}

// Models lists the selectable model names.
func (m *Mixer) Models() []string {
	return m.reg.Names()
}

// Active returns the selected model name, or "" when none is selected.
func (m *Mixer) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Select discards the current model, builds the named one with its manifest
// defaults and runs its Init. On failure the previous model stays active.
func (m *Mixer) Select(ctx context.Context, name string) error {
	rm, def, ok := m.reg.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: '%s' (available: %v)", ErrUnknownModel, name, m.reg.Names())
	}
	ctx, logger := ctxlog.With(ctx, "mixer", m.id, "model", name)

	tree := settings.NewTree(def, m.conv)
	inst := rm.New(&model.Env{Name: name, Settings: tree, Channels: m.opts.Channels})

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := inst.Init(ctx); err != nil {
		return fmt.Errorf("initializing model '%s': %w", name, err)
	}
	m.name, m.active, m.tree = name, inst, tree
	logger.Info("Model selected.", "options", len(def.Leaves()))
	return nil
}

// Settings returns the live settings tree of the active model.
func (m *Mixer) Settings() (*settings.Tree, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoModel
	}
	return m.tree, nil
}

// UpdateSetting writes one user value and notifies the model when the value
// changed.
func (m *Mixer) UpdateSetting(ctx context.Context, path string, v cty.Value) error {
	return m.ApplySettings(ctx, map[string]cty.Value{path: v})
}

// ApplySettings writes several user values in path order and notifies the
// model once per changed option.
func (m *Mixer) ApplySettings(ctx context.Context, values map[string]cty.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoModel
	}
	ctx, logger := ctxlog.With(ctx, "mixer", m.id, "model", m.name)

	changes, applyErr := m.tree.Apply(values)
	for _, c := range changes {
		metrics.SettingsChanges.WithLabelValues(m.name).Inc()
		logger.Debug("Option changed.", "path", c.Path)
		if err := m.active.UpdateSettings(ctx, c); err != nil {
			return fmt.Errorf("model '%s' rejected change of '%s': %w", m.name, c.Path, err)
		}
	}
	return applyErr
}

// Subscribe registers s. Subscribers are called in registration order.
func (m *Mixer) Subscribe(s Subscriber) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	m.subs = append(m.subs, s)
}

// Process runs the active model on in without notifying subscribers.
func (m *Mixer) Process(ctx context.Context, in *dataset.Bundle) (*dataset.Bundle, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	m.lastSeen.Observe(in)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, ErrNoModel
	}
	ctx, logger := ctxlog.With(ctx, "mixer", m.id, "model", m.name)
	if m.opts.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.opts.ProcessTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := m.active.Process(ctx, m.tree.Snapshot(), in)
	elapsed := time.Since(start)
	metrics.RecordProcess(m.name, err, elapsed)
	if err != nil {
		return nil, fmt.Errorf("model '%s' failed on bundle %q: %w", m.name, in.Name, err)
	}
	logger.Debug("Bundle processed.", "input", in.Name, "output", out.Name, "datasets", out.Len(), "duration", elapsed)
	return out, nil
}

// Feed processes in and emits the result. A failure is logged and returned;
// nothing is emitted for that bundle.
func (m *Mixer) Feed(ctx context.Context, in *dataset.Bundle) error {
	out, err := m.Process(ctx, in)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("No result for bundle.", "mixer", m.id, "bundle", in.Name, "error", err)
		return err
	}
	m.emit(ctx, out)
	return nil
}

func (m *Mixer) emit(ctx context.Context, out *dataset.Bundle) {
	m.subsMu.RLock()
	subs := append([]Subscriber(nil), m.subs...)
	m.subsMu.RUnlock()
	for _, s := range subs {
		s(ctx, out)
	}
}

// Run feeds bundles from in until it is closed or ctx is done. Failed bundles
// do not stop the loop.
func (m *Mixer) Run(ctx context.Context, in <-chan *dataset.Bundle) error {
	logger := ctxlog.FromContext(ctx)
	var fed, failed int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-in:
			if !ok {
				logger.Info("Input closed.", "mixer", m.id, "bundles", fed, "failed", failed)
				return nil
			}
			fed++
			if err := m.Feed(ctx, b); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failed++
			}
		}
	}
}
