package testutil

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/internal/settings"
)

// ErrRecorderFail is what a RecorderModel returns for bundles it is told to
// fail.
var ErrRecorderFail = errors.New("recorder: forced failure")

// RecorderManifest declares the options of a RecorderModel.
const RecorderManifest = `
model "recorder" {
  option "tag" {
    type    = text
    default = "r"
  }

  option "status" {
    type     = text
    readonly = true
    default  = ""
  }
}
`

// RecorderSettings is the settings struct of a RecorderModel.
type RecorderSettings struct {
	Tag    string `bggo:"tag"`
	Status string `bggo:"status"`
}

// ProcessRecord holds the start and end times of one Process call.
type ProcessRecord struct {
	Bundle string
	Start  time.Time
	End    time.Time
}

// RecorderModel is a shared, self-contained model for mixer tests. It echoes
// each bundle under the name "<tag>:<input name>" and records every call.
type RecorderModel struct {
	// Sleep delays every Process call.
	Sleep time.Duration
	// Fail lists input bundle names to fail.
	Fail map[string]bool

	mu      sync.Mutex
	inits   int
	changes []settings.Change
	records []ProcessRecord
	env     *model.Env
}

// Module returns a module registering m as "recorder".
func (m *RecorderModel) Module() registry.Module {
	return &SimpleModule{Name: "recorder", Model: &registry.RegisteredModel{
		Manifest:     []byte(RecorderManifest),
		SettingsType: reflect.TypeOf(RecorderSettings{}),
		New: func(env *model.Env) model.Model {
			m.mu.Lock()
			m.env = env
			m.mu.Unlock()
			return m
		},
	}}
}

// Init implements model.Model.
func (m *RecorderModel) Init(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return nil
}

// UpdateSettings implements model.Model.
func (m *RecorderModel) UpdateSettings(_ context.Context, c settings.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, c)
	return nil
}

// Process implements model.Model.
func (m *RecorderModel) Process(ctx context.Context, snap settings.Snapshot, in *dataset.Bundle) (*dataset.Bundle, error) {
	start := time.Now()
	if m.Sleep > 0 {
		select {
		case <-time.After(m.Sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	var s RecorderSettings
	if err := snap.Decode(ctx, &s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.records = append(m.records, ProcessRecord{Bundle: in.Name, Start: start, End: time.Now()})
	fail := m.Fail[in.Name]
	m.mu.Unlock()

	if fail {
		return nil, ErrRecorderFail
	}
	return dataset.NewBundle(s.Tag+":"+in.Name, in.Data...), nil
}

// Inits returns how many times Init ran.
func (m *RecorderModel) Inits() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits
}

// Changes returns every change reported through UpdateSettings.
func (m *RecorderModel) Changes() []settings.Change {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]settings.Change(nil), m.changes...)
}

// Records returns every recorded Process call in call order.
func (m *RecorderModel) Records() []ProcessRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ProcessRecord(nil), m.records...)
}

// Env returns the environment the model was last constructed with.
func (m *RecorderModel) Env() *model.Env {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.env
}
