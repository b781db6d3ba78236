package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/datamixer/internal/dataset"
	"github.com/vk/datamixer/internal/hcl"
	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/settings"
	"github.com/zclconf/go-cty/cty"
)

// NewModelEnv parses manifest and returns an environment with a fresh
// settings tree and a fixed channel listing. channels may be nil.
func NewModelEnv(t *testing.T, manifest []byte, channels map[dataset.Dim][]string) *model.Env {
	t.Helper()

	def, err := hcl.NewLoader().LoadManifest(context.Background(), "manifest.hcl", manifest)
	require.NoError(t, err)

	env := &model.Env{
		Name:     def.Name,
		Settings: settings.NewTree(def, hcl.NewConverter()),
	}
	if channels != nil {
		env.Channels = model.ChannelSourceFunc(func(context.Context) (map[dataset.Dim][]string, error) {
			return channels, nil
		})
	}
	return env
}

// SetOptions writes user values into env's settings tree.
func SetOptions(t *testing.T, env *model.Env, values map[string]cty.Value) {
	t.Helper()
	_, err := env.Settings.Apply(values)
	require.NoError(t, err)
}

// Trace builds a 1D dataset with an explicit axis.
func Trace(origin, name string, axis, values []float64) *dataset.Dataset {
	d := dataset.New(name, origin, values)
	d.Axes = []dataset.Axis{{Label: "x", Index: 0, Data: axis}}
	return d
}
