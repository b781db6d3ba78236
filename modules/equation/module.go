package equation

import (
	_ "embed"
	"reflect"

	"github.com/vk/datamixer/internal/model"
	"github.com/vk/datamixer/internal/registry"
)

// Name is the registered model name.
const Name = "equation"

//go:embed manifest.hcl
var manifest []byte

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the model with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterModel(Name, &registry.RegisteredModel{
		Manifest:     manifest,
		SettingsType: reflect.TypeOf(Settings{}),
		New:          func(env *model.Env) model.Model { return New(env) },
	})
}
