package registry

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"

	"github.com/vk/datamixer/internal/config"
	"github.com/vk/datamixer/internal/ctxlog"
	"github.com/vk/datamixer/internal/model"
)

// Module is the interface that all compiled-in models implement to be registered.
type Module interface {
	Register(r *Registry)
}

// RegisteredModel holds the compiled Go parts of a model.
type RegisteredModel struct {
	// Manifest is the HCL option manifest, usually embedded with go:embed.
	Manifest []byte
	// SettingsType is the bggo-tagged struct the model decodes snapshots into.
	SettingsType reflect.Type
	// New builds a fresh model instance.
	New func(env *model.Env) model.Model
}

// Registry holds all the registered models and their option definitions for
// a single application instance.
type Registry struct {
	ModelRegistry      map[string]*RegisteredModel
	DefinitionRegistry map[string]*config.ModelDefinition
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		ModelRegistry:      make(map[string]*RegisteredModel),
		DefinitionRegistry: make(map[string]*config.ModelDefinition),
	}
}

// RegisterModel registers the Go parts of a model under name.
func (r *Registry) RegisterModel(name string, m *RegisteredModel) {
	if _, exists := r.ModelRegistry[name]; exists {
		panic(fmt.Sprintf("model with name '%s' already registered", name))
	}
	if m == nil || m.New == nil {
		panic(fmt.Sprintf("model '%s' registered without a factory", name))
	}
	slog.Debug("Registering model.", "name", name)
	r.ModelRegistry[name] = m
}

// LoadDefinitions parses the manifest of every registered model.
func (r *Registry) LoadDefinitions(ctx context.Context, loader config.Loader) error {
	logger := ctxlog.FromContext(ctx)
	for _, name := range r.Names() {
		m := r.ModelRegistry[name]
		def, err := loader.LoadManifest(ctx, name+".hcl", m.Manifest)
		if err != nil {
			return fmt.Errorf("model '%s': %w", name, err)
		}
		if def.Name != name {
			return fmt.Errorf("model '%s': manifest declares model '%s'", name, def.Name)
		}
		r.DefinitionRegistry[name] = def
		logger.Debug("Model manifest loaded.", "model", name, "options", len(def.Leaves()))
	}
	return nil
}

// Names returns every registered model name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ModelRegistry))
	for name := range r.ModelRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the Go parts and the definition of a model.
func (r *Registry) Lookup(name string) (*RegisteredModel, *config.ModelDefinition, bool) {
	m, ok := r.ModelRegistry[name]
	if !ok {
		return nil, nil, false
	}
	def, ok := r.DefinitionRegistry[name]
	return m, def, ok
}
