package testutil

import "github.com/vk/datamixer/internal/registry"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single model.
type SimpleModule struct {
	Name  string
	Model *registry.RegisteredModel
}

// Register implements the registry.Module interface.
func (m *SimpleModule) Register(r *registry.Registry) {
	if m.Name != "" && m.Model != nil {
		r.RegisterModel(m.Name, m.Model)
	}
}
