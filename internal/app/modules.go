package app

import (
	"github.com/vk/datamixer/internal/registry"
	"github.com/vk/datamixer/modules/equation"
	"github.com/vk/datamixer/modules/fit"
	"github.com/vk/datamixer/modules/harmonics"
)

// coreModules is the definitive list of all models that are compiled into
// the datamixer binary.
var coreModules = []registry.Module{
	&equation.Module{},
	&fit.Module{},
	&harmonics.Module{},
}
