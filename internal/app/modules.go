package app

import (
	"github.com/specialistvlad/computesim/internal/handlers"
	"github.com/specialistvlad/computesim/modules/print"
	"github.com/specialistvlad/computesim/modules/sum"
)

// coreModules is the definitive list of all step handler modules that are
// compiled into the computesim binary.
var coreModules = []handlers.Module{
	&sum.Module{},
	&print.Module{},
}
