package openvas

import (
	"go.uber.org/fx"
)

// Module provides the parser for fx injection.
var Module = fx.Module("openvas",
	fx.Provide(NewParser),
)
