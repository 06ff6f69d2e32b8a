package export

import "go.uber.org/fx"

// Module provides the renderer registry.
var Module = fx.Module("export",
	fx.Provide(NewRegistry),
)
