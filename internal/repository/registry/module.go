package registry

import "go.uber.org/fx"

// Module provides the registry repository to Fx.
var Module = fx.Provide(NewRepository)
