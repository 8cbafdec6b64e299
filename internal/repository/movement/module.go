package movement

import "go.uber.org/fx"

// Module provides the movement repository to Fx.
var Module = fx.Provide(NewRepository)
