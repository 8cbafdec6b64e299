package driverlog

import "go.uber.org/fx"

// Module provides the driver log repository to Fx.
var Module = fx.Provide(NewRepository)
