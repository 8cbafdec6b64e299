package parcel

import "go.uber.org/fx"

// Module provides the parcel service to Fx.
var Module = fx.Provide(NewService)
