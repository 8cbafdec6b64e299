package parcel

import "go.uber.org/fx"

// Module provides the parcel repository to Fx.
var Module = fx.Provide(NewRepository)
