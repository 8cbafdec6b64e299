package http

import (
	"go.uber.org/fx"

	admintransport "github.com/trustdrive/stagelink/internal/transport/http/admin"
	authtransport "github.com/trustdrive/stagelink/internal/transport/http/auth"
	drivertransport "github.com/trustdrive/stagelink/internal/transport/http/driver"
	parceltransport "github.com/trustdrive/stagelink/internal/transport/http/parcel"
	stagetransport "github.com/trustdrive/stagelink/internal/transport/http/stage"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	authtransport.Module,
	parceltransport.Module,
	stagetransport.Module,
	admintransport.Module,
	drivertransport.Module,
)
