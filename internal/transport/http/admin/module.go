package admin

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	authservice "github.com/trustdrive/stagelink/internal/service/auth"
)

// Module wires HTTP admin handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, auth *authservice.Service) {
		Register(e, h, auth)
	}),
)
