package parcel

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
)

// Module wires HTTP parcel handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, auth *authservice.Service, limiter cache.Limiter, cfg config.Config, logger *zap.Logger) {
		Register(e, h, auth, limiter, cfg, logger)
	}),
)
