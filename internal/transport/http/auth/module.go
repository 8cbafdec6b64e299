package auth

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
)

// Module wires HTTP auth handlers.
var Module = fx.Options(
	fx.Provide(NewHandler),
	fx.Invoke(func(e *echo.Echo, h *Handler, limiter cache.Limiter, cfg config.Config, logger *zap.Logger) {
		Register(e, h, limiter, cfg, logger)
	}),
)
