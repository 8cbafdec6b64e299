package auth

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/dto"
	"github.com/trustdrive/stagelink/internal/presentation/http/response"
	service "github.com/trustdrive/stagelink/internal/service/auth"
	"github.com/trustdrive/stagelink/internal/transport/http/middleware"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/trustdrive/stagelink/transport/http/auth")

// Handler exposes staff authentication over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an auth Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. The login endpoint is
// rate limited per client IP.
func Register(e *echo.Echo, h *Handler, limiter cache.Limiter, cfg config.Config, logger *zap.Logger) {
	g := e.Group("/auth")
	g.POST("/login", h.login, middleware.RateLimit(limiter, cfg.RateLimit, "auth.login", logger))
	g.GET("/me", h.me, middleware.StaffGuard(h.svc))
}

func (h *Handler) login(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "auth.login")
	defer span.End()

	signed, user, err := h.svc.Login(ctx, payload.Email, payload.Password)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.LoginResponse{Token: signed, User: dto.NewSafeUser(user)}).Build()
}

func (h *Handler) me(c echo.Context) error {
	b := response.New(c)
	user := middleware.StaffFromContext(c)
	if user == nil {
		return b.WithError(errorbank.Unauthorized("missing bearer token")).Build()
	}
	return b.WithData(dto.NewSafeUser(user)).Build()
}
