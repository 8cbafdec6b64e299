package driver

import (
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"

	"github.com/trustdrive/stagelink/internal/dto"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/presentation/http/response"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
	service "github.com/trustdrive/stagelink/internal/service/driver"
	"github.com/trustdrive/stagelink/internal/transport/http/middleware"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/trustdrive/stagelink/transport/http/driver")

// Handler exposes the driver dashboard over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a driver Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Everything here requires
// a driver credential.
func Register(e *echo.Echo, h *Handler, auth *authservice.Service) {
	g := e.Group("/driver", middleware.StaffGuard(auth, entity.RoleDriver))
	g.GET("/summary", h.summary)
	g.PUT("/log", h.recordLog)
}

func (h *Handler) summary(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "driver.summary")
	defer span.End()

	summary, err := h.svc.DashboardSummary(ctx, middleware.StaffFromContext(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	resp := dto.DriverSummaryResponse{
		Log:           dto.NewPassengerLogResponse(summary.Log),
		ActiveParcels: dto.NewParcelOrderResponses(summary.ActiveParcels),
	}
	if summary.Quote != nil {
		resp.Quote = &dto.QuoteResponse{Text: summary.Quote.Text, Author: summary.Quote.Author}
	}
	return b.WithData(resp).Build()
}

func (h *Handler) recordLog(c echo.Context) error {
	b := response.New(c)

	var payload service.LogRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "driver.recordLog")
	defer span.End()

	log, err := h.svc.RecordLog(ctx, middleware.StaffFromContext(c), payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewPassengerLogResponse(log)).Build()
}
