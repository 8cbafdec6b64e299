package stage

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustdrive/stagelink/internal/dto"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/presentation/http/response"
	adminservice "github.com/trustdrive/stagelink/internal/service/admin"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
	service "github.com/trustdrive/stagelink/internal/service/movement"
	"github.com/trustdrive/stagelink/internal/transport/http/middleware"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/trustdrive/stagelink/transport/http/stage")

// Handler exposes the stage-manager operational surface: the vehicle
// movement ledger and the stage resource pick-lists.
type Handler struct {
	movements *service.Service
	admin     *adminservice.Service
}

// NewHandler constructs a stage Handler.
func NewHandler(movements *service.Service, admin *adminservice.Service) *Handler {
	return &Handler{movements: movements, admin: admin}
}

// Register routes with the provided Echo instance.
func Register(e *echo.Echo, h *Handler, auth *authservice.Service) {
	g := e.Group("/stage/vehicles", middleware.StaffGuard(auth, entity.RoleStageManager))
	g.POST("/departures", h.markDeparture)
	g.PATCH("/departures/:id/arrival", h.markArrival)
	g.GET("/stats/today", h.dailyStats)

	e.GET("/stages", h.listStages,
		middleware.StaffGuard(auth, entity.RoleStageManager, entity.RoleAdmin))
	e.GET("/stages/:id/resources", h.resources,
		middleware.StaffGuard(auth, entity.RoleStageManager, entity.RoleAdmin))
}

func (h *Handler) markDeparture(c echo.Context) error {
	b := response.New(c)

	var payload service.DepartureRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "movements.markDeparture")
	defer span.End()

	movement, err := h.movements.MarkDeparture(ctx, middleware.StaffFromContext(c), payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewMovementResponse(movement)).Build()
}

func (h *Handler) markArrival(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid movement id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "movements.markArrival", trace.WithAttributes(attribute.Int64("movement.id", id)))
	defer span.End()

	movement, err := h.movements.MarkArrival(ctx, middleware.StaffFromContext(c), id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewMovementResponse(movement)).Build()
}

func (h *Handler) dailyStats(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "movements.dailyStats")
	defer span.End()

	stats, err := h.movements.Stats(ctx, middleware.StaffFromContext(c), c.QueryParam("day"))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.DailyStatsResponse{
		Day:           stats.Day,
		DepartedCount: stats.Departed,
		ArrivedCount:  stats.Arrived,
		Active:        dto.NewMovementResponses(stats.Active),
	}).Build()
}

// listStages returns the receiver pick-list for the send-parcel form.
func (h *Handler) listStages(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "stages.list")
	defer span.End()

	stages, err := h.admin.Stages(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewStageResponses(stages)).Build()
}

func (h *Handler) resources(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid stage id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "stages.resources", trace.WithAttributes(attribute.Int64("stage.id", id)))
	defer span.End()

	vehicles, drivers, err := h.admin.StageResources(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.StageResourcesResponse{
		Vehicles: dto.NewVehicleResponses(vehicles),
		Drivers:  dto.NewSafeUsers(drivers),
	}).Build()
}
