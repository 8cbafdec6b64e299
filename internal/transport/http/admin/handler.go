package admin

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
	service "github.com/trustdrive/stagelink/internal/service/admin"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
	"github.com/trustdrive/stagelink/internal/transport/http/middleware"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/trustdrive/stagelink/transport/http/admin")

// Handler exposes the admin registry surface over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an admin Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Everything here requires
// an admin credential.
func Register(e *echo.Echo, h *Handler, auth *authservice.Service) {
	g := e.Group("/admin", middleware.StaffGuard(auth, entity.RoleAdmin))
	g.POST("/stages", h.createStage)
	g.GET("/stages", h.listStages)
	g.POST("/managers", h.createManager)
	g.PUT("/stages/:id/manager", h.assignManager)
	g.POST("/drivers", h.registerDriver)
	g.GET("/drivers", h.listDrivers)
}

func (h *Handler) createStage(c echo.Context) error {
	b := response.New(c)

	var payload service.StageRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.createStage")
	defer span.End()

	stage, err := h.svc.CreateStage(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewStageResponse(stage)).Build()
}

func (h *Handler) listStages(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.listStages")
	defer span.End()

	stages, err := h.svc.Stages(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewStageResponses(stages)).WithMeta("count", len(stages)).Build()
}

func (h *Handler) createManager(c echo.Context) error {
	b := response.New(c)

	var payload service.StaffRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.createManager")
	defer span.End()

	user, err := h.svc.CreateManager(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewSafeUser(user)).Build()
}

func (h *Handler) assignManager(c echo.Context) error {
	b := response.New(c)

	stageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid stage id", errorbank.WithCause(err))).Build()
	}
	var payload struct {
		ManagerID int64 `json:"managerId"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.assignManager", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	if err := h.svc.AssignManager(ctx, stageID, payload.ManagerID); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(map[string]any{"stageId": stageID, "managerId": payload.ManagerID}).Build()
}

func (h *Handler) registerDriver(c echo.Context) error {
	b := response.New(c)

	var payload service.DriverRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.registerDriver")
	defer span.End()

	user, err := h.svc.RegisterDriver(ctx, payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewSafeUser(user)).Build()
}

func (h *Handler) listDrivers(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "admin.listDrivers")
	defer span.End()

	drivers, err := h.svc.Drivers(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewSafeUsers(drivers)).WithMeta("count", len(drivers)).Build()
}
