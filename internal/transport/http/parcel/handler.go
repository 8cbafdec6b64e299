package parcel

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/dto"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/ordercode"
	"github.com/trustdrive/stagelink/internal/presentation/http/response"
	authservice "github.com/trustdrive/stagelink/internal/service/auth"
	service "github.com/trustdrive/stagelink/internal/service/parcel"
	"github.com/trustdrive/stagelink/internal/transport/http/middleware"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/trustdrive/stagelink/transport/http/parcel")

// Handler exposes the parcel lifecycle over HTTP: the stage-manager surface
// for dispatch and arrival, and the customer surface for lookup and pickup.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs a parcel Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with the provided Echo instance. Staff routes require a
// stage-manager credential; customer routes ride the parcel credential.
func Register(e *echo.Echo, h *Handler, auth *authservice.Service, limiter cache.Limiter, cfg config.Config, logger *zap.Logger) {
	staff := e.Group("/stage/parcels", middleware.StaffGuard(auth, entity.RoleStageManager))
	staff.POST("", h.send)
	staff.GET("/outgoing", h.outgoing)
	staff.GET("/incoming", h.incoming)
	staff.PATCH("/:orderCode/arrival", h.confirmArrival)

	e.POST("/auth/parcel-login", h.lookup, middleware.RateLimit(limiter, cfg.RateLimit, "auth.parcel_login", logger))

	customer := e.Group("/parcel", middleware.ParcelGuard(h.svc))
	customer.GET("/:orderCode", h.details)
	customer.POST("/:orderCode/pickup", h.confirmPickup)
}

func (h *Handler) send(c echo.Context) error {
	b := response.New(c)

	var payload service.SendRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.send")
	defer span.End()

	order, err := h.svc.Send(ctx, middleware.StaffFromContext(c), payload)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithStatus(http.StatusCreated).WithData(dto.NewParcelOrderResponse(order)).Build()
}

func (h *Handler) outgoing(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.outgoing")
	defer span.End()

	orders, err := h.svc.Outgoing(ctx, middleware.StaffFromContext(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewParcelOrderResponses(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) incoming(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.incoming")
	defer span.End()

	orders, err := h.svc.Incoming(ctx, middleware.StaffFromContext(c))
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewParcelOrderResponses(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) confirmArrival(c echo.Context) error {
	b := response.New(c)
	code := c.Param("orderCode")

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.confirmArrival", trace.WithAttributes(attribute.String("parcel.code", code)))
	defer span.End()

	order, err := h.svc.ConfirmArrival(ctx, middleware.StaffFromContext(c), code)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewParcelOrderResponse(order)).Build()
}

func (h *Handler) lookup(c echo.Context) error {
	b := response.New(c)

	var payload struct {
		OrderCode    string `json:"orderCode"`
		CustomerName string `json:"customerName"`
	}
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.lookup")
	defer span.End()

	parcelToken, order, err := h.svc.Lookup(ctx, payload.OrderCode, payload.CustomerName)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.ParcelLookupResponse{
		ParcelToken: parcelToken,
		Order:       dto.NewParcelOrderResponse(order),
	}).Build()
}

// resolvedOrder returns the guard-resolved order, rejecting requests whose
// path code does not match the credential's order. The credential, not the
// path, is authoritative.
func resolvedOrder(c echo.Context) (*entity.ParcelOrder, error) {
	order := middleware.OrderFromContext(c)
	if order == nil {
		return nil, errorbank.Unauthorized("missing parcel token")
	}
	if ordercode.Normalize(c.Param("orderCode")) != order.OrderCode {
		return nil, errorbank.Forbidden("parcel token does not cover this order")
	}
	return order, nil
}

func (h *Handler) details(c echo.Context) error {
	b := response.New(c)
	order, err := resolvedOrder(c)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.NewParcelOrderResponse(order)).Build()
}

func (h *Handler) confirmPickup(c echo.Context) error {
	b := response.New(c)
	order, err := resolvedOrder(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "parcels.confirmPickup", trace.WithAttributes(attribute.String("parcel.code", order.OrderCode)))
	defer span.End()

	if err := h.svc.ConfirmPickup(ctx, order); err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(dto.PickupResponse{Message: "parcel handed over, order closed"}).Build()
}
