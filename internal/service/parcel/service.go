package parcel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/cache"
	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/messaging"
	"github.com/trustdrive/stagelink/internal/observability"
	"github.com/trustdrive/stagelink/internal/ordercode"
	repo "github.com/trustdrive/stagelink/internal/repository/parcel"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/internal/token"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/trustdrive/stagelink/service/parcel")

// Attempts at minting a fresh order code before giving up.
const codeAttempts = 5

// Default transit window when the sender does not supply an ETA.
const defaultTransitWindow = 4 * time.Hour

// orderStore is the slice of the parcel repository the service needs.
type orderStore interface {
	Create(ctx context.Context, order *entity.ParcelOrder) error
	ByCode(ctx context.Context, code string) (*entity.ParcelOrder, error)
	ByCodeAndCustomer(ctx context.Context, code, customerName string) (*entity.ParcelOrder, error)
	ListBySender(ctx context.Context, stageID int64) ([]entity.ParcelOrder, error)
	ListByReceiver(ctx context.Context, stageID int64) ([]entity.ParcelOrder, error)
	ListActiveByDriver(ctx context.Context, driverID int64) ([]entity.ParcelOrder, error)
	MarkArrived(ctx context.Context, id int64, at time.Time) error
	MarkPickedUp(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
}

// referenceStore resolves the stage, vehicle and driver references on a new
// order. Existence is the only requirement here; stage-scoped lookups are
// reserved for the movement ledger.
type referenceStore interface {
	StageByID(ctx context.Context, id int64) (*entity.Stage, error)
	VehicleByID(ctx context.Context, id int64) (*entity.Vehicle, error)
	UserByID(ctx context.Context, id int64) (*entity.User, error)
}

// tokenIssuer mints and verifies the per-order customer credential.
type tokenIssuer interface {
	Sign(subject string) (string, error)
	Verify(raw string) (string, error)
}

// Service encapsulates the parcel order lifecycle.
type Service struct {
	orders    orderStore
	refs      referenceStore
	parcelTok tokenIssuer
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	metrics   *observability.ParcelMetrics
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// SendRequest is the input for dispatching a new parcel.
type SendRequest struct {
	ReceiverStageID int64      `json:"receiverStageId"`
	VehicleID       int64      `json:"vehicleId"`
	DriverID        int64      `json:"driverId"`
	CustomerName    string     `json:"customerName"`
	CustomerPhone   string     `json:"customerPhone"`
	Destination     string     `json:"destination"`
	Amount          float64    `json:"amount"`
	ParcelCount     int        `json:"parcelCount"`
	Description     string     `json:"description"`
	DepartureTime   *time.Time `json:"departureTime"`
	ETA             *time.Time `json:"eta"`
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders    *repo.Repository
	Registry  *registry.Repository
	Tokens    *token.Issuers
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
	Metrics   *observability.ParcelMetrics
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:    p.Orders,
		refs:      p.Registry,
		parcelTok: p.Tokens.Parcel,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		metrics:   p.Metrics,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Send dispatches a new parcel from the acting manager's stage. The order
// starts in transit; its code is regenerated on a collision.
func (s *Service) Send(ctx context.Context, actor *entity.User, req SendRequest) (*entity.ParcelOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ParcelService.Send")
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.CustomerName == "" || req.CustomerPhone == "" || req.Destination == "" {
		return nil, errorbank.BadRequest("customer name, phone and destination are required")
	}
	if req.ParcelCount <= 0 {
		req.ParcelCount = 1
	}
	senderStageID := *actor.StageID

	receiver, err := s.refs.StageByID(ctx, req.ReceiverStageID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("receiver stage not found")
		}
		return nil, s.internal(span, "failed to load receiver stage", err)
	}
	vehicle, err := s.refs.VehicleByID(ctx, req.VehicleID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("vehicle not found")
		}
		return nil, s.internal(span, "failed to load vehicle", err)
	}
	driver, err := s.refs.UserByID(ctx, req.DriverID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("driver not found")
		}
		return nil, s.internal(span, "failed to load driver", err)
	}

	now := time.Now().UTC()
	departure := now
	if req.DepartureTime != nil {
		departure = req.DepartureTime.UTC()
	}
	// The default ETA is anchored to now, not the departure time: a
	// backdated departure must not produce an ETA already in the past.
	eta := now.Add(defaultTransitWindow)
	if req.ETA != nil {
		eta = req.ETA.UTC()
	}

	order := &entity.ParcelOrder{
		SenderStageID:   senderStageID,
		ReceiverStageID: receiver.ID,
		VehicleID:       vehicle.ID,
		DriverID:        driver.ID,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		Destination:     req.Destination,
		Amount:          req.Amount,
		ParcelCount:     req.ParcelCount,
		Description:     strings.TrimSpace(req.Description),
		DepartureTime:   departure,
		ETA:             eta,
		Status:          entity.ParcelInTransit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 0; ; attempt++ {
		order.OrderCode = ordercode.Generate()
		err = s.orders.Create(ctx, order)
		if err == nil {
			break
		}
		if errors.Is(err, repo.ErrDuplicate) && attempt < codeAttempts-1 {
			continue
		}
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, errorbank.DuplicateKey("could not allocate a unique order code")
		}
		return nil, s.internal(span, "failed to create parcel order", err)
	}
	span.SetAttributes(attribute.String("parcel.code", order.OrderCode))

	order.ReceiverStage = receiver
	order.Vehicle = vehicle
	order.Driver = driver

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("parcels cache write failed", zap.String("code", order.OrderCode), zap.Error(err))
	}
	s.publishEvent(ctx, eventParcelCreated, order)
	if s.metrics != nil {
		s.metrics.OrdersCreated.Inc()
	}
	return order, nil
}

// Outgoing lists parcels dispatched from the actor's stage.
func (s *Service) Outgoing(ctx context.Context, actor *entity.User) ([]entity.ParcelOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ParcelService.Outgoing")
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	orders, err := s.orders.ListBySender(ctx, *actor.StageID)
	if err != nil {
		return nil, s.internal(span, "failed to list outgoing parcels", err)
	}
	return orders, nil
}

// Incoming lists parcels still in flight toward the actor's stage.
func (s *Service) Incoming(ctx context.Context, actor *entity.User) ([]entity.ParcelOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ParcelService.Incoming")
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	orders, err := s.orders.ListByReceiver(ctx, *actor.StageID)
	if err != nil {
		return nil, s.internal(span, "failed to list incoming parcels", err)
	}
	return orders, nil
}

// ConfirmArrival stamps a parcel as arrived at the actor's stage. Only the
// receiving stage's manager may confirm; repeating the confirmation simply
// refreshes the stamp.
func (s *Service) ConfirmArrival(ctx context.Context, actor *entity.User, code string) (*entity.ParcelOrder, error) {
	code = ordercode.Normalize(code)
	ctx, span := serviceTracer.Start(ctx, "ParcelService.ConfirmArrival", trace.WithAttributes(attribute.String("parcel.code", code)))
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	order, err := s.orders.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("parcel order not found")
		}
		return nil, s.internal(span, "failed to load parcel order", err)
	}
	if order.ReceiverStageID != *actor.StageID {
		return nil, errorbank.Forbidden("parcel is not destined for your stage")
	}
	if !order.Status.CanTransition(entity.ParcelArrived) {
		return nil, errorbank.Conflict(fmt.Sprintf("parcel cannot arrive from status %s", order.Status))
	}

	now := time.Now().UTC()
	if err := s.orders.MarkArrived(ctx, order.ID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("parcel order not found")
		}
		return nil, s.internal(span, "failed to confirm arrival", err)
	}
	order.Status = entity.ParcelArrived
	order.ManagerConfirmedAt = &now
	order.UpdatedAt = now

	s.dropFromCache(ctx, order.OrderCode)
	s.publishEvent(ctx, eventParcelArrived, order)
	if s.metrics != nil {
		s.metrics.OrdersArrived.Inc()
	}
	return order, nil
}

// Lookup authenticates a customer against an order code and name pair and
// mints a short-lived parcel credential. Failures are reported uniformly so
// the response does not reveal which half of the pair was wrong.
func (s *Service) Lookup(ctx context.Context, code, customerName string) (string, *entity.ParcelOrder, error) {
	code = ordercode.Normalize(code)
	customerName = strings.TrimSpace(customerName)
	ctx, span := serviceTracer.Start(ctx, "ParcelService.Lookup", trace.WithAttributes(attribute.String("parcel.code", code)))
	defer span.End()

	if code == "" || customerName == "" {
		return "", nil, errorbank.BadRequest("order code and customer name are required")
	}
	order, err := s.orders.ByCodeAndCustomer(ctx, code, customerName)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			if s.metrics != nil {
				s.metrics.LookupRejected.Inc()
			}
			return "", nil, errorbank.NotFound("no matching parcel order")
		}
		return "", nil, s.internal(span, "failed to look up parcel order", err)
	}
	if order.Status == entity.ParcelPickedUp {
		return "", nil, errorbank.Gone("parcel has already been picked up")
	}
	parcelToken, err := s.parcelTok.Sign(order.OrderCode)
	if err != nil {
		return "", nil, s.internal(span, "failed to sign parcel token", err)
	}
	return parcelToken, order, nil
}

// OrderForToken verifies a raw parcel credential and loads the order it
// refers to. Used by the parcel guard on every customer request.
func (s *Service) OrderForToken(ctx context.Context, raw string) (*entity.ParcelOrder, error) {
	subject, err := s.parcelTok.Verify(raw)
	if err != nil {
		return nil, errorbank.Unauthorized("invalid or expired parcel token")
	}
	return s.DetailsByCode(ctx, subject)
}

// DetailsByCode loads the order a parcel credential refers to. Used by the
// parcel guard as well as the details endpoint.
func (s *Service) DetailsByCode(ctx context.Context, code string) (*entity.ParcelOrder, error) {
	code = ordercode.Normalize(code)
	ctx, span := serviceTracer.Start(ctx, "ParcelService.DetailsByCode", trace.WithAttributes(attribute.String("parcel.code", code)))
	defer span.End()

	if order, err := s.getFromCache(ctx, code); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("parcels cache read failed", zap.String("code", code), zap.Error(err))
	}

	order, err := s.orders.ByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("parcel order not found")
		}
		return nil, s.internal(span, "failed to load parcel order", err)
	}
	if order.Status == entity.ParcelPickedUp {
		return nil, errorbank.Gone("parcel has already been picked up")
	}
	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("parcels cache write failed", zap.String("code", code), zap.Error(err))
	}
	return order, nil
}

// ConfirmPickup records the customer handoff and retires the order. The row
// is stamped terminal, the audit event is emitted with the final snapshot,
// then the record is hard-deleted.
func (s *Service) ConfirmPickup(ctx context.Context, order *entity.ParcelOrder) error {
	if order == nil {
		return errorbank.BadRequest("parcel order is required")
	}
	ctx, span := serviceTracer.Start(ctx, "ParcelService.ConfirmPickup", trace.WithAttributes(attribute.String("parcel.code", order.OrderCode)))
	defer span.End()

	if !order.Status.CanTransition(entity.ParcelPickedUp) {
		return errorbank.Conflict(fmt.Sprintf("parcel cannot be picked up from status %s", order.Status))
	}

	now := time.Now().UTC()
	if err := s.orders.MarkPickedUp(ctx, order.ID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("parcel order not found")
		}
		return s.internal(span, "failed to confirm pickup", err)
	}
	order.Status = entity.ParcelPickedUp
	order.CustomerConfirmedAt = &now
	order.UpdatedAt = now

	s.publishEvent(ctx, eventParcelPickedUp, order)
	s.dropFromCache(ctx, order.OrderCode)

	if err := s.orders.Delete(ctx, order.ID); err != nil {
		return s.internal(span, "failed to retire parcel order", err)
	}
	if s.metrics != nil {
		s.metrics.OrdersPickedUp.Inc()
	}
	return nil
}

// ActiveForDriver lists parcels still assigned to a driver.
func (s *Service) ActiveForDriver(ctx context.Context, driverID int64) ([]entity.ParcelOrder, error) {
	ctx, span := serviceTracer.Start(ctx, "ParcelService.ActiveForDriver", trace.WithAttributes(attribute.Int64("driver.id", driverID)))
	defer span.End()

	orders, err := s.orders.ListActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, s.internal(span, "failed to list driver parcels", err)
	}
	return orders, nil
}

func (s *Service) internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(msg, errorbank.WithCause(err))
}

func (s *Service) cacheKey(code string) string {
	return fmt.Sprintf("parcels:%s", code)
}

func (s *Service) dropFromCache(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(code)); err != nil {
		s.logger.Warn("parcels cache invalidation failed", zap.String("code", code), zap.Error(err))
	}
}

func (s *Service) getFromCache(ctx context.Context, code string) (*entity.ParcelOrder, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(code))
	if err != nil {
		return nil, err
	}
	var order entity.ParcelOrder
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.ParcelOrder) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.OrderCode), bytes, s.cacheTTL)
}
