package movement

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/entity"
	repo "github.com/trustdrive/stagelink/internal/repository/movement"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/trustdrive/stagelink/service/movement")

// ledgerStore is the slice of the movement repository the service needs.
type ledgerStore interface {
	Create(ctx context.Context, movement *entity.VehicleMovement) error
	ByID(ctx context.Context, id int64) (*entity.VehicleMovement, error)
	MarkArrived(ctx context.Context, id int64, at time.Time) error
	CountByDay(ctx context.Context, stageID int64, day string) (int, error)
	CountArrivedByDay(ctx context.Context, stageID int64, day string) (int, error)
	ListActiveByDay(ctx context.Context, stageID int64, day string) ([]entity.VehicleMovement, error)
}

// referenceStore resolves the vehicle and driver on a departure.
type referenceStore interface {
	VehicleForStage(ctx context.Context, vehicleID, stageID int64) (*entity.Vehicle, error)
	DriverForStage(ctx context.Context, driverID, stageID int64) (*entity.User, error)
}

// Service maintains the per-stage vehicle movement ledger.
type Service struct {
	ledger ledgerStore
	refs   referenceStore
	loc    *time.Location
	logger *zap.Logger
}

// DepartureRequest records a vehicle leaving the actor's stage.
type DepartureRequest struct {
	VehicleID     int64      `json:"vehicleId"`
	DriverID      int64      `json:"driverId"`
	Route         string     `json:"route"`
	DepartureTime *time.Time `json:"departureTime"`
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Ledger   *repo.Repository
	Registry *registry.Repository
	Config   config.Config
	Logger   *zap.Logger
}

// Module provides the movement service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance. The ledger day boundary follows
// the configured reference time zone.
func NewService(p Params) (*Service, error) {
	loc, err := time.LoadLocation(p.Config.Ledger.Timezone)
	if err != nil {
		return nil, err
	}
	return &Service{
		ledger: p.Ledger,
		refs:   p.Registry,
		loc:    loc,
		logger: p.Logger,
	}, nil
}

// MarkDeparture appends a DEPARTED row for a vehicle leaving the actor's
// stage. The row is keyed to the ledger day of the departure instant.
func (s *Service) MarkDeparture(ctx context.Context, actor *entity.User, req DepartureRequest) (*entity.VehicleMovement, error) {
	ctx, span := serviceTracer.Start(ctx, "MovementService.MarkDeparture")
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	stageID := *actor.StageID

	vehicle, err := s.refs.VehicleForStage(ctx, req.VehicleID, stageID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("vehicle not found at this stage")
		}
		return nil, s.internal(span, "failed to load vehicle", err)
	}
	driver, err := s.refs.DriverForStage(ctx, req.DriverID, stageID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("driver not found at this stage")
		}
		return nil, s.internal(span, "failed to load driver", err)
	}

	now := time.Now().UTC()
	departure := now
	if req.DepartureTime != nil {
		departure = req.DepartureTime.UTC()
	}
	movement := &entity.VehicleMovement{
		StageID:       stageID,
		VehicleID:     vehicle.ID,
		DriverID:      driver.ID,
		Route:         req.Route,
		DepartureTime: departure,
		Status:        entity.MovementDeparted,
		Day:           entity.DayKey(departure, s.loc),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.ledger.Create(ctx, movement); err != nil {
		return nil, s.internal(span, "failed to record departure", err)
	}
	span.SetAttributes(attribute.Int64("movement.id", movement.ID))

	movement.Vehicle = vehicle
	movement.Driver = driver
	return movement, nil
}

// MarkArrival closes a DEPARTED row. Arrival is recorded exactly once;
// repeating it is a conflict, and only the departure stage may record it.
func (s *Service) MarkArrival(ctx context.Context, actor *entity.User, movementID int64) (*entity.VehicleMovement, error) {
	ctx, span := serviceTracer.Start(ctx, "MovementService.MarkArrival", trace.WithAttributes(attribute.Int64("movement.id", movementID)))
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	movement, err := s.ledger.ByID(ctx, movementID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("movement not found")
		}
		return nil, s.internal(span, "failed to load movement", err)
	}
	if movement.StageID != *actor.StageID {
		return nil, errorbank.Forbidden("movement belongs to another stage")
	}

	now := time.Now().UTC()
	if err := s.ledger.MarkArrived(ctx, movementID, now); err != nil {
		switch {
		case errors.Is(err, repo.ErrAlreadyArrived):
			return nil, errorbank.Conflict("arrival already recorded")
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("movement not found")
		}
		return nil, s.internal(span, "failed to record arrival", err)
	}
	movement.Status = entity.MovementArrived
	movement.ArrivalTime = &now
	movement.UpdatedAt = now
	return movement, nil
}

// DailyStats aggregates the actor's stage ledger for one day. An empty day
// selects the current ledger day.
type DailyStats struct {
	Day      string
	Departed int
	Arrived  int
	Active   []entity.VehicleMovement
}

// Stats returns departure and arrival counts plus the still-departed rows
// for a ledger day.
func (s *Service) Stats(ctx context.Context, actor *entity.User, day string) (*DailyStats, error) {
	ctx, span := serviceTracer.Start(ctx, "MovementService.Stats")
	defer span.End()

	if actor == nil || actor.StageID == nil {
		return nil, errorbank.BadRequest("acting user has no stage assigned")
	}
	if day == "" {
		day = entity.DayKey(time.Now(), s.loc)
	} else if _, err := time.ParseInLocation("2006-01-02", day, s.loc); err != nil {
		return nil, errorbank.BadRequest("day must be formatted YYYY-MM-DD")
	}
	span.SetAttributes(attribute.String("ledger.day", day))
	stageID := *actor.StageID

	departed, err := s.ledger.CountByDay(ctx, stageID, day)
	if err != nil {
		return nil, s.internal(span, "failed to count departures", err)
	}
	arrived, err := s.ledger.CountArrivedByDay(ctx, stageID, day)
	if err != nil {
		return nil, s.internal(span, "failed to count arrivals", err)
	}
	active, err := s.ledger.ListActiveByDay(ctx, stageID, day)
	if err != nil {
		return nil, s.internal(span, "failed to list active movements", err)
	}
	return &DailyStats{Day: day, Departed: departed, Arrived: arrived, Active: active}, nil
}

func (s *Service) internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
