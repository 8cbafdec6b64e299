package driver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/config"
	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/repository/driverlog"
	parcelrepo "github.com/trustdrive/stagelink/internal/repository/parcel"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/trustdrive/stagelink/service/driver")

// logStore is the slice of the driver log repository the service needs.
type logStore interface {
	LogForDay(ctx context.Context, driverID int64, day string) (*entity.PassengerLog, error)
	UpsertLog(ctx context.Context, log *entity.PassengerLog) error
	RandomActiveQuote(ctx context.Context) (*entity.Quote, error)
}

// parcelStore lists the parcels still assigned to a driver.
type parcelStore interface {
	ListActiveByDriver(ctx context.Context, driverID int64) ([]entity.ParcelOrder, error)
}

// Service backs the driver dashboard: daily passenger tallies, assigned
// parcels and a quote for morale.
type Service struct {
	logs    logStore
	parcels parcelStore
	loc     *time.Location
	logger  *zap.Logger
}

// Summary is the driver dashboard payload.
type Summary struct {
	Log           *entity.PassengerLog
	ActiveParcels []entity.ParcelOrder
	Quote         *entity.Quote
}

// LogRequest updates a driver's tally for the current day.
type LogRequest struct {
	Passengers int `json:"passengers"`
	Trips      int `json:"trips"`
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Logs    *driverlog.Repository
	Parcels *parcelrepo.Repository
	Config  config.Config
	Logger  *zap.Logger
}

// Module provides the driver service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) (*Service, error) {
	loc, err := time.LoadLocation(p.Config.Ledger.Timezone)
	if err != nil {
		return nil, err
	}
	return &Service{
		logs:    p.Logs,
		parcels: p.Parcels,
		loc:     loc,
		logger:  p.Logger,
	}, nil
}

// DashboardSummary assembles today's tally, the driver's in-flight parcels
// and a random active quote. A missing quote is not an error.
func (s *Service) DashboardSummary(ctx context.Context, actor *entity.User) (*Summary, error) {
	ctx, span := serviceTracer.Start(ctx, "DriverService.DashboardSummary", trace.WithAttributes(attribute.Int64("driver.id", actorID(actor))))
	defer span.End()

	if actor == nil {
		return nil, errorbank.BadRequest("acting user is required")
	}
	day := entity.DayKey(time.Now(), s.loc)

	log, err := s.logs.LogForDay(ctx, actor.ID, day)
	if err != nil {
		return nil, s.internal(span, "failed to load passenger log", err)
	}
	parcels, err := s.parcels.ListActiveByDriver(ctx, actor.ID)
	if err != nil {
		return nil, s.internal(span, "failed to list assigned parcels", err)
	}
	quote, err := s.logs.RandomActiveQuote(ctx)
	if err != nil {
		s.logger.Warn("quote lookup failed", zap.Error(err))
		quote = nil
	}
	return &Summary{Log: log, ActiveParcels: parcels, Quote: quote}, nil
}

// RecordLog upserts the driver's tally for the current ledger day. Values
// replace the stored row rather than accumulating.
func (s *Service) RecordLog(ctx context.Context, actor *entity.User, req LogRequest) (*entity.PassengerLog, error) {
	ctx, span := serviceTracer.Start(ctx, "DriverService.RecordLog", trace.WithAttributes(attribute.Int64("driver.id", actorID(actor))))
	defer span.End()

	if actor == nil {
		return nil, errorbank.BadRequest("acting user is required")
	}
	if req.Passengers < 0 || req.Trips < 0 {
		return nil, errorbank.BadRequest("passengers and trips must not be negative")
	}
	log := &entity.PassengerLog{
		DriverID:   actor.ID,
		Day:        entity.DayKey(time.Now(), s.loc),
		Passengers: req.Passengers,
		Trips:      req.Trips,
	}
	if err := s.logs.UpsertLog(ctx, log); err != nil {
		return nil, s.internal(span, "failed to record passenger log", err)
	}
	return log, nil
}

func actorID(actor *entity.User) int64 {
	if actor == nil {
		return 0
	}
	return actor.ID
}

func (s *Service) internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
