package driverlog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustdrive/stagelink/internal/database"
	"github.com/trustdrive/stagelink/internal/entity"
)

var repoTracer = otel.Tracer("github.com/trustdrive/stagelink/repository/driverlog")

// Repository backs the driver dashboard: per-day passenger logs and the
// quote pool.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// LogForDay fetches a driver's log for the day key; a missing row comes
// back as a zeroed log rather than an error.
func (r *Repository) LogForDay(ctx context.Context, driverID int64, day string) (*entity.PassengerLog, error) {
	ctx, span := repoTracer.Start(ctx, "DriverLogRepository.LogForDay", trace.WithAttributes(
		attribute.Int64("driver.id", driverID),
		attribute.String("day", day),
	))
	defer span.End()

	log := new(entity.PassengerLog)
	err := r.reader.NewSelect().Model(log).
		Where("pl.driver_id = ?", driverID).
		Where("pl.day = ?", day).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return &entity.PassengerLog{DriverID: driverID, Day: day}, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return log, nil
}

// UpsertLog writes a driver's tally for the day, replacing any earlier
// report for the same day.
func (r *Repository) UpsertLog(ctx context.Context, log *entity.PassengerLog) error {
	ctx, span := repoTracer.Start(ctx, "DriverLogRepository.UpsertLog", trace.WithAttributes(
		attribute.Int64("driver.id", log.DriverID),
		attribute.String("day", log.Day),
	))
	defer span.End()

	log.UpdatedAt = time.Now().UTC()
	_, err := r.writer.NewInsert().Model(log).
		On("CONFLICT (driver_id, day) DO UPDATE").
		Set("passengers = EXCLUDED.passengers").
		Set("trips = EXCLUDED.trips").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	}
	return err
}

// RandomActiveQuote samples one active quote, or nil when the pool is empty.
func (r *Repository) RandomActiveQuote(ctx context.Context) (*entity.Quote, error) {
	ctx, span := repoTracer.Start(ctx, "DriverLogRepository.RandomActiveQuote")
	defer span.End()

	quote := new(entity.Quote)
	err := r.reader.NewSelect().Model(quote).
		Where("q.is_active").
		OrderExpr("random()").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return quote, nil
}
