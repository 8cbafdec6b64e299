package movement

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

var repoTracer = otel.Tracer("github.com/trustdrive/stagelink/repository/movement")

// ErrNotFound is returned when a movement record is missing.
var ErrNotFound = errors.New("movement not found")

// ErrAlreadyArrived is returned when an arrival is recorded twice. The
// ledger is historical: a second stamp would falsify arrival_time.
var ErrAlreadyArrived = errors.New("movement already arrived")

// Repository encapsulates the vehicle movement ledger. Movements are
// created on departure, updated exactly once on arrival and never deleted.
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

// Create records a departure.
func (r *Repository) Create(ctx context.Context, movement *entity.VehicleMovement) error {
	if movement == nil {
		return errors.New("nil movement")
	}
	ctx, span := repoTracer.Start(ctx, "MovementRepository.Create", trace.WithAttributes(
		attribute.Int64("stage.id", movement.StageID),
		attribute.String("movement.day", movement.Day),
	))
	defer span.End()

	_, err := r.writer.NewInsert().Model(movement).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ByID fetches a movement by primary key.
func (r *Repository) ByID(ctx context.Context, id int64) (*entity.VehicleMovement, error) {
	ctx, span := repoTracer.Start(ctx, "MovementRepository.ByID", trace.WithAttributes(attribute.Int64("movement.id", id)))
	defer span.End()

	movement := new(entity.VehicleMovement)
	err := r.reader.NewSelect().Model(movement).Where("vm.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return movement, nil
}

// MarkArrived stamps the arrival as a single guarded update. The status
// predicate makes the transition strict: a movement already ARRIVED is
// reported as ErrAlreadyArrived and arrival_time is left untouched.
func (r *Repository) MarkArrived(ctx context.Context, id int64, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "MovementRepository.MarkArrived", trace.WithAttributes(attribute.Int64("movement.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.VehicleMovement)(nil)).
		Set("status = ?", entity.MovementArrived).
		Set("arrival_time = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Where("status = ?", entity.MovementDeparted).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	affected, _ := res.RowsAffected()
	if affected > 0 {
		return nil
	}

	// Nothing updated: either the movement is gone or it already arrived.
	if _, err := r.ByID(ctx, id); err != nil {
		return err
	}
	span.SetStatus(codes.Error, "already arrived")
	return ErrAlreadyArrived
}

// CountByDay returns the total movements for a stage and day key.
func (r *Repository) CountByDay(ctx context.Context, stageID int64, day string) (int, error) {
	ctx, span := repoTracer.Start(ctx, "MovementRepository.CountByDay", trace.WithAttributes(
		attribute.Int64("stage.id", stageID),
		attribute.String("movement.day", day),
	))
	defer span.End()

	count, err := r.reader.NewSelect().Model((*entity.VehicleMovement)(nil)).
		Where("vm.stage_id = ?", stageID).
		Where("vm.day = ?", day).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// CountArrivedByDay returns how many of a day's movements have arrived.
func (r *Repository) CountArrivedByDay(ctx context.Context, stageID int64, day string) (int, error) {
	ctx, span := repoTracer.Start(ctx, "MovementRepository.CountArrivedByDay", trace.WithAttributes(
		attribute.Int64("stage.id", stageID),
		attribute.String("movement.day", day),
	))
	defer span.End()

	count, err := r.reader.NewSelect().Model((*entity.VehicleMovement)(nil)).
		Where("vm.stage_id = ?", stageID).
		Where("vm.day = ?", day).
		Where("vm.status = ?", entity.MovementArrived).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count failed")
		return 0, err
	}
	return count, nil
}

// ListActiveByDay lists a day's still-departed movements with vehicle and
// driver display fields resolved.
func (r *Repository) ListActiveByDay(ctx context.Context, stageID int64, day string) ([]entity.VehicleMovement, error) {
	ctx, span := repoTracer.Start(ctx, "MovementRepository.ListActiveByDay", trace.WithAttributes(
		attribute.Int64("stage.id", stageID),
		attribute.String("movement.day", day),
	))
	defer span.End()

	var movements []entity.VehicleMovement
	err := r.reader.NewSelect().Model(&movements).
		Relation("Vehicle").
		Relation("Driver").
		Where("vm.stage_id = ?", stageID).
		Where("vm.day = ?", day).
		Where("vm.status = ?", entity.MovementDeparted).
		Order("vm.departure_time ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return movements, nil
}
