package parcel

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustdrive/stagelink/internal/database"
	"github.com/trustdrive/stagelink/internal/entity"
)

var repoTracer = otel.Tracer("github.com/trustdrive/stagelink/repository/parcel")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("parcel order not found")

// ErrDuplicate is returned when an insert violates the unique order code
// constraint. Callers regenerate the code and retry.
var ErrDuplicate = errors.New("duplicate order code")

// Repository encapsulates read/write access for parcel orders.
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

// Create persists a new order using the write connection. A collision on
// the order code surfaces as ErrDuplicate.
func (r *Repository) Create(ctx context.Context, order *entity.ParcelOrder) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.Create", trace.WithAttributes(attribute.String("order.code", order.OrderCode)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			span.SetStatus(codes.Error, "duplicate order code")
			return ErrDuplicate
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return err
	}
	return nil
}

// ByCode fetches an order by its canonical-uppercase code, relations loaded.
func (r *Repository) ByCode(ctx context.Context, code string) (*entity.ParcelOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.ByCode", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order := new(entity.ParcelOrder)
	err := r.reader.NewSelect().Model(order).
		Relation("SenderStage").
		Relation("ReceiverStage").
		Relation("Vehicle").
		Relation("Driver").
		Where("po.order_code = ?", code).
		Scan(ctx)
	return order, r.wrap(span, err)
}

// ByCodeAndCustomer matches an order by exact code and customer name. The
// name comparison is normalized equality at the data layer, never a pattern
// built from user input.
func (r *Repository) ByCodeAndCustomer(ctx context.Context, code, customerName string) (*entity.ParcelOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.ByCodeAndCustomer", trace.WithAttributes(attribute.String("order.code", code)))
	defer span.End()

	order := new(entity.ParcelOrder)
	err := r.reader.NewSelect().Model(order).
		Relation("SenderStage").
		Relation("ReceiverStage").
		Relation("Vehicle").
		Relation("Driver").
		Where("po.order_code = ?", code).
		Where("lower(po.customer_name) = lower(?)", strings.TrimSpace(customerName)).
		Scan(ctx)
	return order, r.wrap(span, err)
}

// ListBySender lists a stage's outgoing orders, newest first.
func (r *Repository) ListBySender(ctx context.Context, stageID int64) ([]entity.ParcelOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.ListBySender", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	var orders []entity.ParcelOrder
	err := r.reader.NewSelect().Model(&orders).
		Relation("ReceiverStage").
		Relation("Vehicle").
		Relation("Driver").
		Where("po.sender_stage_id = ?", stageID).
		Order("po.created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByReceiver lists a stage's incoming orders still in flight (in
// transit or arrived), newest first.
func (r *Repository) ListByReceiver(ctx context.Context, stageID int64) ([]entity.ParcelOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.ListByReceiver", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	var orders []entity.ParcelOrder
	err := r.reader.NewSelect().Model(&orders).
		Relation("SenderStage").
		Relation("Vehicle").
		Relation("Driver").
		Where("po.receiver_stage_id = ?", stageID).
		Where("po.status IN (?)", bun.In([]entity.ParcelStatus{entity.ParcelInTransit, entity.ParcelArrived})).
		Order("po.created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListActiveByDriver lists a driver's undelivered orders.
func (r *Repository) ListActiveByDriver(ctx context.Context, driverID int64) ([]entity.ParcelOrder, error) {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.ListActiveByDriver", trace.WithAttributes(attribute.Int64("driver.id", driverID)))
	defer span.End()

	var orders []entity.ParcelOrder
	err := r.reader.NewSelect().Model(&orders).
		Relation("ReceiverStage").
		Where("po.driver_id = ?", driverID).
		Where("po.status != ?", entity.ParcelPickedUp).
		Order("po.created_at DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// MarkArrived applies the arrival transition as one atomic update, stamping
// the stage manager confirmation. Re-confirmation re-stamps deliberately:
// racing confirmations both succeed and the last write wins.
func (r *Repository) MarkArrived(ctx context.Context, id int64, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.MarkArrived", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.ParcelOrder)(nil)).
		Set("status = ?", entity.ParcelArrived).
		Set("manager_confirmed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPickedUp applies the terminal transition, stamping the customer
// confirmation. The caller deletes the row afterwards with the same id.
func (r *Repository) MarkPickedUp(ctx context.Context, id int64, at time.Time) error {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.MarkPickedUp", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.ParcelOrder)(nil)).
		Set("status = ?", entity.ParcelPickedUp).
		Set("customer_confirmed_at = ?", at).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes an order by the id captured before the terminal
// transition. Deleting by id rather than code avoids racing a recreation
// under the same code.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "ParcelRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	_, err := r.writer.NewDelete().Model((*entity.ParcelOrder)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

func (r *Repository) wrap(span trace.Span, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return err
	}
	return nil
}

// isUniqueViolation recognizes unique constraint errors across the
// supported drivers (SQLSTATE 23505 on postgres, 1062 on mysql).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") || strings.Contains(msg, "UNIQUE constraint failed")
}
