package registry

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trustdrive/stagelink/internal/database"
	"github.com/trustdrive/stagelink/internal/entity"
)

var repoTracer = otel.Tracer("github.com/trustdrive/stagelink/repository/registry")

// ErrNotFound is returned when a referenced entity is missing.
var ErrNotFound = errors.New("entity not found")

// ErrDuplicate is returned when an insert violates a unique constraint,
// typically a reused staff email.
var ErrDuplicate = errors.New("duplicate entity")

// Repository provides access to the reference entities the parcel and
// movement flows depend on: stages, vehicles, staff users and driver
// profiles. The admin surface writes them; everything else treats them as
// lookups.
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

// StageByID fetches a stage by primary key.
func (r *Repository) StageByID(ctx context.Context, id int64) (*entity.Stage, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.StageByID", trace.WithAttributes(attribute.Int64("stage.id", id)))
	defer span.End()

	stage := new(entity.Stage)
	err := r.reader.NewSelect().Model(stage).Where("s.id = ?", id).Scan(ctx)
	return stage, r.wrap(span, err)
}

// VehicleByID fetches a vehicle by primary key.
func (r *Repository) VehicleByID(ctx context.Context, id int64) (*entity.Vehicle, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.VehicleByID", trace.WithAttributes(attribute.Int64("vehicle.id", id)))
	defer span.End()

	vehicle := new(entity.Vehicle)
	err := r.reader.NewSelect().Model(vehicle).Where("v.id = ?", id).Scan(ctx)
	return vehicle, r.wrap(span, err)
}

// UserByID fetches a user with stage and driver profile resolved. The staff
// session guard calls this on every protected request.
func (r *Repository) UserByID(ctx context.Context, id int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.UserByID", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	user := new(entity.User)
	err := r.reader.NewSelect().Model(user).
		Relation("Stage").
		Relation("DriverProfile").
		Where("u.id = ?", id).
		Scan(ctx)
	return user, r.wrap(span, err)
}

// UserByEmail fetches a user by normalized email, including the password
// hash, for login verification.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.UserByEmail")
	defer span.End()

	user := new(entity.User)
	err := r.reader.NewSelect().Model(user).
		Relation("Stage").
		Relation("DriverProfile").
		Where("lower(u.email) = lower(?)", email).
		Scan(ctx)
	return user, r.wrap(span, err)
}

// VehicleForStage fetches a vehicle only if it belongs to the given stage.
// The stage scoping doubles as an authorization check.
func (r *Repository) VehicleForStage(ctx context.Context, vehicleID, stageID int64) (*entity.Vehicle, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.VehicleForStage", trace.WithAttributes(
		attribute.Int64("vehicle.id", vehicleID),
		attribute.Int64("stage.id", stageID),
	))
	defer span.End()

	vehicle := new(entity.Vehicle)
	err := r.reader.NewSelect().Model(vehicle).
		Where("v.id = ?", vehicleID).
		Where("v.stage_id = ?", stageID).
		Scan(ctx)
	return vehicle, r.wrap(span, err)
}

// DriverForStage fetches a DRIVER-role user only if assigned to the stage.
func (r *Repository) DriverForStage(ctx context.Context, driverID, stageID int64) (*entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.DriverForStage", trace.WithAttributes(
		attribute.Int64("driver.id", driverID),
		attribute.Int64("stage.id", stageID),
	))
	defer span.End()

	user := new(entity.User)
	err := r.reader.NewSelect().Model(user).
		Where("u.id = ?", driverID).
		Where("u.stage_id = ?", stageID).
		Where("u.role = ?", entity.RoleDriver).
		Scan(ctx)
	return user, r.wrap(span, err)
}

// VehiclesByStage lists a stage's vehicles with their drivers resolved.
func (r *Repository) VehiclesByStage(ctx context.Context, stageID int64) ([]entity.Vehicle, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.VehiclesByStage", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	var vehicles []entity.Vehicle
	err := r.reader.NewSelect().Model(&vehicles).
		Relation("Driver").
		Where("v.stage_id = ?", stageID).
		Order("v.plate_number ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return vehicles, nil
}

// DriversByStage lists DRIVER-role users of a stage with profiles resolved.
func (r *Repository) DriversByStage(ctx context.Context, stageID int64) ([]entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.DriversByStage", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	var drivers []entity.User
	err := r.reader.NewSelect().Model(&drivers).
		Relation("DriverProfile").
		Where("u.stage_id = ?", stageID).
		Where("u.role = ?", entity.RoleDriver).
		Order("u.full_name ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return drivers, nil
}

// ListStages returns all stages, managers resolved.
func (r *Repository) ListStages(ctx context.Context) ([]entity.Stage, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.ListStages")
	defer span.End()

	var stages []entity.Stage
	err := r.reader.NewSelect().Model(&stages).
		Relation("Manager").
		Order("s.name ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return stages, nil
}

// ListDrivers returns all DRIVER-role users with profile and stage.
func (r *Repository) ListDrivers(ctx context.Context) ([]entity.User, error) {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.ListDrivers")
	defer span.End()

	var drivers []entity.User
	err := r.reader.NewSelect().Model(&drivers).
		Relation("DriverProfile").
		Relation("Stage").
		Where("u.role = ?", entity.RoleDriver).
		Order("u.full_name ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return drivers, nil
}

// CreateStage persists a new stage.
func (r *Repository) CreateStage(ctx context.Context, stage *entity.Stage) error {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.CreateStage", trace.WithAttributes(attribute.String("stage.name", stage.Name)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(stage).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// SetStageManager stamps the manager back-reference on a stage.
func (r *Repository) SetStageManager(ctx context.Context, stageID, managerID int64) error {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.SetStageManager", trace.WithAttributes(
		attribute.Int64("stage.id", stageID),
		attribute.Int64("manager.id", managerID),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().Model((*entity.Stage)(nil)).
		Set("manager_id = ?", managerID).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", stageID).
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

// CreateUser persists a new staff user.
func (r *Repository) CreateUser(ctx context.Context, user *entity.User) error {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.CreateUser", trace.WithAttributes(attribute.String("user.role", string(user.Role))))
	defer span.End()

	_, err := r.writer.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
	}
	return err
}

// CreateDriverProfile persists a driver profile.
func (r *Repository) CreateDriverProfile(ctx context.Context, profile *entity.DriverProfile) error {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.CreateDriverProfile", trace.WithAttributes(attribute.String("profile.plate", profile.PlateNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(profile).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// CreateVehicle persists a vehicle.
func (r *Repository) CreateVehicle(ctx context.Context, vehicle *entity.Vehicle) error {
	ctx, span := repoTracer.Start(ctx, "RegistryRepository.CreateVehicle", trace.WithAttributes(attribute.String("vehicle.plate", vehicle.PlateNumber)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(vehicle).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
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
