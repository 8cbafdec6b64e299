package admin

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/trustdrive/stagelink/service/admin")

// registryStore is the slice of the registry repository the service needs.
type registryStore interface {
	StageByID(ctx context.Context, id int64) (*entity.Stage, error)
	UserByID(ctx context.Context, id int64) (*entity.User, error)
	ListStages(ctx context.Context) ([]entity.Stage, error)
	ListDrivers(ctx context.Context) ([]entity.User, error)
	VehiclesByStage(ctx context.Context, stageID int64) ([]entity.Vehicle, error)
	DriversByStage(ctx context.Context, stageID int64) ([]entity.User, error)
	CreateStage(ctx context.Context, stage *entity.Stage) error
	SetStageManager(ctx context.Context, stageID, managerID int64) error
	CreateUser(ctx context.Context, user *entity.User) error
	CreateDriverProfile(ctx context.Context, profile *entity.DriverProfile) error
	CreateVehicle(ctx context.Context, vehicle *entity.Vehicle) error
}

// Service carries the admin registry operations: stages, staff accounts,
// drivers and their vehicles.
type Service struct {
	registry registryStore
	logger   *zap.Logger
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Registry *registry.Repository
	Logger   *zap.Logger
}

// Module provides the admin service to Fx.
var Module = fx.Provide(NewService)

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{registry: p.Registry, logger: p.Logger}
}

// StageRequest creates a stage.
type StageRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// StaffRequest creates a stage manager account for a stage.
type StaffRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
	StageID  int64  `json:"stageId"`
}

// DriverRequest registers a driver: profile, login and vehicle in one shot.
type DriverRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	PlateNumber string `json:"plateNumber"`
	Route       string `json:"route"`
	StageID     int64  `json:"stageId"`
}

// CreateStage registers a new stage.
func (s *Service) CreateStage(ctx context.Context, req StageRequest) (*entity.Stage, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.CreateStage", trace.WithAttributes(attribute.String("stage.name", req.Name)))
	defer span.End()

	req.Name = strings.TrimSpace(req.Name)
	req.Location = strings.TrimSpace(req.Location)
	if req.Name == "" || req.Location == "" {
		return nil, errorbank.BadRequest("stage name and location are required")
	}
	stage := &entity.Stage{Name: req.Name, Location: req.Location}
	if err := s.registry.CreateStage(ctx, stage); err != nil {
		return nil, s.internal(span, "failed to create stage", err)
	}
	return stage, nil
}

// CreateManager registers a stage manager account and stamps the stage's
// manager back-reference.
func (s *Service) CreateManager(ctx context.Context, req StaffRequest) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.CreateManager")
	defer span.End()

	user, err := s.createAccount(ctx, span, accountRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     entity.RoleStageManager,
		StageID:  req.StageID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.registry.SetStageManager(ctx, req.StageID, user.ID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("stage not found")
		}
		return nil, s.internal(span, "failed to assign stage manager", err)
	}
	return user, nil
}

// AssignManager points a stage at an existing manager account.
func (s *Service) AssignManager(ctx context.Context, stageID, managerID int64) error {
	ctx, span := serviceTracer.Start(ctx, "AdminService.AssignManager", trace.WithAttributes(
		attribute.Int64("stage.id", stageID),
		attribute.Int64("manager.id", managerID),
	))
	defer span.End()

	manager, err := s.registry.UserByID(ctx, managerID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return errorbank.NotFound("manager not found")
		}
		return s.internal(span, "failed to load manager", err)
	}
	if manager.Role != entity.RoleStageManager {
		return errorbank.BadRequest("user is not a stage manager")
	}
	if err := s.registry.SetStageManager(ctx, stageID, managerID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return errorbank.NotFound("stage not found")
		}
		return s.internal(span, "failed to assign stage manager", err)
	}
	return nil
}

// RegisterDriver creates the driver's profile, login account and vehicle,
// all attached to the given stage.
func (s *Service) RegisterDriver(ctx context.Context, req DriverRequest) (*entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.RegisterDriver", trace.WithAttributes(attribute.String("vehicle.plate", req.PlateNumber)))
	defer span.End()

	req.PlateNumber = strings.ToUpper(strings.TrimSpace(req.PlateNumber))
	if req.PlateNumber == "" {
		return nil, errorbank.BadRequest("vehicle plate number is required")
	}
	if _, err := s.registry.StageByID(ctx, req.StageID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, errorbank.NotFound("stage not found")
		}
		return nil, s.internal(span, "failed to load stage", err)
	}

	profile := &entity.DriverProfile{
		PlateNumber: req.PlateNumber,
		DriverName:  strings.TrimSpace(req.FullName),
		DriverPhone: strings.TrimSpace(req.Phone),
		Route:       strings.TrimSpace(req.Route),
		StageID:     &req.StageID,
	}
	if err := s.registry.CreateDriverProfile(ctx, profile); err != nil {
		return nil, s.internal(span, "failed to create driver profile", err)
	}

	user, err := s.createAccount(ctx, span, accountRequest{
		Email:     req.Email,
		Password:  req.Password,
		FullName:  req.FullName,
		Phone:     req.Phone,
		Role:      entity.RoleDriver,
		StageID:   req.StageID,
		ProfileID: &profile.ID,
	})
	if err != nil {
		return nil, err
	}

	vehicle := &entity.Vehicle{
		PlateNumber: req.PlateNumber,
		Category:    entity.VehicleCategoryPSV,
		Capacity:    entity.VehicleDefaultCapacity,
		DriverID:    &user.ID,
		StageID:     &req.StageID,
	}
	if err := s.registry.CreateVehicle(ctx, vehicle); err != nil {
		return nil, s.internal(span, "failed to create vehicle", err)
	}
	user.DriverProfile = profile
	return user, nil
}

// Stages lists every stage with its manager resolved.
func (s *Service) Stages(ctx context.Context) ([]entity.Stage, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.Stages")
	defer span.End()

	stages, err := s.registry.ListStages(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to list stages", err)
	}
	return stages, nil
}

// Drivers lists every driver account.
func (s *Service) Drivers(ctx context.Context) ([]entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.Drivers")
	defer span.End()

	drivers, err := s.registry.ListDrivers(ctx)
	if err != nil {
		return nil, s.internal(span, "failed to list drivers", err)
	}
	return drivers, nil
}

// StageResources bundles the vehicles and drivers attached to a stage, the
// pick-lists a manager needs when dispatching a parcel or a departure.
func (s *Service) StageResources(ctx context.Context, stageID int64) ([]entity.Vehicle, []entity.User, error) {
	ctx, span := serviceTracer.Start(ctx, "AdminService.StageResources", trace.WithAttributes(attribute.Int64("stage.id", stageID)))
	defer span.End()

	if _, err := s.registry.StageByID(ctx, stageID); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return nil, nil, errorbank.NotFound("stage not found")
		}
		return nil, nil, s.internal(span, "failed to load stage", err)
	}
	vehicles, err := s.registry.VehiclesByStage(ctx, stageID)
	if err != nil {
		return nil, nil, s.internal(span, "failed to list vehicles", err)
	}
	drivers, err := s.registry.DriversByStage(ctx, stageID)
	if err != nil {
		return nil, nil, s.internal(span, "failed to list drivers", err)
	}
	return vehicles, drivers, nil
}

type accountRequest struct {
	Email     string
	Password  string
	FullName  string
	Phone     string
	Role      entity.Role
	StageID   int64
	ProfileID *int64
}

func (s *Service) createAccount(ctx context.Context, span trace.Span, req accountRequest) (*entity.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		return nil, errorbank.BadRequest("email, password and full name are required")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, s.internal(span, "failed to hash password", err)
	}
	user := &entity.User{
		Email:           req.Email,
		PasswordHash:    string(hashed),
		Role:            req.Role,
		FullName:        req.FullName,
		Phone:           strings.TrimSpace(req.Phone),
		StageID:         &req.StageID,
		DriverProfileID: req.ProfileID,
		AccountStatus:   entity.AccountActive,
	}
	if err := s.registry.CreateUser(ctx, user); err != nil {
		if errors.Is(err, registry.ErrDuplicate) {
			return nil, errorbank.DuplicateKey("email is already registered")
		}
		return nil, s.internal(span, "failed to create user", err)
	}
	return user, nil
}

func (s *Service) internal(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "repository error")
	return errorbank.Internal(msg, errorbank.WithCause(err))
}
