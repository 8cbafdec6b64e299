package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var errUnexpectedCall = errors.New("unexpected call")

type fakeRegistry struct {
	stageByID     func(int64) (*entity.Stage, error)
	userByID      func(int64) (*entity.User, error)
	listStages    func() ([]entity.Stage, error)
	listDrivers   func() ([]entity.User, error)
	vehiclesBy    func(int64) ([]entity.Vehicle, error)
	driversBy     func(int64) ([]entity.User, error)
	createStage   func(*entity.Stage) error
	setManager    func(int64, int64) error
	createUser    func(*entity.User) error
	createProfile func(*entity.DriverProfile) error
	createVehicle func(*entity.Vehicle) error
}

func (f *fakeRegistry) StageByID(_ context.Context, id int64) (*entity.Stage, error) {
	if f.stageByID == nil {
		return nil, errUnexpectedCall
	}
	return f.stageByID(id)
}

func (f *fakeRegistry) UserByID(_ context.Context, id int64) (*entity.User, error) {
	if f.userByID == nil {
		return nil, errUnexpectedCall
	}
	return f.userByID(id)
}

func (f *fakeRegistry) ListStages(context.Context) ([]entity.Stage, error) {
	if f.listStages == nil {
		return nil, errUnexpectedCall
	}
	return f.listStages()
}

func (f *fakeRegistry) ListDrivers(context.Context) ([]entity.User, error) {
	if f.listDrivers == nil {
		return nil, errUnexpectedCall
	}
	return f.listDrivers()
}

func (f *fakeRegistry) VehiclesByStage(_ context.Context, stageID int64) ([]entity.Vehicle, error) {
	if f.vehiclesBy == nil {
		return nil, errUnexpectedCall
	}
	return f.vehiclesBy(stageID)
}

func (f *fakeRegistry) DriversByStage(_ context.Context, stageID int64) ([]entity.User, error) {
	if f.driversBy == nil {
		return nil, errUnexpectedCall
	}
	return f.driversBy(stageID)
}

func (f *fakeRegistry) CreateStage(_ context.Context, stage *entity.Stage) error {
	if f.createStage == nil {
		return errUnexpectedCall
	}
	return f.createStage(stage)
}

func (f *fakeRegistry) SetStageManager(_ context.Context, stageID, managerID int64) error {
	if f.setManager == nil {
		return errUnexpectedCall
	}
	return f.setManager(stageID, managerID)
}

func (f *fakeRegistry) CreateUser(_ context.Context, user *entity.User) error {
	if f.createUser == nil {
		return errUnexpectedCall
	}
	return f.createUser(user)
}

func (f *fakeRegistry) CreateDriverProfile(_ context.Context, profile *entity.DriverProfile) error {
	if f.createProfile == nil {
		return errUnexpectedCall
	}
	return f.createProfile(profile)
}

func (f *fakeRegistry) CreateVehicle(_ context.Context, vehicle *entity.Vehicle) error {
	if f.createVehicle == nil {
		return errUnexpectedCall
	}
	return f.createVehicle(vehicle)
}

func newTestService(reg *fakeRegistry) *Service {
	return &Service{registry: reg, logger: zap.NewNop()}
}

func TestCreateStageValidatesInput(t *testing.T) {
	svc := newTestService(&fakeRegistry{})

	_, err := svc.CreateStage(context.Background(), StageRequest{Name: "  ", Location: "CBD"})
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestCreateStagePersists(t *testing.T) {
	reg := &fakeRegistry{createStage: func(stage *entity.Stage) error {
		stage.ID = 3
		return nil
	}}
	svc := newTestService(reg)

	stage, err := svc.CreateStage(context.Background(), StageRequest{Name: "Downtown", Location: "CBD"})
	require.NoError(t, err)
	require.Equal(t, int64(3), stage.ID)
}

func TestCreateManagerHashesPasswordAndStampsStage(t *testing.T) {
	var createdUser *entity.User
	var assignedStage, assignedManager int64
	reg := &fakeRegistry{
		createUser: func(user *entity.User) error {
			user.ID = 11
			createdUser = user
			return nil
		},
		setManager: func(stageID, managerID int64) error {
			assignedStage, assignedManager = stageID, managerID
			return nil
		},
	}
	svc := newTestService(reg)

	user, err := svc.CreateManager(context.Background(), StaffRequest{
		Email:    " Manager@Stagelink.Test ",
		Password: "hunter2",
		FullName: "Amina Odhiambo",
		StageID:  4,
	})
	require.NoError(t, err)
	require.Equal(t, entity.RoleStageManager, user.Role)
	require.Equal(t, "manager@stagelink.test", user.Email)
	require.Equal(t, int64(4), assignedStage)
	require.Equal(t, int64(11), assignedManager)
	require.NotEqual(t, "hunter2", createdUser.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte("hunter2")))
}

func TestCreateManagerDuplicateEmail(t *testing.T) {
	reg := &fakeRegistry{createUser: func(*entity.User) error { return registry.ErrDuplicate }}
	svc := newTestService(reg)

	_, err := svc.CreateManager(context.Background(), StaffRequest{
		Email: "manager@stagelink.test", Password: "hunter2", FullName: "Amina", StageID: 4,
	})
	require.True(t, errorbank.IsKind(err, errorbank.KindDuplicateKey))
}

func TestAssignManagerRejectsNonManager(t *testing.T) {
	reg := &fakeRegistry{userByID: func(int64) (*entity.User, error) {
		return &entity.User{ID: 5, Role: entity.RoleDriver}, nil
	}}
	svc := newTestService(reg)

	err := svc.AssignManager(context.Background(), 4, 5)
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestRegisterDriverCreatesProfileAccountAndVehicle(t *testing.T) {
	var profile *entity.DriverProfile
	var vehicle *entity.Vehicle
	reg := &fakeRegistry{
		stageByID: func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id}, nil },
		createProfile: func(p *entity.DriverProfile) error {
			p.ID = 21
			profile = p
			return nil
		},
		createUser: func(user *entity.User) error {
			user.ID = 31
			return nil
		},
		createVehicle: func(v *entity.Vehicle) error {
			v.ID = 41
			vehicle = v
			return nil
		},
	}
	svc := newTestService(reg)

	user, err := svc.RegisterDriver(context.Background(), DriverRequest{
		Email:       "driver@stagelink.test",
		Password:    "hunter2",
		FullName:    "Boniface Kiprop",
		PlateNumber: "kda 123x",
		Route:       "CBD - Nakuru",
		StageID:     4,
	})
	require.NoError(t, err)
	require.Equal(t, entity.RoleDriver, user.Role)
	require.Equal(t, int64(21), *user.DriverProfileID)
	require.Equal(t, "KDA 123X", profile.PlateNumber)
	require.Equal(t, "KDA 123X", vehicle.PlateNumber)
	require.Equal(t, entity.VehicleCategoryPSV, vehicle.Category)
	require.Equal(t, entity.VehicleDefaultCapacity, vehicle.Capacity)
	require.Equal(t, int64(31), *vehicle.DriverID)
}

func TestRegisterDriverUnknownStage(t *testing.T) {
	reg := &fakeRegistry{stageByID: func(int64) (*entity.Stage, error) { return nil, registry.ErrNotFound }}
	svc := newTestService(reg)

	_, err := svc.RegisterDriver(context.Background(), DriverRequest{
		Email: "driver@stagelink.test", Password: "x", FullName: "B", PlateNumber: "KDA 123X", StageID: 99,
	})
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestStageResourcesUnknownStage(t *testing.T) {
	reg := &fakeRegistry{stageByID: func(int64) (*entity.Stage, error) { return nil, registry.ErrNotFound }}
	svc := newTestService(reg)

	_, _, err := svc.StageResources(context.Background(), 99)
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}
