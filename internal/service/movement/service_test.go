package movement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/entity"
	repo "github.com/trustdrive/stagelink/internal/repository/movement"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var errUnexpectedCall = errors.New("unexpected call")

type fakeLedger struct {
	create       func(*entity.VehicleMovement) error
	byID         func(int64) (*entity.VehicleMovement, error)
	markArrived  func(int64, time.Time) error
	countByDay   func(int64, string) (int, error)
	countArrived func(int64, string) (int, error)
	listActive   func(int64, string) ([]entity.VehicleMovement, error)
}

func (f *fakeLedger) Create(_ context.Context, m *entity.VehicleMovement) error {
	if f.create == nil {
		return errUnexpectedCall
	}
	return f.create(m)
}

func (f *fakeLedger) ByID(_ context.Context, id int64) (*entity.VehicleMovement, error) {
	if f.byID == nil {
		return nil, errUnexpectedCall
	}
	return f.byID(id)
}

func (f *fakeLedger) MarkArrived(_ context.Context, id int64, at time.Time) error {
	if f.markArrived == nil {
		return errUnexpectedCall
	}
	return f.markArrived(id, at)
}

func (f *fakeLedger) CountByDay(_ context.Context, stageID int64, day string) (int, error) {
	if f.countByDay == nil {
		return 0, errUnexpectedCall
	}
	return f.countByDay(stageID, day)
}

func (f *fakeLedger) CountArrivedByDay(_ context.Context, stageID int64, day string) (int, error) {
	if f.countArrived == nil {
		return 0, errUnexpectedCall
	}
	return f.countArrived(stageID, day)
}

func (f *fakeLedger) ListActiveByDay(_ context.Context, stageID int64, day string) ([]entity.VehicleMovement, error) {
	if f.listActive == nil {
		return nil, errUnexpectedCall
	}
	return f.listActive(stageID, day)
}

type fakeRefs struct {
	vehicle func(int64, int64) (*entity.Vehicle, error)
	driver  func(int64, int64) (*entity.User, error)
}

func (f *fakeRefs) VehicleForStage(_ context.Context, vehicleID, stageID int64) (*entity.Vehicle, error) {
	if f.vehicle == nil {
		return nil, errUnexpectedCall
	}
	return f.vehicle(vehicleID, stageID)
}

func (f *fakeRefs) DriverForStage(_ context.Context, driverID, stageID int64) (*entity.User, error) {
	if f.driver == nil {
		return nil, errUnexpectedCall
	}
	return f.driver(driverID, stageID)
}

func newTestService(ledger *fakeLedger, refs *fakeRefs) *Service {
	loc, _ := time.LoadLocation("Africa/Nairobi")
	return &Service{ledger: ledger, refs: refs, loc: loc, logger: zap.NewNop()}
}

func stageManager(stageID int64) *entity.User {
	return &entity.User{ID: 7, Role: entity.RoleStageManager, StageID: &stageID}
}

func TestMarkDepartureKeysLedgerDay(t *testing.T) {
	var created *entity.VehicleMovement
	ledger := &fakeLedger{create: func(m *entity.VehicleMovement) error {
		m.ID = 9
		created = m
		return nil
	}}
	refs := &fakeRefs{
		vehicle: func(id, _ int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id}, nil },
		driver:  func(id, _ int64) (*entity.User, error) { return &entity.User{ID: id}, nil },
	}
	svc := newTestService(ledger, refs)

	// 22:05 UTC is already the next calendar day in Nairobi (UTC+3).
	departure := time.Date(2024, 3, 1, 22, 5, 0, 0, time.UTC)
	movement, err := svc.MarkDeparture(context.Background(), stageManager(1), DepartureRequest{
		VehicleID:     3,
		DriverID:      4,
		Route:         "CBD - Nakuru",
		DepartureTime: &departure,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, entity.MovementDeparted, movement.Status)
	require.Equal(t, "2024-03-02", movement.Day)
	require.Equal(t, int64(1), movement.StageID)
	require.Nil(t, movement.ArrivalTime)
}

func TestMarkDepartureUnknownVehicle(t *testing.T) {
	refs := &fakeRefs{vehicle: func(int64, int64) (*entity.Vehicle, error) { return nil, registry.ErrNotFound }}
	svc := newTestService(&fakeLedger{}, refs)

	_, err := svc.MarkDeparture(context.Background(), stageManager(1), DepartureRequest{VehicleID: 99, DriverID: 4})
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestMarkArrivalClosesMovement(t *testing.T) {
	movement := &entity.VehicleMovement{ID: 9, StageID: 1, Status: entity.MovementDeparted}
	var stamped int64
	ledger := &fakeLedger{
		byID:        func(int64) (*entity.VehicleMovement, error) { return movement, nil },
		markArrived: func(id int64, _ time.Time) error { stamped = id; return nil },
	}
	svc := newTestService(ledger, &fakeRefs{})

	got, err := svc.MarkArrival(context.Background(), stageManager(1), 9)
	require.NoError(t, err)
	require.Equal(t, int64(9), stamped)
	require.Equal(t, entity.MovementArrived, got.Status)
	require.NotNil(t, got.ArrivalTime)
}

func TestMarkArrivalIsRecordedOnce(t *testing.T) {
	movement := &entity.VehicleMovement{ID: 9, StageID: 1, Status: entity.MovementArrived}
	ledger := &fakeLedger{
		byID:        func(int64) (*entity.VehicleMovement, error) { return movement, nil },
		markArrived: func(int64, time.Time) error { return repo.ErrAlreadyArrived },
	}
	svc := newTestService(ledger, &fakeRefs{})

	_, err := svc.MarkArrival(context.Background(), stageManager(1), 9)
	require.True(t, errorbank.IsKind(err, errorbank.KindConflict))
}

func TestMarkArrivalRejectsOtherStage(t *testing.T) {
	movement := &entity.VehicleMovement{ID: 9, StageID: 2, Status: entity.MovementDeparted}
	ledger := &fakeLedger{byID: func(int64) (*entity.VehicleMovement, error) { return movement, nil }}
	svc := newTestService(ledger, &fakeRefs{})

	_, err := svc.MarkArrival(context.Background(), stageManager(1), 9)
	require.True(t, errorbank.IsKind(err, errorbank.KindForbidden))
}

func TestMarkArrivalUnknownMovement(t *testing.T) {
	ledger := &fakeLedger{byID: func(int64) (*entity.VehicleMovement, error) { return nil, repo.ErrNotFound }}
	svc := newTestService(ledger, &fakeRefs{})

	_, err := svc.MarkArrival(context.Background(), stageManager(1), 9)
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestStatsAggregatesDay(t *testing.T) {
	ledger := &fakeLedger{
		countByDay:   func(_ int64, day string) (int, error) { return 5, nil },
		countArrived: func(_ int64, day string) (int, error) { return 3, nil },
		listActive: func(_ int64, day string) ([]entity.VehicleMovement, error) {
			return []entity.VehicleMovement{{ID: 1, Day: day}, {ID: 2, Day: day}}, nil
		},
	}
	svc := newTestService(ledger, &fakeRefs{})

	stats, err := svc.Stats(context.Background(), stageManager(1), "2024-03-02")
	require.NoError(t, err)
	require.Equal(t, "2024-03-02", stats.Day)
	require.Equal(t, 5, stats.Departed)
	require.Equal(t, 3, stats.Arrived)
	require.Len(t, stats.Active, 2)
}

func TestStatsRejectsMalformedDay(t *testing.T) {
	svc := newTestService(&fakeLedger{}, &fakeRefs{})

	_, err := svc.Stats(context.Background(), stageManager(1), "02-03-2024")
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}
