package driver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

type fakeLogs struct {
	forDay func(int64, string) (*entity.PassengerLog, error)
	upsert func(*entity.PassengerLog) error
	quote  func() (*entity.Quote, error)
}

func (f *fakeLogs) LogForDay(_ context.Context, driverID int64, day string) (*entity.PassengerLog, error) {
	if f.forDay == nil {
		return nil, errors.New("unexpected call")
	}
	return f.forDay(driverID, day)
}

func (f *fakeLogs) UpsertLog(_ context.Context, log *entity.PassengerLog) error {
	if f.upsert == nil {
		return errors.New("unexpected call")
	}
	return f.upsert(log)
}

func (f *fakeLogs) RandomActiveQuote(context.Context) (*entity.Quote, error) {
	if f.quote == nil {
		return nil, nil
	}
	return f.quote()
}

type fakeParcels struct {
	active func(int64) ([]entity.ParcelOrder, error)
}

func (f *fakeParcels) ListActiveByDriver(_ context.Context, driverID int64) ([]entity.ParcelOrder, error) {
	if f.active == nil {
		return nil, errors.New("unexpected call")
	}
	return f.active(driverID)
}

func newTestService(logs *fakeLogs, parcels *fakeParcels) *Service {
	loc, _ := time.LoadLocation("Africa/Nairobi")
	return &Service{logs: logs, parcels: parcels, loc: loc, logger: zap.NewNop()}
}

func TestDashboardSummary(t *testing.T) {
	driver := &entity.User{ID: 4, Role: entity.RoleDriver}
	logs := &fakeLogs{
		forDay: func(driverID int64, day string) (*entity.PassengerLog, error) {
			require.Equal(t, int64(4), driverID)
			require.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, day)
			return &entity.PassengerLog{DriverID: driverID, Day: day, Passengers: 28, Trips: 2}, nil
		},
		quote: func() (*entity.Quote, error) { return &entity.Quote{Text: "Keep moving"}, nil },
	}
	parcels := &fakeParcels{active: func(int64) ([]entity.ParcelOrder, error) {
		return []entity.ParcelOrder{{ID: 1, Status: entity.ParcelInTransit}}, nil
	}}
	svc := newTestService(logs, parcels)

	summary, err := svc.DashboardSummary(context.Background(), driver)
	require.NoError(t, err)
	require.Equal(t, 28, summary.Log.Passengers)
	require.Len(t, summary.ActiveParcels, 1)
	require.Equal(t, "Keep moving", summary.Quote.Text)
}

func TestDashboardSummaryQuoteFailureIsNotFatal(t *testing.T) {
	driver := &entity.User{ID: 4}
	logs := &fakeLogs{
		forDay: func(driverID int64, day string) (*entity.PassengerLog, error) {
			return &entity.PassengerLog{DriverID: driverID, Day: day}, nil
		},
		quote: func() (*entity.Quote, error) { return nil, errors.New("db down") },
	}
	parcels := &fakeParcels{active: func(int64) ([]entity.ParcelOrder, error) { return nil, nil }}
	svc := newTestService(logs, parcels)

	summary, err := svc.DashboardSummary(context.Background(), driver)
	require.NoError(t, err)
	require.Nil(t, summary.Quote)
}

func TestRecordLogUpserts(t *testing.T) {
	driver := &entity.User{ID: 4}
	var saved *entity.PassengerLog
	logs := &fakeLogs{upsert: func(log *entity.PassengerLog) error {
		saved = log
		return nil
	}}
	svc := newTestService(logs, &fakeParcels{})

	log, err := svc.RecordLog(context.Background(), driver, LogRequest{Passengers: 30, Trips: 3})
	require.NoError(t, err)
	require.Equal(t, saved, log)
	require.Equal(t, int64(4), log.DriverID)
	require.Equal(t, 30, log.Passengers)
}

func TestRecordLogRejectsNegativeValues(t *testing.T) {
	svc := newTestService(&fakeLogs{}, &fakeParcels{})

	_, err := svc.RecordLog(context.Background(), &entity.User{ID: 4}, LogRequest{Passengers: -1})
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}
