package parcel

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trustdrive/stagelink/internal/entity"
	"github.com/trustdrive/stagelink/internal/messaging"
	"github.com/trustdrive/stagelink/internal/ordercode"
	repo "github.com/trustdrive/stagelink/internal/repository/parcel"
	"github.com/trustdrive/stagelink/internal/repository/registry"
	"github.com/trustdrive/stagelink/pkg/errorbank"
)

var errUnexpectedCall = errors.New("unexpected call")

type fakeOrders struct {
	create       func(*entity.ParcelOrder) error
	byCode       func(string) (*entity.ParcelOrder, error)
	byCodeCust   func(string, string) (*entity.ParcelOrder, error)
	listSender   func(int64) ([]entity.ParcelOrder, error)
	listReceiver func(int64) ([]entity.ParcelOrder, error)
	listDriver   func(int64) ([]entity.ParcelOrder, error)
	markArrived  func(int64, time.Time) error
	markPicked   func(int64, time.Time) error
	remove       func(int64) error
}

func (f *fakeOrders) Create(_ context.Context, o *entity.ParcelOrder) error {
	if f.create == nil {
		return errUnexpectedCall
	}
	return f.create(o)
}

func (f *fakeOrders) ByCode(_ context.Context, code string) (*entity.ParcelOrder, error) {
	if f.byCode == nil {
		return nil, errUnexpectedCall
	}
	return f.byCode(code)
}

func (f *fakeOrders) ByCodeAndCustomer(_ context.Context, code, name string) (*entity.ParcelOrder, error) {
	if f.byCodeCust == nil {
		return nil, errUnexpectedCall
	}
	return f.byCodeCust(code, name)
}

func (f *fakeOrders) ListBySender(_ context.Context, stageID int64) ([]entity.ParcelOrder, error) {
	if f.listSender == nil {
		return nil, errUnexpectedCall
	}
	return f.listSender(stageID)
}

func (f *fakeOrders) ListByReceiver(_ context.Context, stageID int64) ([]entity.ParcelOrder, error) {
	if f.listReceiver == nil {
		return nil, errUnexpectedCall
	}
	return f.listReceiver(stageID)
}

func (f *fakeOrders) ListActiveByDriver(_ context.Context, driverID int64) ([]entity.ParcelOrder, error) {
	if f.listDriver == nil {
		return nil, errUnexpectedCall
	}
	return f.listDriver(driverID)
}

func (f *fakeOrders) MarkArrived(_ context.Context, id int64, at time.Time) error {
	if f.markArrived == nil {
		return errUnexpectedCall
	}
	return f.markArrived(id, at)
}

func (f *fakeOrders) MarkPickedUp(_ context.Context, id int64, at time.Time) error {
	if f.markPicked == nil {
		return errUnexpectedCall
	}
	return f.markPicked(id, at)
}

func (f *fakeOrders) Delete(_ context.Context, id int64) error {
	if f.remove == nil {
		return errUnexpectedCall
	}
	return f.remove(id)
}

type fakeRefs struct {
	stage   func(int64) (*entity.Stage, error)
	vehicle func(int64) (*entity.Vehicle, error)
	user    func(int64) (*entity.User, error)
}

func (f *fakeRefs) StageByID(_ context.Context, id int64) (*entity.Stage, error) {
	if f.stage == nil {
		return nil, errUnexpectedCall
	}
	return f.stage(id)
}

func (f *fakeRefs) VehicleByID(_ context.Context, id int64) (*entity.Vehicle, error) {
	if f.vehicle == nil {
		return nil, errUnexpectedCall
	}
	return f.vehicle(id)
}

func (f *fakeRefs) UserByID(_ context.Context, id int64) (*entity.User, error) {
	if f.user == nil {
		return nil, errUnexpectedCall
	}
	return f.user(id)
}

type fakeIssuer struct{ err error }

func (f fakeIssuer) Sign(subject string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "token-for-" + subject, nil
}

func (f fakeIssuer) Verify(raw string) (string, error) {
	if !strings.HasPrefix(raw, "token-for-") {
		return "", errors.New("invalid token")
	}
	return strings.TrimPrefix(raw, "token-for-"), nil
}

type capturedEvent struct {
	key   string
	event LifecycleEvent
}

type fakePublisher struct{ events []capturedEvent }

func (f *fakePublisher) Publish(_ context.Context, key []byte, value []byte) error {
	var event LifecycleEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	f.events = append(f.events, capturedEvent{key: string(key), event: event})
	return nil
}

func (f *fakePublisher) Consume(context.Context, messaging.Handler) error { return nil }

func (f *fakePublisher) Topic() string { return "parcels.lifecycle" }

func newTestService(orders *fakeOrders, refs *fakeRefs) *Service {
	return &Service{
		orders:    orders,
		refs:      refs,
		parcelTok: fakeIssuer{},
		logger:    zap.NewNop(),
	}
}

func stageManager(stageID int64) *entity.User {
	return &entity.User{ID: 7, Role: entity.RoleStageManager, StageID: &stageID}
}

func TestSendCreatesInTransitOrder(t *testing.T) {
	var created *entity.ParcelOrder
	orders := &fakeOrders{create: func(o *entity.ParcelOrder) error {
		o.ID = 42
		created = o
		return nil
	}}
	refs := &fakeRefs{
		stage:   func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id, Name: "Downtown"}, nil },
		vehicle: func(id int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id, PlateNumber: "KDA 123X"}, nil },
		user:    func(id int64) (*entity.User, error) { return &entity.User{ID: id, Role: entity.RoleDriver}, nil },
	}
	svc := newTestService(orders, refs)

	order, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 2,
		VehicleID:       3,
		DriverID:        4,
		CustomerName:    "Jane Wanjiku",
		CustomerPhone:   "+254700000001",
		Destination:     "Nakuru",
		Amount:          350,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.Equal(t, entity.ParcelInTransit, order.Status)
	require.Regexp(t, ordercode.Pattern, order.OrderCode)
	require.Equal(t, int64(1), order.SenderStageID)
	require.Equal(t, int64(2), order.ReceiverStageID)
	require.Equal(t, 1, order.ParcelCount)
	require.WithinDuration(t, time.Now().UTC().Add(4*time.Hour), order.ETA, time.Minute)
	require.Nil(t, order.ManagerConfirmedAt)
}

func TestSendDefaultEtaAnchoredToNow(t *testing.T) {
	orders := &fakeOrders{create: func(*entity.ParcelOrder) error { return nil }}
	refs := &fakeRefs{
		stage:   func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id}, nil },
		vehicle: func(id int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id}, nil },
		user:    func(id int64) (*entity.User, error) { return &entity.User{ID: id}, nil },
	}
	svc := newTestService(orders, refs)

	departure := time.Now().UTC().Add(-10 * time.Hour)
	order, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 2, VehicleID: 3, DriverID: 4,
		CustomerName: "Jane", CustomerPhone: "0700", Destination: "Nakuru",
		DepartureTime: &departure,
	})
	require.NoError(t, err)
	require.Equal(t, departure, order.DepartureTime)
	require.WithinDuration(t, time.Now().UTC().Add(4*time.Hour), order.ETA, time.Minute)
	require.True(t, order.ETA.After(time.Now().UTC()))
}

func TestSendAcceptsVehicleFromAnotherStage(t *testing.T) {
	orders := &fakeOrders{create: func(*entity.ParcelOrder) error { return nil }}
	foreign := int64(7)
	refs := &fakeRefs{
		stage:   func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id}, nil },
		vehicle: func(id int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id, StageID: &foreign}, nil },
		user:    func(id int64) (*entity.User, error) { return &entity.User{ID: id, Role: entity.RoleDriver, StageID: &foreign}, nil },
	}
	svc := newTestService(orders, refs)

	order, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 2, VehicleID: 3, DriverID: 4,
		CustomerName: "Jane", CustomerPhone: "0700", Destination: "Nakuru",
	})
	require.NoError(t, err)
	require.Equal(t, int64(3), order.VehicleID)
	require.Equal(t, int64(4), order.DriverID)
}

func TestSendRetriesOnCodeCollision(t *testing.T) {
	calls := 0
	orders := &fakeOrders{create: func(o *entity.ParcelOrder) error {
		calls++
		if calls < 3 {
			return repo.ErrDuplicate
		}
		return nil
	}}
	refs := &fakeRefs{
		stage:   func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id}, nil },
		vehicle: func(id int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id}, nil },
		user:    func(id int64) (*entity.User, error) { return &entity.User{ID: id}, nil },
	}
	svc := newTestService(orders, refs)

	_, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 2, VehicleID: 3, DriverID: 4,
		CustomerName: "Jane", CustomerPhone: "0700", Destination: "Nakuru",
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestSendGivesUpAfterRepeatedCollisions(t *testing.T) {
	calls := 0
	orders := &fakeOrders{create: func(*entity.ParcelOrder) error {
		calls++
		return repo.ErrDuplicate
	}}
	refs := &fakeRefs{
		stage:   func(id int64) (*entity.Stage, error) { return &entity.Stage{ID: id}, nil },
		vehicle: func(id int64) (*entity.Vehicle, error) { return &entity.Vehicle{ID: id}, nil },
		user:    func(id int64) (*entity.User, error) { return &entity.User{ID: id}, nil },
	}
	svc := newTestService(orders, refs)

	_, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 2, VehicleID: 3, DriverID: 4,
		CustomerName: "Jane", CustomerPhone: "0700", Destination: "Nakuru",
	})
	require.True(t, errorbank.IsKind(err, errorbank.KindDuplicateKey))
	require.Equal(t, codeAttempts, calls)
}

func TestSendRejectsUnknownReferences(t *testing.T) {
	refs := &fakeRefs{
		stage: func(int64) (*entity.Stage, error) { return nil, registry.ErrNotFound },
	}
	svc := newTestService(&fakeOrders{}, refs)

	_, err := svc.Send(context.Background(), stageManager(1), SendRequest{
		ReceiverStageID: 99, VehicleID: 3, DriverID: 4,
		CustomerName: "Jane", CustomerPhone: "0700", Destination: "Nakuru",
	})
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestSendRequiresStageAssignment(t *testing.T) {
	svc := newTestService(&fakeOrders{}, &fakeRefs{})

	_, err := svc.Send(context.Background(), &entity.User{ID: 1}, SendRequest{})
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestConfirmArrivalStampsReceiver(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", ReceiverStageID: 2, Status: entity.ParcelInTransit}
	var stampedID int64
	orders := &fakeOrders{
		byCode:      func(string) (*entity.ParcelOrder, error) { return order, nil },
		markArrived: func(id int64, _ time.Time) error { stampedID = id; return nil },
	}
	svc := newTestService(orders, &fakeRefs{})

	got, err := svc.ConfirmArrival(context.Background(), stageManager(2), "kjt 41h b7")
	require.NoError(t, err)
	require.Equal(t, int64(5), stampedID)
	require.Equal(t, entity.ParcelArrived, got.Status)
	require.NotNil(t, got.ManagerConfirmedAt)
}

func TestConfirmArrivalIsRepeatable(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", ReceiverStageID: 2, Status: entity.ParcelArrived}
	orders := &fakeOrders{
		byCode:      func(string) (*entity.ParcelOrder, error) { return order, nil },
		markArrived: func(int64, time.Time) error { return nil },
	}
	svc := newTestService(orders, &fakeRefs{})

	_, err := svc.ConfirmArrival(context.Background(), stageManager(2), "KJT 41H B7")
	require.NoError(t, err)
}

func TestConfirmArrivalRejectsWrongStage(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", ReceiverStageID: 2, Status: entity.ParcelInTransit}
	orders := &fakeOrders{byCode: func(string) (*entity.ParcelOrder, error) { return order, nil }}
	svc := newTestService(orders, &fakeRefs{})

	_, err := svc.ConfirmArrival(context.Background(), stageManager(3), "KJT 41H B7")
	require.True(t, errorbank.IsKind(err, errorbank.KindForbidden))
}

func TestConfirmArrivalUnknownCode(t *testing.T) {
	orders := &fakeOrders{byCode: func(string) (*entity.ParcelOrder, error) { return nil, repo.ErrNotFound }}
	svc := newTestService(orders, &fakeRefs{})

	_, err := svc.ConfirmArrival(context.Background(), stageManager(2), "AAA 11A A1")
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestLookupMintsParcelToken(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", CustomerName: "Jane Wanjiku", Status: entity.ParcelArrived}
	orders := &fakeOrders{byCodeCust: func(code, name string) (*entity.ParcelOrder, error) {
		require.Equal(t, "KJT 41H B7", code)
		require.Equal(t, "Jane Wanjiku", name)
		return order, nil
	}}
	svc := newTestService(orders, &fakeRefs{})

	tok, got, err := svc.Lookup(context.Background(), "  kjt 41h b7 ", " Jane Wanjiku ")
	require.NoError(t, err)
	require.Equal(t, "token-for-KJT 41H B7", tok)
	require.Equal(t, order, got)
}

func TestLookupFailsUniformly(t *testing.T) {
	orders := &fakeOrders{byCodeCust: func(string, string) (*entity.ParcelOrder, error) { return nil, repo.ErrNotFound }}
	svc := newTestService(orders, &fakeRefs{})

	_, _, err := svc.Lookup(context.Background(), "KJT 41H B7", "Someone Else")
	require.True(t, errorbank.IsKind(err, errorbank.KindNotFound))
}

func TestLookupGoneAfterPickup(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelPickedUp}
	orders := &fakeOrders{byCodeCust: func(string, string) (*entity.ParcelOrder, error) { return order, nil }}
	svc := newTestService(orders, &fakeRefs{})

	_, _, err := svc.Lookup(context.Background(), "KJT 41H B7", "Jane")
	require.True(t, errorbank.IsKind(err, errorbank.KindGone))
}

func TestLookupRequiresBothFields(t *testing.T) {
	svc := newTestService(&fakeOrders{}, &fakeRefs{})

	_, _, err := svc.Lookup(context.Background(), "", "Jane")
	require.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
}

func TestConfirmPickupRetiresOrder(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelArrived, DriverID: 4}
	var stamped, removed int64
	orders := &fakeOrders{
		markPicked: func(id int64, _ time.Time) error { stamped = id; return nil },
		remove:     func(id int64) error { removed = id; return nil },
	}
	pub := &fakePublisher{}
	svc := newTestService(orders, &fakeRefs{})
	svc.publisher = pub
	svc.messaging = messagingConfig{enabled: true, topic: "parcels.lifecycle"}

	err := svc.ConfirmPickup(context.Background(), order)
	require.NoError(t, err)
	require.Equal(t, int64(5), stamped)
	require.Equal(t, int64(5), removed)
	require.NotNil(t, order.CustomerConfirmedAt)

	require.Len(t, pub.events, 1)
	require.Equal(t, "parcel.picked_up", pub.events[0].event.Event)
	require.Equal(t, entity.ParcelPickedUp, pub.events[0].event.Status)
	require.Equal(t, "parcel-5", pub.events[0].key)
}

func TestConfirmPickupBeforeArrivalIsAllowed(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelInTransit}
	orders := &fakeOrders{
		markPicked: func(int64, time.Time) error { return nil },
		remove:     func(int64) error { return nil },
	}
	svc := newTestService(orders, &fakeRefs{})

	require.NoError(t, svc.ConfirmPickup(context.Background(), order))
}

func TestConfirmPickupIsTerminal(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelPickedUp}
	svc := newTestService(&fakeOrders{}, &fakeRefs{})

	err := svc.ConfirmPickup(context.Background(), order)
	require.True(t, errorbank.IsKind(err, errorbank.KindConflict))
}

func TestOrderForTokenRoundTrip(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelArrived}
	orders := &fakeOrders{byCode: func(code string) (*entity.ParcelOrder, error) {
		require.Equal(t, "KJT 41H B7", code)
		return order, nil
	}}
	svc := newTestService(orders, &fakeRefs{})

	got, err := svc.OrderForToken(context.Background(), "token-for-KJT 41H B7")
	require.NoError(t, err)
	require.Equal(t, order, got)

	_, err = svc.OrderForToken(context.Background(), "garbage")
	require.True(t, errorbank.IsKind(err, errorbank.KindUnauthorized))
}

func TestDetailsByCodeGoneAfterPickup(t *testing.T) {
	order := &entity.ParcelOrder{ID: 5, OrderCode: "KJT 41H B7", Status: entity.ParcelPickedUp}
	orders := &fakeOrders{byCode: func(string) (*entity.ParcelOrder, error) { return order, nil }}
	svc := newTestService(orders, &fakeRefs{})

	_, err := svc.DetailsByCode(context.Background(), "KJT 41H B7")
	require.True(t, errorbank.IsKind(err, errorbank.KindGone))
}
