package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// ParcelStatus enumerates the lifecycle states of a parcel order.
type ParcelStatus string

const (
	// ParcelCreated is the declared initial state. No current flow leaves an
	// order here (send registers orders directly in transit), but the state
	// stays in the table so a direct-registration flow can use it.
	ParcelCreated   ParcelStatus = "CREATED"
	ParcelInTransit ParcelStatus = "IN_TRANSIT"
	ParcelArrived   ParcelStatus = "ARRIVED"
	// ParcelPickedUp is terminal: reaching it removes the record.
	ParcelPickedUp ParcelStatus = "PICKED_UP"
)

// parcelTransitions is the single source of truth for legal status moves.
// ARRIVED permits a self-transition: a second arrival confirmation re-stamps
// the manager timestamp and succeeds. PICKED_UP is reachable from IN_TRANSIT
// because customers may collect before the stage confirms arrival.
var parcelTransitions = map[ParcelStatus][]ParcelStatus{
	ParcelCreated:   {ParcelInTransit},
	ParcelInTransit: {ParcelArrived, ParcelPickedUp},
	ParcelArrived:   {ParcelArrived, ParcelPickedUp},
	ParcelPickedUp:  {},
}

// Valid reports whether s is a known parcel status.
func (s ParcelStatus) Valid() bool {
	_, ok := parcelTransitions[s]
	return ok
}

// Terminal reports whether no further transition leaves s.
func (s ParcelStatus) Terminal() bool {
	return s.Valid() && len(parcelTransitions[s]) == 0
}

// CanTransition reports whether moving from s to next is legal.
func (s ParcelStatus) CanTransition(next ParcelStatus) bool {
	for _, allowed := range parcelTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParcelOrder is an inter-stage parcel handoff. The sender stage owns the
// record; the receiver stage may only advance its status. The row is hard
// deleted when the customer confirms pickup.
type ParcelOrder struct {
	bun.BaseModel `bun:"table:parcel_orders,alias:po"`

	ID              int64        `bun:",pk,autoincrement" json:"id"`
	OrderCode       string       `bun:"order_code" json:"orderCode"`
	SenderStageID   int64        `bun:"sender_stage_id" json:"senderStageId"`
	ReceiverStageID int64        `bun:"receiver_stage_id" json:"receiverStageId"`
	VehicleID       int64        `bun:"vehicle_id" json:"vehicleId"`
	DriverID        int64        `bun:"driver_id" json:"driverId"`
	CustomerName    string       `bun:"customer_name" json:"customerName"`
	CustomerPhone   string       `bun:"customer_phone" json:"customerPhone"`
	Destination     string       `bun:"destination" json:"destination"`
	Amount          float64      `bun:"amount" json:"amount"`
	ParcelCount     int          `bun:"parcel_count" json:"parcelCount"`
	Description     string       `bun:"description,nullzero" json:"description,omitempty"`
	DepartureTime   time.Time    `bun:"departure_time" json:"departureTime"`
	ETA             time.Time    `bun:"eta" json:"eta"`
	Status          ParcelStatus `bun:"status" json:"status"`

	// Confirmation stamps. ManagerConfirmedAt is set iff status reached
	// ARRIVED; CustomerConfirmedAt is set only just before deletion.
	ManagerConfirmedAt  *time.Time `bun:"manager_confirmed_at,nullzero" json:"managerConfirmedAt,omitempty"`
	CustomerConfirmedAt *time.Time `bun:"customer_confirmed_at,nullzero" json:"customerConfirmedAt,omitempty"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updatedAt"`

	SenderStage   *Stage   `bun:"rel:belongs-to,join:sender_stage_id=id" json:"senderStage,omitempty"`
	ReceiverStage *Stage   `bun:"rel:belongs-to,join:receiver_stage_id=id" json:"receiverStage,omitempty"`
	Vehicle       *Vehicle `bun:"rel:belongs-to,join:vehicle_id=id" json:"vehicle,omitempty"`
	Driver        *User    `bun:"rel:belongs-to,join:driver_id=id" json:"driver,omitempty"`
}
