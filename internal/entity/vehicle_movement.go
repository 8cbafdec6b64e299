package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// MovementStatus enumerates vehicle movement states.
type MovementStatus string

const (
	MovementDeparted MovementStatus = "DEPARTED"
	MovementArrived  MovementStatus = "ARRIVED"
)

// VehicleMovement is one departure/arrival event of a vehicle at a stage on a
// given day. Movements are never deleted; the ledger is historical, so an
// arrival may be recorded exactly once.
type VehicleMovement struct {
	bun.BaseModel `bun:"table:vehicle_movements,alias:vm"`

	ID            int64          `bun:",pk,autoincrement" json:"id"`
	StageID       int64          `bun:"stage_id" json:"stageId"`
	VehicleID     int64          `bun:"vehicle_id" json:"vehicleId"`
	DriverID      int64          `bun:"driver_id" json:"driverId"`
	Route         string         `bun:"route" json:"route"`
	DepartureTime time.Time      `bun:"departure_time" json:"departureTime"`
	ArrivalTime   *time.Time     `bun:"arrival_time,nullzero" json:"arrivalTime,omitempty"`
	Status        MovementStatus `bun:"status" json:"status"`

	// Day is the calendar-date key (YYYY-MM-DD) of the departure in the
	// ledger's reference time zone, used for daily aggregation.
	Day string `bun:"day" json:"day"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updatedAt"`

	Vehicle *Vehicle `bun:"rel:belongs-to,join:vehicle_id=id" json:"vehicle,omitempty"`
	Driver  *User    `bun:"rel:belongs-to,join:driver_id=id" json:"driver,omitempty"`
}

// DayKey formats t as a ledger day key in the supplied location.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}
