package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// PassengerLog is a driver's self-reported passenger and trip tally for one
// day. One row per driver per day, updated in place.
type PassengerLog struct {
	bun.BaseModel `bun:"table:passenger_logs,alias:pl"`

	ID         int64     `bun:",pk,autoincrement" json:"id"`
	DriverID   int64     `bun:"driver_id" json:"driverId"`
	Day        string    `bun:"day" json:"day"`
	Passengers int       `bun:"passengers" json:"passengers"`
	Trips      int       `bun:"trips" json:"trips"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero" json:"updatedAt"`
}
