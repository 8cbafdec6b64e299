package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// DriverProfile carries the operational details of a driver: plate, route
// and contact, scoped to a stage.
type DriverProfile struct {
	bun.BaseModel `bun:"table:driver_profiles,alias:dp"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	PlateNumber string    `bun:"plate_number" json:"plateNumber"`
	DriverName  string    `bun:"driver_name" json:"driverName"`
	DriverPhone string    `bun:"driver_phone" json:"driverPhone"`
	Route       string    `bun:"route" json:"route"`
	StageID     *int64    `bun:"stage_id,nullzero" json:"stageId,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updatedAt"`
}
