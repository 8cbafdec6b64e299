package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Vehicle is a registered PSV operating out of a stage.
type Vehicle struct {
	bun.BaseModel `bun:"table:vehicles,alias:v"`

	ID          int64     `bun:",pk,autoincrement" json:"id"`
	PlateNumber string    `bun:"plate_number" json:"plateNumber"`
	Category    string    `bun:"category" json:"category"`
	DriverID    *int64    `bun:"driver_id,nullzero" json:"driverId,omitempty"`
	Capacity    int       `bun:"capacity" json:"capacity"`
	StageID     *int64    `bun:"stage_id,nullzero" json:"stageId,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero" json:"updatedAt"`

	Driver *User `bun:"rel:belongs-to,join:driver_id=id" json:"driver,omitempty"`
}

// Defaults for new vehicles.
const (
	VehicleCategoryPSV     = "PSV"
	VehicleDefaultCapacity = 14
)
