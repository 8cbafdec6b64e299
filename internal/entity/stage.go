package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Stage is a physical transit terminus. It owns vehicles, drivers and parcel
// traffic; ManagerID back-references the stage manager user once assigned.
type Stage struct {
	bun.BaseModel `bun:"table:stages,alias:s"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	Name      string    `bun:"name" json:"name"`
	Location  string    `bun:"location" json:"location"`
	ManagerID *int64    `bun:"manager_id,nullzero" json:"managerId,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `bun:"updated_at,nullzero" json:"updatedAt"`

	Manager *User `bun:"rel:belongs-to,join:manager_id=id" json:"manager,omitempty"`
}
