package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Quote is a short motivational line shown on the driver dashboard.
type Quote struct {
	bun.BaseModel `bun:"table:quotes,alias:q"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	Text      string    `bun:"text" json:"text"`
	Author    string    `bun:"author,nullzero" json:"author,omitempty"`
	IsActive  bool      `bun:"is_active" json:"isActive"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
}
