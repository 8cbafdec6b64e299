package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Role enumerates staff roles. A user holds exactly one role.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleDriver       Role = "DRIVER"
	RoleStageManager Role = "STAGE_MANAGER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDriver, RoleStageManager:
		return true
	}
	return false
}

// User is a staff identity (admin, driver or stage manager). The password
// hash never leaves the persistence layer.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              int64     `bun:",pk,autoincrement" json:"id"`
	Email           string    `bun:"email" json:"email"`
	PasswordHash    string    `bun:"password_hash" json:"-"`
	Role            Role      `bun:"role" json:"role"`
	FullName        string    `bun:"full_name" json:"fullName"`
	Phone           string    `bun:"phone,nullzero" json:"phone,omitempty"`
	StageID         *int64    `bun:"stage_id,nullzero" json:"stageId,omitempty"`
	DriverProfileID *int64    `bun:"driver_profile_id,nullzero" json:"driverProfileId,omitempty"`
	AccountStatus   string    `bun:"account_status" json:"accountStatus"`
	CreatedAt       time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt       time.Time `bun:"updated_at,nullzero" json:"updatedAt"`

	Stage         *Stage         `bun:"rel:belongs-to,join:stage_id=id" json:"stage,omitempty"`
	DriverProfile *DriverProfile `bun:"rel:belongs-to,join:driver_profile_id=id" json:"driverProfile,omitempty"`
}

// Account status values for User.AccountStatus.
const (
	AccountActive    = "ACTIVE"
	AccountSuspended = "SUSPENDED"
)
