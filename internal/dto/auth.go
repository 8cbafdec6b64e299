package dto

import "github.com/trustdrive/stagelink/internal/entity"

// SafeUser is the staff identity without credentials.
type SafeUser struct {
	ID       int64       `json:"id"`
	Email    string      `json:"email"`
	Role     entity.Role `json:"role"`
	FullName string      `json:"fullName"`
	Phone    string      `json:"phone,omitempty"`
	StageID  *int64      `json:"stageId,omitempty"`
	Stage    *StageRef   `json:"stage,omitempty"`
}

// LoginResponse is returned on a successful staff login.
type LoginResponse struct {
	Token string   `json:"token"`
	User  SafeUser `json:"user"`
}

// NewSafeUser strips a user down to its public attributes.
func NewSafeUser(user *entity.User) SafeUser {
	safe := SafeUser{
		ID:       user.ID,
		Email:    user.Email,
		Role:     user.Role,
		FullName: user.FullName,
		Phone:    user.Phone,
		StageID:  user.StageID,
	}
	if user.Stage != nil {
		safe.Stage = NewStageRef(user.Stage)
	}
	return safe
}

// NewSafeUsers maps a list of users.
func NewSafeUsers(users []entity.User) []SafeUser {
	out := make([]SafeUser, 0, len(users))
	for i := range users {
		out = append(out, NewSafeUser(&users[i]))
	}
	return out
}
