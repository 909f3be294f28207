package dto

import (
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/service"
)

// CredentialsRequest payload for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// UpdateProfileRequest payload for PATCH /users/me.
type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Address  *string `json:"address"`
}

// ChangeRoleRequest payload.
type ChangeRoleRequest struct {
	Role domain.Role `json:"role" validate:"required"`
}

// AccountResponse is the public view of a user.
type AccountResponse struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Name      *string     `json:"name"`
	Address   *string     `json:"address"`
	AvatarURL *string     `json:"avatar_url"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse bundles the account and its token.
type LoginResponse struct {
	User AccountResponse `json:"user"`
	Auth AuthResponse    `json:"auth"`
}

// NewAccountResponse maps an account for output.
func NewAccountResponse(a *service.Account) AccountResponse {
	return AccountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Role:      a.Role,
		Name:      a.Name,
		Address:   a.Address,
		AvatarURL: a.AvatarURL,
		CreatedAt: a.CreatedAt,
	}
}
