package auth

import (
	"strings"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/core/common/validation"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterDTO struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type UserResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Avatar   string `json:"avatar"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		Name:     u.Username,
		Avatar:   AvatarURL(u.Username, u.Avatar),
	}
}

func (d *LoginDTO) Validate() *internal.AppError {
	d.Username = strings.TrimSpace(d.Username)

	v := validation.NewValidator()
	v.Field("username", d.Username).Required()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// Validate trims the input and fills the default role before checking it.
func (d *RegisterDTO) Validate() *internal.AppError {
	d.Username = strings.TrimSpace(d.Username)
	d.Email = strings.TrimSpace(d.Email)
	d.Role = strings.ToUpper(strings.TrimSpace(d.Role))
	if d.Role == "" {
		d.Role = string(RoleViewer)
	}

	v := validation.NewValidator()
	v.Field("username", d.Username).Required().MinLength(3).MaxLength(50)
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required().MinLength(6)
	v.Field("role", d.Role).OneOf(roleNames(), internal.ErrCodeInvalidRole)
	return v.Validate()
}
