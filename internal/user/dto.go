package user

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/core/common/validation"
)

type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      auth.Role `json:"role"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// UpdateProfileDTO carries the optional new display name (which is the
// username) and avatar image.
type UpdateProfileDTO struct {
	Name   string
	Avatar *multipart.FileHeader
}

func (d *UpdateProfileDTO) Validate() *internal.AppError {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return nil
	}
	v := validation.NewValidator()
	v.Field("name", d.Name).MinLength(3).MaxLength(50)
	return v.Validate()
}
