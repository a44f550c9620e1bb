package auth

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	userDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
)

type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleGestor        Role = "GESTOR"
	RoleFinanceiro    Role = "FINANCEIRO"
	RoleContabilidade Role = "CONTABILIDADE"
	RoleViewer        Role = "VIEWER"
)

var Roles = []Role{RoleAdmin, RoleGestor, RoleFinanceiro, RoleContabilidade, RoleViewer}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func roleNames() []string {
	names := make([]string, len(Roles))
	for i, r := range Roles {
		names[i] = string(r)
	}
	return names
}

const avatarFallbackBase = "https://ui-avatars.com/api/?name="

// User is the authenticated principal attached to each request.
type User struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Role     Role    `json:"role"`
	Avatar   *string `json:"avatar,omitempty"`
}

func (u *User) Can(p Permission) bool {
	return u != nil && u.Role.Can(p)
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     Role(u.Role),
		Avatar:   u.Avatar,
	}
}

// Claims represents JWT token claims
type Claims struct {
	UserID int64 `json:"id"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	Secret         []byte
	AccessTokenTTL time.Duration
}

type contextKey string

const ContextUserKey contextKey = "authUser"

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

// AvatarURL returns the stored avatar or a generated initials image.
func AvatarURL(username string, avatar *string) string {
	if avatar != nil && strings.TrimSpace(*avatar) != "" {
		return *avatar
	}
	return avatarFallbackBase + url.QueryEscape(username)
}
