package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	userDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
)

// ErrDuplicateUser is returned by repositories when a unique constraint on
// username or email rejects an insert.
var ErrDuplicateUser = errors.New("duplicate user")

type RepositoryAPI interface {
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, user *userDatamodel.User) error
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(userID int64, role Role) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGeneratorAPI
	audit          AuditRecorder
	bcryptCost     int
	logger         *slog.Logger
}

func NewService(repo RepositoryAPI, tokenGen TokenGeneratorAPI, recorder AuditRecorder, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		audit:          recorder,
		bcryptCost:     bcryptCost,
		logger:         logger,
	}
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:         []byte(secret),
		AccessTokenTTL: ttl,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsernameOrEmail(ctx, dto.Username, dto.Email)
	if err != nil {
		s.logger.Error("failed to check existing user", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}
	if exists {
		return nil, internal.ErrUserExists
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		s.logger.Error("failed to hash password", "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	row := &userDatamodel.User{
		Username:     dto.Username,
		Email:        dto.Email,
		PasswordHash: hash,
		Role:         dto.Role,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		if errors.Is(err, ErrDuplicateUser) {
			return nil, internal.ErrUserExists
		}
		s.logger.Error("failed to create user", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("failed to register user", err)
	}

	user := FromDataModel(row)
	token, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		return nil, internal.NewInternalError("failed to generate token", err)
	}

	s.audit.Record(ctx, audit.NewEntry(user.ID, user.Username, audit.ActionCreateUser,
		fmt.Sprintf("user registered: %s (%s)", user.Username, user.Role)))
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)

	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByUsername(ctx, dto.Username)
	if err != nil {
		s.logger.Error("failed to load user for login", "username", dto.Username, "error", err)
		return nil, internal.NewInternalError("failed to authenticate", err)
	}
	if row == nil {
		return nil, internal.ErrInvalidCredentials
	}

	if err := VerifyPassword(row.PasswordHash, dto.Password); err != nil {
		s.logger.Warn("login rejected: wrong password", "user_id", row.ID)
		return nil, internal.ErrInvalidCredentials
	}

	user := FromDataModel(row)
	token, err := s.tokenGenerator.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		s.logger.Error("failed to generate token", "user_id", user.ID, "error", err)
		return nil, internal.NewInternalError("failed to generate token", err)
	}

	s.audit.Record(ctx, audit.NewEntry(user.ID, user.Username, audit.ActionLogin, "user logged in"))

	return &AuthResponse{Token: token, User: user.ToResponse()}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// GetPrincipal reloads the caller so role changes and deletions take effect
// before the token expires.
func (s *Service) GetPrincipal(ctx context.Context, userID int64) (*User, error) {
	row, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("failed to load principal", "user_id", userID, "error", err)
		return nil, internal.NewInternalError("failed to load user", err)
	}
	if row == nil {
		return nil, internal.NewUnauthorizedError("User no longer exists", internal.ErrCodeUserNotFound)
	}
	return FromDataModel(row), nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(userID int64, role Role) (string, error) {
	now := time.Now()

	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   strconv.FormatInt(userID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID > 0 {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}
