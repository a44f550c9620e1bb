package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
	userDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
	"github.com/frahmantamala/ecodocs/internal/storage"
)

// MaxImageSize bounds avatar and logo uploads.
const MaxImageSize = 5 << 20

type RepositoryAPI interface {
	List(ctx context.Context) ([]*userDatamodel.User, error)
	GetByID(ctx context.Context, id int64) (*userDatamodel.User, error)
	GetByUsername(ctx context.Context, username string) (*userDatamodel.User, error)
	CountDocuments(ctx context.Context, userID int64) (int64, error)
	Delete(ctx context.Context, id int64) error
	UpdateProfile(ctx context.Context, id int64, updates map[string]interface{}) error
}

type FileStore interface {
	SaveImage(fh *multipart.FileHeader, maxSize int64) (*storage.StoredFile, error)
	Discard(relPath string)
	PublicURL(fileName string) string
	PathFromPublicURL(url string) (string, bool)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo   RepositoryAPI
	store  FileStore
	audit  AuditRecorder
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, store FileStore, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		audit:  recorder,
		logger: logger,
	}
}

func (s *Service) List(ctx context.Context, actor *auth.User) ([]UserResponse, error) {
	if !actor.Can(auth.PermUsersManage) {
		return nil, internal.ErrUnauthorizedAccess
	}

	rows, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", "error", err)
		return nil, internal.NewInternalError("failed to list users", err)
	}

	users := make([]UserResponse, 0, len(rows))
	for _, row := range rows {
		users = append(users, FromDataModel(row).ToResponse())
	}
	return users, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.User, id int64) error {
	if !actor.Can(auth.PermUsersManage) {
		return internal.ErrUnauthorizedAccess
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", id, "error", err)
		return internal.NewInternalError("failed to delete user", err)
	}
	if row == nil {
		return internal.ErrUserNotFound
	}

	owned, err := s.repo.CountDocuments(ctx, id)
	if err != nil {
		s.logger.Error("failed to count user documents", "user_id", id, "error", err)
		return internal.NewInternalError("failed to delete user", err)
	}
	if owned > 0 {
		return internal.ErrUserHasDocuments
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete user", "user_id", id, "error", err)
		return internal.NewInternalError("failed to delete user", err)
	}

	if row.Avatar != nil {
		s.discardPublic(*row.Avatar)
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionDeleteUser,
		fmt.Sprintf("user deleted: %s (id %d)", row.Username, row.ID)))
	return nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor *auth.User, dto UpdateProfileDTO) (*UserResponse, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		s.logger.Error("failed to load profile", "user_id", actor.ID, "error", err)
		return nil, internal.NewInternalError("failed to update profile", err)
	}
	if current == nil {
		return nil, internal.ErrUserNotFound
	}

	var oldAvatar string
	if current.Avatar != nil {
		oldAvatar = *current.Avatar
	}

	updates := map[string]interface{}{}
	if dto.Name != "" && dto.Name != current.Username {
		taken, err := s.repo.GetByUsername(ctx, dto.Name)
		if err != nil {
			s.logger.Error("failed to check username", "name", dto.Name, "error", err)
			return nil, internal.NewInternalError("failed to update profile", err)
		}
		if taken != nil && taken.ID != actor.ID {
			return nil, internal.NewConflictError("Username already taken", internal.ErrCodeUserExists)
		}
		updates["username"] = dto.Name
	}

	var saved *storage.StoredFile
	if dto.Avatar != nil {
		saved, err = s.store.SaveImage(dto.Avatar, MaxImageSize)
		if err != nil {
			return nil, imageError(err, s.logger)
		}
		updates["avatar"] = s.store.PublicURL(saved.FileName)
	}

	if len(updates) > 0 {
		if err := s.repo.UpdateProfile(ctx, actor.ID, updates); err != nil {
			if saved != nil {
				s.store.Discard(saved.Path)
			}
			if errors.Is(err, ErrDuplicateUsername) {
				return nil, internal.NewConflictError("Username already taken", internal.ErrCodeUserExists)
			}
			s.logger.Error("failed to update profile", "user_id", actor.ID, "error", err)
			return nil, internal.NewInternalError("failed to update profile", err)
		}
		if saved != nil && oldAvatar != "" {
			s.discardPublic(oldAvatar)
		}
		s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionUpdateProfile, "profile updated"))
	}

	updated, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil || updated == nil {
		s.logger.Error("failed to reload profile", "user_id", actor.ID, "error", err)
		return nil, internal.NewInternalError("failed to update profile", err)
	}
	resp := FromDataModel(updated).ToResponse()
	return &resp, nil
}

func (s *Service) discardPublic(url string) {
	if p, ok := s.store.PathFromPublicURL(url); ok {
		s.store.Discard(p)
	}
}

// imageError maps storage image failures onto upload errors.
func imageError(err error, logger *slog.Logger) error {
	switch {
	case errors.Is(err, storage.ErrNotAnImage):
		return internal.ErrInvalidImageType
	case errors.Is(err, storage.ErrTooLarge):
		return internal.ErrFileTooLarge
	default:
		logger.Error("failed to store image", "error", err)
		return internal.NewInternalError("failed to store image", err)
	}
}
