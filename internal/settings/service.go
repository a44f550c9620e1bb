package settings

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
	settingsDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/settings"
	"github.com/frahmantamala/ecodocs/internal/storage"
)

const MaxLogoSize = 5 << 20

type RepositoryAPI interface {
	// GetOrCreate returns the singleton row, inserting defaults when absent.
	GetOrCreate(ctx context.Context, defaults *settingsDatamodel.SystemSettings) (*settingsDatamodel.SystemSettings, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
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

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	row, err := s.repo.GetOrCreate(ctx, ToDataModel(NewDefaultSettings()))
	if err != nil {
		s.logger.Error("failed to load system settings", "error", err)
		return nil, internal.NewInternalError("failed to load settings", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) Update(ctx context.Context, actor *auth.User, dto UpdateSettingsDTO) (*Settings, error) {
	if !actor.Can(auth.PermSettingsUpdate) {
		s.logger.Warn("settings update denied", "user_id", actor.ID, "role", actor.Role)
		return nil, internal.ErrUnauthorizedAccess
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.CompanyName != "" {
		updates["company_name"] = dto.CompanyName
	}

	var saved *storage.StoredFile
	if dto.Logo != nil {
		saved, err = s.store.SaveImage(dto.Logo, MaxLogoSize)
		if err != nil {
			switch {
			case errors.Is(err, storage.ErrNotAnImage):
				return nil, internal.ErrInvalidImageType
			case errors.Is(err, storage.ErrTooLarge):
				return nil, internal.ErrFileTooLarge
			}
			s.logger.Error("failed to store logo", "error", err)
			return nil, internal.NewInternalError("failed to store logo", err)
		}
		updates["company_logo"] = s.store.PublicURL(saved.FileName)
	}

	if len(updates) == 0 {
		return current, nil
	}

	if err := s.repo.Update(ctx, current.ID, updates); err != nil {
		if saved != nil {
			s.store.Discard(saved.Path)
		}
		s.logger.Error("failed to update system settings", "error", err)
		return nil, internal.NewInternalError("failed to update settings", err)
	}

	if saved != nil && current.CompanyLogo != nil {
		if p, ok := s.store.PathFromPublicURL(*current.CompanyLogo); ok {
			s.store.Discard(p)
		}
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionUpdateSettings, "system settings updated"))
	return s.Get(ctx)
}
