package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/ecodocs/internal"
	auditDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/audit"
)

type RepositoryAPI interface {
	Create(ctx context.Context, log *auditDatamodel.AuditLog) error
	ListLatest(ctx context.Context, limit int) ([]*auditDatamodel.AuditLog, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// Record appends an audit row. It never fails the caller: persistence errors
// are logged and dropped. The IP address comes from the request context when
// the entry does not carry one.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.IPAddress == "" {
		entry.IPAddress = internal.ClientIPFromContext(ctx)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	// Entries outlive the request context.
	if err := s.repo.Create(context.WithoutCancel(ctx), ToDataModel(&entry)); err != nil {
		s.logger.Error("failed to record audit entry",
			"action", entry.Action,
			"user", entry.UserName,
			"error", err)
	}
}

func (s *Service) ListLatest(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}

	logs, err := s.repo.ListLatest(ctx, limit)
	if err != nil {
		s.logger.Error("failed to list audit entries", "error", err)
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}

	entries := make([]*Entry, 0, len(logs))
	for _, l := range logs {
		entries = append(entries, FromDataModel(l))
	}
	return entries, nil
}
