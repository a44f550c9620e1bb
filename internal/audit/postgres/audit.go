package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/ecodocs/internal/audit"
	auditDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) audit.RepositoryAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, log *auditDatamodel.AuditLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *AuditRepository) ListLatest(ctx context.Context, limit int) ([]*auditDatamodel.AuditLog, error) {
	var logs []*auditDatamodel.AuditLog
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
