package postgres

import (
	"context"

	"gorm.io/gorm"

	settingsDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/settings"
	"github.com/frahmantamala/ecodocs/internal/settings"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) settings.RepositoryAPI {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) GetOrCreate(ctx context.Context, defaults *settingsDatamodel.SystemSettings) (*settingsDatamodel.SystemSettings, error) {
	var row settingsDatamodel.SystemSettings
	err := r.db.WithContext(ctx).
		Where(settingsDatamodel.SystemSettings{ID: defaults.ID}).
		Attrs(settingsDatamodel.SystemSettings{CompanyName: defaults.CompanyName, CompanyLogo: defaults.CompanyLogo}).
		FirstOrCreate(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *SettingsRepository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&settingsDatamodel.SystemSettings{}).
		Where("id = ?", id).
		Updates(updates).Error
}
