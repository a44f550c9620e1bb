package settings

import (
	"time"

	settingsDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/settings"
)

const DefaultCompanyName = "EcoDocs"

type Settings struct {
	ID          int64     `json:"id"`
	CompanyName string    `json:"companyName"`
	CompanyLogo *string   `json:"companyLogo"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewDefaultSettings() *Settings {
	return &Settings{
		ID:          settingsDatamodel.SingletonID,
		CompanyName: DefaultCompanyName,
	}
}

func ToDataModel(s *Settings) *settingsDatamodel.SystemSettings {
	return &settingsDatamodel.SystemSettings{
		ID:          s.ID,
		CompanyName: s.CompanyName,
		CompanyLogo: s.CompanyLogo,
		UpdatedAt:   s.UpdatedAt,
	}
}

func FromDataModel(s *settingsDatamodel.SystemSettings) *Settings {
	return &Settings{
		ID:          s.ID,
		CompanyName: s.CompanyName,
		CompanyLogo: s.CompanyLogo,
		UpdatedAt:   s.UpdatedAt,
	}
}
