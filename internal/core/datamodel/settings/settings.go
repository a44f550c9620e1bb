package settings

import "time"

const SingletonID int64 = 1

type SystemSettings struct {
	ID          int64     `gorm:"primaryKey;autoIncrement:false"`
	CompanyName string    `gorm:"column:company_name;not null;default:EcoDocs"`
	CompanyLogo *string   `gorm:"column:company_logo"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SystemSettings) TableName() string {
	return "system_settings"
}
