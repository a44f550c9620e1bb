package settings

import (
	"mime/multipart"
	"strings"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/core/common/validation"
)

type UpdateSettingsDTO struct {
	CompanyName string
	Logo        *multipart.FileHeader
}

func (d *UpdateSettingsDTO) Validate() *internal.AppError {
	d.CompanyName = strings.TrimSpace(d.CompanyName)
	v := validation.NewValidator()
	v.Field("companyName", d.CompanyName).MaxLength(120)
	return v.Validate()
}
