package document

import (
	"time"

	"github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
)

type Document struct {
	ID            int64      `gorm:"primaryKey"`
	Title         string     `gorm:"column:title;not null"`
	Description   *string    `gorm:"column:description"`
	OwnerID       int64      `gorm:"column:owner_id;not null;index"`
	Category      string     `gorm:"column:category;not null;default:OUTROS"`
	Value         float64    `gorm:"column:value;type:numeric(14,2);not null;default:0"`
	Supplier      *string    `gorm:"column:supplier"`
	CostCenter    *string    `gorm:"column:cost_center"`
	Justification *string    `gorm:"column:justification"`
	Status        string     `gorm:"column:status;not null;default:PENDENTE;index"`
	PaymentStatus string     `gorm:"column:payment_status;not null;default:A_PAGAR"`
	ReviewedBy    *string    `gorm:"column:reviewed_by"`
	ReviewComment *string    `gorm:"column:review_comment"`
	ApprovedAt    *time.Time `gorm:"column:approved_at"`
	PaymentDate   *time.Time `gorm:"column:payment_date"`
	LiquidatedBy  *string    `gorm:"column:liquidated_by"`
	ConciliatedAt *time.Time `gorm:"column:conciliated_at"`
	ConciliatedBy *string    `gorm:"column:conciliated_by"`
	UniqueCode    string     `gorm:"column:unique_code;uniqueIndex;not null"`
	Path          string     `gorm:"column:path;not null"`
	MimeType      string     `gorm:"column:mime_type;not null"`
	Size          int64      `gorm:"column:size;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Owner       user.User    `gorm:"foreignKey:OwnerID"`
	Tags        []Tag        `gorm:"foreignKey:DocumentID"`
	Attachments []Attachment `gorm:"foreignKey:DocumentID"`
}

func (Document) TableName() string {
	return "documents"
}

type Tag struct {
	ID         int64  `gorm:"primaryKey"`
	DocumentID int64  `gorm:"column:document_id;not null;index"`
	Name       string `gorm:"column:name;not null"`
}

func (Tag) TableName() string {
	return "tags"
}

type Attachment struct {
	ID         int64     `gorm:"primaryKey"`
	DocumentID int64     `gorm:"column:document_id;not null;index"`
	Path       string    `gorm:"column:path;not null"`
	Name       string    `gorm:"column:name;not null"`
	MimeType   string    `gorm:"column:mime_type;not null"`
	Size       int64     `gorm:"column:size;not null"`
	UploadedBy string    `gorm:"column:uploaded_by;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// Stats is the aggregate row read for the per-owner dashboard.
type Stats struct {
	TotalDocs   int64 `db:"total_docs"`
	UsedStorage int64 `db:"used_storage"`
	Activity    int64 `db:"activity"`
}
