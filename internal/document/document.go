package document

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/frahmantamala/ecodocs/internal/auth"
	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
	"github.com/frahmantamala/ecodocs/internal/storage"
)

type Status string

const (
	StatusPendente   Status = "PENDENTE"
	StatusAprovado   Status = "APROVADO"
	StatusRejeitado  Status = "REJEITADO"
	StatusConciliado Status = "CONCILIADO"
)

type PaymentStatus string

const (
	PaymentAPagar PaymentStatus = "A_PAGAR"
	PaymentPago   PaymentStatus = "PAGO"
)

type Category string

const (
	CategoryAdto      Category = "ADTO"
	CategoryPagamento Category = "PAGAMENTO"
	CategoryOutros    Category = "OUTROS"
)

var Categories = []string{string(CategoryAdto), string(CategoryPagamento), string(CategoryOutros)}

// MaxFileSize bounds documents and attachments.
const MaxFileSize = 10 << 20

var allowedMimeTypes = map[string]bool{
	"application/pdf":          true,
	"image/jpeg":               true,
	"image/png":                true,
	"image/jpg":                true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
}

// IsAllowedMimeType matches on the media type only; parameters are ignored.
func IsAllowedMimeType(mimeType string) bool {
	return allowedMimeTypes[storage.MediaType(mimeType)]
}

type Owner struct {
	ID       int64
	Username string
	Email    string
	Role     auth.Role
}

type Attachment struct {
	ID         int64
	DocumentID int64
	Path       string
	Name       string
	MimeType   string
	Size       int64
	UploadedBy string
	CreatedAt  time.Time
}

type Document struct {
	ID            int64
	Title         string
	Description   *string
	OwnerID       int64
	Owner         *Owner
	Category      Category
	Value         float64
	Supplier      *string
	CostCenter    *string
	Justification *string
	Status        Status
	PaymentStatus PaymentStatus
	ReviewedBy    *string
	ReviewComment *string
	ApprovedAt    *time.Time
	PaymentDate   *time.Time
	LiquidatedBy  *string
	ConciliatedAt *time.Time
	ConciliatedBy *string
	UniqueCode    string
	Path          string
	MimeType      string
	Size          int64
	Tags          []string
	Attachments   []*Attachment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsFinalized reports whether the document was conciliated; nothing may change afterwards.
func (d *Document) IsFinalized() bool {
	return d.Status == StatusConciliado
}

func (d *Document) CanBeReviewed() bool {
	return d.Status == StatusPendente
}

func (d *Document) CanBePaid() bool {
	return !d.IsFinalized() && d.PaymentStatus == PaymentAPagar
}

func (d *Document) CanBeConciliated() bool {
	return d.Status == StatusAprovado
}

func (d *Document) CanBeReadBy(u *auth.User) bool {
	return u != nil && (u.ID == d.OwnerID || u.Can(auth.PermDocumentReadAny))
}

// CanBeDeletedBy is owner-only; administrators get no override.
func (d *Document) CanBeDeletedBy(u *auth.User) bool {
	return u != nil && u.ID == d.OwnerID
}

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewUniqueCode builds the human-facing YYYYMMDD-HHMM-XXXX reference. The random
// suffix is not checked for collisions; the unique index rejects the rare clash.
func NewUniqueCode(now time.Time) string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return now.Format("20060102-1504") + "-" + string(suffix)
}

// ParseTags splits a comma-separated list, trimming entries and dropping empties.
func ParseTags(raw string) []string {
	var tags []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func ToDataModel(d *Document) *documentDatamodel.Document {
	row := &documentDatamodel.Document{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		OwnerID:       d.OwnerID,
		Category:      string(d.Category),
		Value:         d.Value,
		Supplier:      d.Supplier,
		CostCenter:    d.CostCenter,
		Justification: d.Justification,
		Status:        string(d.Status),
		PaymentStatus: string(d.PaymentStatus),
		ReviewedBy:    d.ReviewedBy,
		ReviewComment: d.ReviewComment,
		ApprovedAt:    d.ApprovedAt,
		PaymentDate:   d.PaymentDate,
		LiquidatedBy:  d.LiquidatedBy,
		ConciliatedAt: d.ConciliatedAt,
		ConciliatedBy: d.ConciliatedBy,
		UniqueCode:    d.UniqueCode,
		Path:          d.Path,
		MimeType:      d.MimeType,
		Size:          d.Size,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	for _, t := range d.Tags {
		row.Tags = append(row.Tags, documentDatamodel.Tag{DocumentID: d.ID, Name: t})
	}
	return row
}

func FromDataModel(row *documentDatamodel.Document) *Document {
	d := &Document{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		OwnerID:       row.OwnerID,
		Category:      Category(row.Category),
		Value:         row.Value,
		Supplier:      row.Supplier,
		CostCenter:    row.CostCenter,
		Justification: row.Justification,
		Status:        Status(row.Status),
		PaymentStatus: PaymentStatus(row.PaymentStatus),
		ReviewedBy:    row.ReviewedBy,
		ReviewComment: row.ReviewComment,
		ApprovedAt:    row.ApprovedAt,
		PaymentDate:   row.PaymentDate,
		LiquidatedBy:  row.LiquidatedBy,
		ConciliatedAt: row.ConciliatedAt,
		ConciliatedBy: row.ConciliatedBy,
		UniqueCode:    row.UniqueCode,
		Path:          row.Path,
		MimeType:      row.MimeType,
		Size:          row.Size,
		Tags:          []string{},
		Attachments:   []*Attachment{},
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.Owner.ID != 0 {
		d.Owner = &Owner{
			ID:       row.Owner.ID,
			Username: row.Owner.Username,
			Email:    row.Owner.Email,
			Role:     auth.Role(row.Owner.Role),
		}
	}
	for _, t := range row.Tags {
		d.Tags = append(d.Tags, t.Name)
	}
	for i := range row.Attachments {
		d.Attachments = append(d.Attachments, AttachmentFromDataModel(&row.Attachments[i]))
	}
	return d
}

func AttachmentFromDataModel(row *documentDatamodel.Attachment) *Attachment {
	return &Attachment{
		ID:         row.ID,
		DocumentID: row.DocumentID,
		Path:       row.Path,
		Name:       row.Name,
		MimeType:   row.MimeType,
		Size:       row.Size,
		UploadedBy: row.UploadedBy,
		CreatedAt:  row.CreatedAt,
	}
}
