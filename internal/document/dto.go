package document

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/core/common/validation"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// UploadDocumentDTO holds the raw multipart fields of an upload.
type UploadDocumentDTO struct {
	Title         string
	Description   string
	Category      string
	Value         string
	Supplier      string
	CostCenter    string
	Justification string
	Tags          string
}

type uploadFields struct {
	title         string
	description   *string
	category      Category
	value         float64
	supplier      *string
	costCenter    *string
	justification *string
	tags          []string
}

func (d UploadDocumentDTO) parse(originalName string) (*uploadFields, *internal.AppError) {
	f := &uploadFields{
		title:         strings.TrimSpace(d.Title),
		description:   optional(d.Description),
		category:      Category(strings.ToUpper(strings.TrimSpace(d.Category))),
		supplier:      optional(d.Supplier),
		costCenter:    optional(d.CostCenter),
		justification: optional(d.Justification),
		tags:          ParseTags(d.Tags),
	}
	if f.title == "" {
		f.title = originalName
	}
	if f.category == "" {
		f.category = CategoryOutros
	}

	v := validation.NewValidator()
	v.Field("title", f.title).Required().MaxLength(255)
	v.Field("category", string(f.category)).OneOf(Categories, internal.ErrCodeInvalidCategory)

	if raw := strings.TrimSpace(d.Value); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			v.Field("value", raw).Custom(func(interface{}) *internal.AppError {
				return internal.NewValidationFieldError("value", "value must be a decimal number", internal.ErrCodeInvalidValue)
			})
		} else {
			v.Field("value", value).MinFloat(0, internal.ErrCodeInvalidValue)
			f.value = value
		}
	}

	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}
	return f, nil
}

func optional(raw string) *string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}

type ReviewDocumentDTO struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

func (d *ReviewDocumentDTO) Validate() *internal.AppError {
	d.Status = strings.ToUpper(strings.TrimSpace(d.Status))
	d.Comment = strings.TrimSpace(d.Comment)

	v := validation.NewValidator()
	v.Field("status", d.Status).Required().
		OneOf([]string{string(StatusAprovado), string(StatusRejeitado)}, internal.ErrCodeInvalidStatus)
	v.Field("comment", d.Comment).MaxLength(1000)
	return v.Validate()
}

type ConfirmPaymentDTO struct {
	Date string `json:"date"`
}

// Parse accepts a calendar date (YYYY-MM-DD) or a full RFC 3339 timestamp.
func (d ConfirmPaymentDTO) Parse() (time.Time, *internal.AppError) {
	raw := strings.TrimSpace(d.Date)
	if raw == "" {
		return time.Time{}, internal.NewValidationFieldError("date", "date is required", internal.ErrCodeValidationFailed)
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, internal.NewValidationFieldError("date", "date must be YYYY-MM-DD or RFC 3339", internal.ErrCodeInvalidDate)
}

type ListFilter struct {
	Status        string
	PaymentStatus string
	Category      string
	Limit         int
	Offset        int
}

func (f *ListFilter) Validate() *internal.AppError {
	f.Status = strings.ToUpper(strings.TrimSpace(f.Status))
	f.PaymentStatus = strings.ToUpper(strings.TrimSpace(f.PaymentStatus))
	f.Category = strings.ToUpper(strings.TrimSpace(f.Category))

	v := validation.NewValidator()
	v.Field("status", f.Status).OneOf([]string{
		string(StatusPendente), string(StatusAprovado), string(StatusRejeitado), string(StatusConciliado),
	}, internal.ErrCodeInvalidStatus)
	v.Field("payment_status", f.PaymentStatus).OneOf([]string{
		string(PaymentAPagar), string(PaymentPago),
	}, internal.ErrCodeInvalidStatus)
	v.Field("category", f.Category).OneOf(Categories, internal.ErrCodeInvalidCategory)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}

	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return nil
}

type OwnerResponse struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
	Name     string    `json:"name"`
}

type AttachmentResponse struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"documentId"`
	Name       string    `json:"name"`
	MimeType   string    `json:"mimeType"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploadedBy"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
}

type DocumentResponse struct {
	ID            int64                `json:"id"`
	Title         string               `json:"title"`
	Description   *string              `json:"description"`
	OwnerID       int64                `json:"ownerId"`
	Category      Category             `json:"category"`
	Value         float64              `json:"value"`
	Supplier      *string              `json:"supplier"`
	CostCenter    *string              `json:"costCenter"`
	Justification *string              `json:"justification"`
	Status        Status               `json:"status"`
	PaymentStatus PaymentStatus        `json:"paymentStatus"`
	ReviewedBy    *string              `json:"reviewedBy"`
	ReviewComment *string              `json:"reviewComment"`
	ApprovedAt    *time.Time           `json:"approvedAt"`
	PaymentDate   *time.Time           `json:"paymentDate"`
	LiquidatedBy  *string              `json:"liquidatedBy"`
	ConciliatedAt *time.Time           `json:"conciliatedAt"`
	ConciliatedBy *string              `json:"conciliatedBy"`
	UniqueCode    string               `json:"uniqueCode"`
	Code          string               `json:"code"`
	URL           string               `json:"url"`
	MimeType      string               `json:"mimeType"`
	Size          int64                `json:"size"`
	Tags          []string             `json:"tags"`
	Attachments   []AttachmentResponse `json:"attachments"`
	Owner         *OwnerResponse       `json:"owner"`
	UploadedBy    *OwnerResponse       `json:"uploadedBy"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

type StatsResponse struct {
	TotalDocs   int64 `json:"totalDocs"`
	UsedStorage int64 `json:"usedStorage"`
	Activity    int64 `json:"activity"`
}

func (a *Attachment) ToResponse(baseURL string) AttachmentResponse {
	return AttachmentResponse{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		Name:       a.Name,
		MimeType:   a.MimeType,
		Size:       a.Size,
		UploadedBy: a.UploadedBy,
		URL:        baseURL + "/api/docs/attachments/" + strconv.FormatInt(a.ID, 10) + "/download",
		CreatedAt:  a.CreatedAt,
	}
}

func (d *Document) ToResponse(baseURL string) DocumentResponse {
	resp := DocumentResponse{
		ID:            d.ID,
		Title:         d.Title,
		Description:   d.Description,
		OwnerID:       d.OwnerID,
		Category:      d.Category,
		Value:         d.Value,
		Supplier:      d.Supplier,
		CostCenter:    d.CostCenter,
		Justification: d.Justification,
		Status:        d.Status,
		PaymentStatus: d.PaymentStatus,
		ReviewedBy:    d.ReviewedBy,
		ReviewComment: d.ReviewComment,
		ApprovedAt:    d.ApprovedAt,
		PaymentDate:   d.PaymentDate,
		LiquidatedBy:  d.LiquidatedBy,
		ConciliatedAt: d.ConciliatedAt,
		ConciliatedBy: d.ConciliatedBy,
		UniqueCode:    d.UniqueCode,
		Code:          d.UniqueCode,
		URL:           baseURL + "/api/docs/" + strconv.FormatInt(d.ID, 10) + "/download",
		MimeType:      d.MimeType,
		Size:          d.Size,
		Tags:          d.Tags,
		Attachments:   make([]AttachmentResponse, 0, len(d.Attachments)),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	for _, a := range d.Attachments {
		resp.Attachments = append(resp.Attachments, a.ToResponse(baseURL))
	}
	if d.Owner != nil {
		owner := &OwnerResponse{
			ID:       d.Owner.ID,
			Username: d.Owner.Username,
			Email:    d.Owner.Email,
			Role:     d.Owner.Role,
			Name:     d.Owner.Username,
		}
		resp.Owner = owner
		resp.UploadedBy = owner
	}
	return resp
}

func ToResponses(docs []*Document, baseURL string) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ToResponse(baseURL))
	}
	return out
}
