package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
	"github.com/frahmantamala/ecodocs/internal/storage"
)

// statsWindow is the period counted as recent activity on the dashboard.
const statsWindow = 7 * 24 * time.Hour

type RepositoryAPI interface {
	Create(ctx context.Context, row *documentDatamodel.Document) error
	GetByID(ctx context.Context, id int64) (*documentDatamodel.Document, error)
	List(ctx context.Context, filter ListFilter) ([]*documentDatamodel.Document, error)
	// Transition applies updates only while the row still matches expected and is
	// not conciliated. It reports false when no row was changed.
	Transition(ctx context.Context, id int64, expected, updates map[string]interface{}) (bool, error)
	CreateAttachment(ctx context.Context, row *documentDatamodel.Attachment) (bool, error)
	GetAttachment(ctx context.Context, id int64) (*documentDatamodel.Attachment, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type StatsReader interface {
	OwnerStats(ctx context.Context, ownerID int64, since time.Time) (*documentDatamodel.Stats, error)
}

type FileStore interface {
	Open(relPath string) (io.ReadCloser, error)
	Discard(relPath string)
}

type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

type Service struct {
	repo   RepositoryAPI
	stats  StatsReader
	store  FileStore
	audit  AuditRecorder
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, stats StatsReader, store FileStore, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		stats:  stats,
		store:  store,
		audit:  recorder,
		logger: logger,
	}
}

// Upload registers a file that the transport layer already stored. Every
// rejection removes the stored file again.
func (s *Service) Upload(ctx context.Context, actor *auth.User, file *storage.StoredFile, dto UploadDocumentDTO) (*Document, error) {
	if file == nil {
		return nil, internal.ErrFileRequired
	}

	if !actor.Can(auth.PermDocumentUpload) {
		s.store.Discard(file.Path)
		s.logger.Warn("upload denied for role", "user_id", actor.ID, "role", actor.Role)
		return nil, internal.NewForbiddenError("Your role cannot upload documents", internal.ErrCodeUnauthorizedAccess)
	}

	if appErr := checkUpload(file); appErr != nil {
		s.store.Discard(file.Path)
		return nil, appErr
	}

	fields, appErr := dto.parse(file.OriginalName)
	if appErr != nil {
		s.store.Discard(file.Path)
		return nil, appErr
	}

	doc := &Document{
		Title:         fields.title,
		Description:   fields.description,
		OwnerID:       actor.ID,
		Category:      fields.category,
		Value:         fields.value,
		Supplier:      fields.supplier,
		CostCenter:    fields.costCenter,
		Justification: fields.justification,
		Status:        StatusPendente,
		PaymentStatus: PaymentAPagar,
		UniqueCode:    NewUniqueCode(time.Now()),
		Path:          file.Path,
		MimeType:      file.MimeType,
		Size:          file.Size,
		Tags:          fields.tags,
	}

	row := ToDataModel(doc)
	if err := s.repo.Create(ctx, row); err != nil {
		s.store.Discard(file.Path)
		s.logger.Error("failed to create document", "user_id", actor.ID, "error", err)
		return nil, internal.NewInternalError("failed to save document", err)
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionUpload,
		fmt.Sprintf("document uploaded: %s (%s)", row.Title, row.UniqueCode)))
	s.logger.Info("document uploaded", "document_id", row.ID, "code", row.UniqueCode)

	return s.reload(ctx, row.ID, "failed to save document")
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	if appErr := filter.Validate(); appErr != nil {
		return nil, appErr
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		return nil, internal.NewInternalError("failed to list documents", err)
	}

	docs := make([]*Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, FromDataModel(row))
	}
	return docs, nil
}

// Stats summarizes the caller's own documents.
func (s *Service) Stats(ctx context.Context, actor *auth.User) (*StatsResponse, error) {
	row, err := s.stats.OwnerStats(ctx, actor.ID, time.Now().Add(-statsWindow))
	if err != nil {
		s.logger.Error("failed to read document stats", "user_id", actor.ID, "error", err)
		return nil, internal.NewInternalError("failed to load stats", err)
	}
	return &StatsResponse{
		TotalDocs:   row.TotalDocs,
		UsedStorage: row.UsedStorage,
		Activity:    row.Activity,
	}, nil
}

func (s *Service) Review(ctx context.Context, actor *auth.User, id int64, dto ReviewDocumentDTO) (*Document, error) {
	if !actor.Can(auth.PermDocumentReview) {
		s.logger.Warn("review denied for role", "user_id", actor.ID, "role", actor.Role, "document_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}

	if appErr := dto.Validate(); appErr != nil {
		return nil, appErr
	}

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsFinalized() {
		return nil, internal.ErrDocumentFinalized
	}
	if !doc.CanBeReviewed() {
		s.logger.Warn("document cannot be reviewed", "document_id", id, "status", doc.Status)
		return nil, internal.ErrInvalidDocumentStatus
	}

	status := Status(dto.Status)
	updates := map[string]interface{}{
		"status":         string(status),
		"reviewed_by":    actor.Username,
		"review_comment": optional(dto.Comment),
		"approved_at":    nil,
	}
	if status == StatusAprovado {
		updates["approved_at"] = time.Now()
	}

	if err := s.transition(ctx, id, map[string]interface{}{"status": string(StatusPendente)}, updates); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.Action(status),
		fmt.Sprintf("document %s reviewed as %s", doc.UniqueCode, status)))
	s.logger.Info("document reviewed", "document_id", id, "status", status, "reviewed_by", actor.Username)

	return s.reload(ctx, id, "failed to review document")
}

func (s *Service) ConfirmPayment(ctx context.Context, actor *auth.User, id int64, dto ConfirmPaymentDTO) (*Document, error) {
	if !actor.Can(auth.PermDocumentPay) {
		s.logger.Warn("payment denied for role", "user_id", actor.ID, "role", actor.Role, "document_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}

	paidAt, appErr := dto.Parse()
	if appErr != nil {
		return nil, appErr
	}

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsFinalized() {
		return nil, internal.ErrDocumentFinalized
	}
	if !doc.CanBePaid() {
		s.logger.Warn("document cannot be paid", "document_id", id, "payment_status", doc.PaymentStatus)
		return nil, internal.ErrInvalidDocumentStatus
	}

	updates := map[string]interface{}{
		"payment_status": string(PaymentPago),
		"payment_date":   paidAt,
		"liquidated_by":  actor.Username,
	}
	if err := s.transition(ctx, id, map[string]interface{}{"payment_status": string(PaymentAPagar)}, updates); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionPayment,
		fmt.Sprintf("payment confirmed for %s on %s", doc.UniqueCode, paidAt.Format(time.DateOnly))))
	s.logger.Info("document paid", "document_id", id, "liquidated_by", actor.Username)

	return s.reload(ctx, id, "failed to confirm payment")
}

func (s *Service) Conciliate(ctx context.Context, actor *auth.User, id int64) (*Document, error) {
	if !actor.Can(auth.PermDocumentConciliate) {
		s.logger.Warn("conciliation denied for role", "user_id", actor.ID, "role", actor.Role, "document_id", id)
		return nil, internal.ErrUnauthorizedAccess
	}

	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.IsFinalized() {
		return nil, internal.ErrDocumentFinalized
	}
	if !doc.CanBeConciliated() {
		s.logger.Warn("document cannot be conciliated", "document_id", id, "status", doc.Status)
		return nil, internal.ErrInvalidDocumentStatus
	}

	updates := map[string]interface{}{
		"status":         string(StatusConciliado),
		"conciliated_at": time.Now(),
		"conciliated_by": actor.Username,
	}
	if err := s.transition(ctx, id, map[string]interface{}{"status": string(StatusAprovado)}, updates); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionConciliated,
		fmt.Sprintf("document %s conciliated", doc.UniqueCode)))
	s.logger.Info("document conciliated", "document_id", id, "conciliated_by", actor.Username)

	return s.reload(ctx, id, "failed to conciliate document")
}

func (s *Service) AddAttachment(ctx context.Context, actor *auth.User, id int64, file *storage.StoredFile) (*Attachment, error) {
	if file == nil {
		return nil, internal.ErrFileRequired
	}

	reject := func(err error) (*Attachment, error) {
		s.store.Discard(file.Path)
		return nil, err
	}

	if !actor.Can(auth.PermDocumentAttach) {
		return reject(internal.ErrUnauthorizedAccess)
	}

	doc, err := s.load(ctx, id)
	if err != nil {
		return reject(err)
	}
	if doc.IsFinalized() {
		return reject(internal.ErrDocumentFinalized)
	}
	if appErr := checkUpload(file); appErr != nil {
		return reject(appErr)
	}

	row := &documentDatamodel.Attachment{
		DocumentID: id,
		Path:       file.Path,
		Name:       file.OriginalName,
		MimeType:   file.MimeType,
		Size:       file.Size,
		UploadedBy: actor.Username,
	}
	created, err := s.repo.CreateAttachment(ctx, row)
	if err != nil {
		s.logger.Error("failed to create attachment", "document_id", id, "error", err)
		return reject(internal.NewInternalError("failed to save attachment", err))
	}
	if !created {
		// Conciliated or deleted after the check above.
		if _, err := s.load(ctx, id); err != nil {
			return reject(err)
		}
		return reject(internal.ErrDocumentFinalized)
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionAttachment,
		fmt.Sprintf("attachment %s added to %s", row.Name, doc.UniqueCode)))

	return AttachmentFromDataModel(row), nil
}

// OpenDocument returns the document with a reader over its file. The caller closes it.
func (s *Service) OpenDocument(ctx context.Context, actor *auth.User, id int64) (*Document, io.ReadCloser, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !doc.CanBeReadBy(actor) {
		return nil, nil, internal.ErrUnauthorizedAccess
	}

	rc, err := s.open(doc.Path)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func (s *Service) OpenAttachment(ctx context.Context, actor *auth.User, id int64) (*Attachment, io.ReadCloser, error) {
	row, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		s.logger.Error("failed to load attachment", "attachment_id", id, "error", err)
		return nil, nil, internal.NewInternalError("failed to load attachment", err)
	}
	if row == nil {
		return nil, nil, internal.ErrAttachmentNotFound
	}

	doc, err := s.load(ctx, row.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.CanBeReadBy(actor) {
		return nil, nil, internal.ErrUnauthorizedAccess
	}

	rc, err := s.open(row.Path)
	if err != nil {
		return nil, nil, err
	}
	return AttachmentFromDataModel(row), rc, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.User, id int64) error {
	doc, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !doc.CanBeDeletedBy(actor) {
		s.logger.Warn("delete denied", "user_id", actor.ID, "document_id", id, "owner_id", doc.OwnerID)
		return internal.NewForbiddenError("Only the owner can delete this document", internal.ErrCodeUnauthorizedAccess)
	}
	if doc.IsFinalized() {
		return internal.ErrDocumentFinalized
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete document", "document_id", id, "error", err)
		return internal.NewInternalError("failed to delete document", err)
	}
	if !deleted {
		return internal.ErrDocumentFinalized
	}

	s.store.Discard(doc.Path)
	for _, a := range doc.Attachments {
		s.store.Discard(a.Path)
	}

	s.audit.Record(ctx, audit.NewEntry(actor.ID, actor.Username, audit.ActionDelete,
		fmt.Sprintf("document deleted: %s (%s)", doc.Title, doc.UniqueCode)))
	s.logger.Info("document deleted", "document_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) load(ctx context.Context, id int64) (*Document, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("failed to load document", "document_id", id, "error", err)
		return nil, internal.NewInternalError("failed to load document", err)
	}
	if row == nil {
		return nil, internal.ErrDocumentNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) reload(ctx context.Context, id int64, msg string) (*Document, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil || row == nil {
		s.logger.Error("failed to reload document", "document_id", id, "error", err)
		return nil, internal.NewInternalError(msg, err)
	}
	return FromDataModel(row), nil
}

// transition treats zero affected rows as a lost race against another transition.
func (s *Service) transition(ctx context.Context, id int64, expected, updates map[string]interface{}) error {
	ok, err := s.repo.Transition(ctx, id, expected, updates)
	if err != nil {
		s.logger.Error("failed to update document", "document_id", id, "error", err)
		return internal.NewInternalError("failed to update document", err)
	}
	if !ok {
		s.logger.Warn("document changed concurrently", "document_id", id, "expected", expected)
		return internal.ErrInvalidDocumentStatus
	}
	return nil
}

func (s *Service) open(relPath string) (io.ReadCloser, error) {
	rc, err := s.store.Open(relPath)
	if errors.Is(err, storage.ErrFileNotFound) {
		s.logger.Warn("backing file missing", "path", relPath)
		return nil, internal.ErrFileNotFound
	}
	if err != nil {
		s.logger.Error("failed to open file", "path", relPath, "error", err)
		return nil, internal.NewInternalError("failed to open file", err)
	}
	return rc, nil
}

func checkUpload(file *storage.StoredFile) *internal.AppError {
	if !IsAllowedMimeType(file.MimeType) {
		return internal.ErrInvalidFileType
	}
	if file.Size > MaxFileSize {
		return internal.ErrFileTooLarge
	}
	return nil
}
