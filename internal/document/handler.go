package document

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/storage"
	"github.com/frahmantamala/ecodocs/internal/transport"
)

type ServiceAPI interface {
	Upload(ctx context.Context, actor *auth.User, file *storage.StoredFile, dto UploadDocumentDTO) (*Document, error)
	List(ctx context.Context, filter ListFilter) ([]*Document, error)
	Stats(ctx context.Context, actor *auth.User) (*StatsResponse, error)
	Review(ctx context.Context, actor *auth.User, id int64, dto ReviewDocumentDTO) (*Document, error)
	ConfirmPayment(ctx context.Context, actor *auth.User, id int64, dto ConfirmPaymentDTO) (*Document, error)
	Conciliate(ctx context.Context, actor *auth.User, id int64) (*Document, error)
	AddAttachment(ctx context.Context, actor *auth.User, id int64, file *storage.StoredFile) (*Attachment, error)
	OpenDocument(ctx context.Context, actor *auth.User, id int64) (*Document, io.ReadCloser, error)
	OpenAttachment(ctx context.Context, actor *auth.User, id int64) (*Attachment, io.ReadCloser, error)
	Delete(ctx context.Context, actor *auth.User, id int64) error
}

// Uploader persists incoming multipart files before the service sees them.
type Uploader interface {
	Save(area storage.Area, fh *multipart.FileHeader) (*storage.StoredFile, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	Uploads Uploader
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI, uploads Uploader) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
		Uploads:     uploads,
	}
}

// Upload handles POST /docs/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	stored, appErr := h.saveUpload(w, r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	doc, err := h.Service.Upload(r.Context(), actor, stored, UploadDocumentDTO{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		Category:      r.FormValue("category"),
		Value:         r.FormValue("value"),
		Supplier:      r.FormValue("supplier"),
		CostCenter:    r.FormValue("costCenter"),
		Justification: r.FormValue("justification"),
		Tags:          r.FormValue("tags"),
	})
	if err != nil {
		h.Logger.Warn("Upload: service error", "user_id", actor.ID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, doc.ToResponse(h.ResolveBaseURL(r)))
}

// List handles GET /docs
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("payment_status"),
		Category:      q.Get("category"),
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Offset = n
		}
	}

	docs, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.Logger.Error("List: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ToResponses(docs, h.ResolveBaseURL(r)))
}

// Stats handles GET /docs/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return
	}

	stats, err := h.Service.Stats(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, stats)
}

// Review handles POST /docs/{id}/review
func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto ReviewDocumentDTO
	if !h.decode(w, r, &dto) {
		return
	}

	doc, err := h.Service.Review(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Warn("Review: service error", "document_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc.ToResponse(h.ResolveBaseURL(r)))
}

// ConfirmPayment handles POST /docs/{id}/pay
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var dto ConfirmPaymentDTO
	if !h.decode(w, r, &dto) {
		return
	}

	doc, err := h.Service.ConfirmPayment(r.Context(), actor, id, dto)
	if err != nil {
		h.Logger.Warn("ConfirmPayment: service error", "document_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc.ToResponse(h.ResolveBaseURL(r)))
}

// Conciliate handles POST /docs/{id}/conciliate
func (h *Handler) Conciliate(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	doc, err := h.Service.Conciliate(r.Context(), actor, id)
	if err != nil {
		h.Logger.Warn("Conciliate: service error", "document_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, doc.ToResponse(h.ResolveBaseURL(r)))
}

// AddAttachment handles POST /docs/{id}/attachments
func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	stored, appErr := h.saveUpload(w, r)
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	att, err := h.Service.AddAttachment(r.Context(), actor, id, stored)
	if err != nil {
		h.Logger.Warn("AddAttachment: service error", "document_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, att.ToResponse(h.ResolveBaseURL(r)))
}

// Download handles GET /docs/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	doc, rc, err := h.Service.OpenDocument(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer rc.Close()

	h.stream(w, rc, doc.Title, doc.MimeType)
}

// DownloadAttachment handles GET /docs/attachments/{id}/download
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	att, rc, err := h.Service.OpenAttachment(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	defer rc.Close()

	h.stream(w, rc, att.Name, att.MimeType)
}

// Delete handles DELETE /docs/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		h.Logger.Warn("Delete: service error", "document_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Document deleted"})
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (*auth.User, int64, bool) {
	actor, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrMissingToken)
		return nil, 0, false
	}
	id, appErr := h.ParseIDParam(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return nil, 0, false
	}
	return actor, id, true
}

// decode tolerates an empty body so field validation reports what is missing.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
	return false
}

func (h *Handler) saveUpload(w http.ResponseWriter, r *http.Request) (*storage.StoredFile, *internal.AppError) {
	if appErr := h.ParseMultipart(w, r); appErr != nil {
		return nil, appErr
	}
	fh := h.FormFile(r, "file")
	if fh == nil {
		return nil, internal.ErrFileRequired
	}
	stored, err := h.Uploads.Save(storage.AreaDocuments, fh)
	if err != nil {
		h.Logger.Error("failed to store upload", "file", fh.Filename, "error", err)
		return nil, internal.NewInternalError("failed to store upload", err)
	}
	return stored, nil
}

func (h *Handler) stream(w http.ResponseWriter, rc io.Reader, name, mimeType string) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.Logger.Warn("download interrupted", "file", name, "error", err)
	}
}
