package document_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/ecodocs/internal/auth"
	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
	userDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/user"
	"github.com/frahmantamala/ecodocs/internal/document"
	documentPostgres "github.com/frahmantamala/ecodocs/internal/document/postgres"
	"github.com/frahmantamala/ecodocs/internal/storage"
	"github.com/frahmantamala/ecodocs/internal/storage/storagetest"
	"github.com/frahmantamala/ecodocs/internal/transport"
)

var _ = Describe("Document Handler Integration", func() {
	var (
		router     chi.Router
		recorder   *recordingAudit
		owner      *auth.User
		financeiro *auth.User
		stranger   *auth.User
	)

	BeforeEach(func() {
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)
		Expect(db.AutoMigrate(&userDatamodel.User{}, &documentDatamodel.Document{}, &documentDatamodel.Tag{}, &documentDatamodel.Attachment{})).To(Succeed())

		ownerRow := userDatamodel.User{Username: "maria", Email: "maria@example.com", PasswordHash: "x", Role: "VIEWER"}
		finRow := userDatamodel.User{Username: "joao", Email: "joao@example.com", PasswordHash: "x", Role: "FINANCEIRO"}
		strangerRow := userDatamodel.User{Username: "ana", Email: "ana@example.com", PasswordHash: "x", Role: "VIEWER"}
		Expect(db.Create(&ownerRow).Error).To(Succeed())
		Expect(db.Create(&finRow).Error).To(Succeed())
		Expect(db.Create(&strangerRow).Error).To(Succeed())
		owner = auth.FromDataModel(&ownerRow)
		financeiro = auth.FromDataModel(&finRow)
		stranger = auth.FromDataModel(&strangerRow)

		store, err := storage.NewLocalStore(GinkgoT().TempDir(), slogger)
		Expect(err).NotTo(HaveOccurred())

		recorder = &recordingAudit{}
		service := document.NewService(
			documentPostgres.NewDocumentRepository(db),
			documentPostgres.NewStatsRepository(sqlx.NewDb(sqlDB, "sqlite3")),
			store, recorder, slogger,
		)
		handler := document.NewHandler(&transport.BaseHandler{Logger: slogger}, service, store)

		router = chi.NewRouter()
		router.Post("/api/docs/upload", handler.Upload)
		router.Get("/api/docs", handler.List)
		router.Get("/api/docs/stats", handler.Stats)
		router.Post("/api/docs/{id}/review", handler.Review)
		router.Post("/api/docs/{id}/pay", handler.ConfirmPayment)
		router.Post("/api/docs/{id}/conciliate", handler.Conciliate)
		router.Post("/api/docs/{id}/attachments", handler.AddAttachment)
		router.Get("/api/docs/{id}/download", handler.Download)
		router.Get("/api/docs/attachments/{id}/download", handler.DownloadAttachment)
		router.Delete("/api/docs/{id}", handler.Delete)
	})

	do := func(actor *auth.User, req *http.Request) *httptest.ResponseRecorder {
		if actor != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), actor))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	upload := func(actor *auth.User, path string, fields map[string]string, name, contentType string, content []byte) *httptest.ResponseRecorder {
		fileField := "file"
		if content == nil {
			fileField = ""
		}
		body, ct := storagetest.Form(fields, fileField, name, contentType, content)
		req := httptest.NewRequest(http.MethodPost, path, body)
		req.Header.Set("Content-Type", ct)
		return do(actor, req)
	}

	postJSON := func(actor *auth.User, path string, payload interface{}) *httptest.ResponseRecorder {
		raw, err := json.Marshal(payload)
		Expect(err).NotTo(HaveOccurred())
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		return do(actor, req)
	}

	decode := func(w *httptest.ResponseRecorder) document.DocumentResponse {
		var resp document.DocumentResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	errorCode := func(w *httptest.ResponseRecorder) string {
		var body struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		return body.Error.Code
	}

	It("walks a document through upload, review, attachment, download and delete", func() {
		w := upload(owner, "/api/docs/upload", map[string]string{
			"title": "Nota fiscal", "value": "99.90", "tags": "a,b", "costCenter": "TI",
		}, "nota.pdf", "application/pdf", pdfBytes)
		Expect(w.Code).To(Equal(http.StatusCreated))
		created := decode(w)
		Expect(created.Code).To(Equal(created.UniqueCode))
		Expect(created.URL).To(Equal(fmt.Sprintf("http://example.com/api/docs/%d/download", created.ID)))
		Expect(created.Owner.Username).To(Equal("maria"))
		Expect(created.Owner.Name).To(Equal("maria"))
		Expect(*created.CostCenter).To(Equal("TI"))
		Expect(created.Tags).To(Equal([]string{"a", "b"}))

		w = postJSON(financeiro, fmt.Sprintf("/api/docs/%d/review", created.ID), map[string]string{"status": "APROVADO"})
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Status).To(Equal(document.StatusAprovado))

		w = upload(owner, fmt.Sprintf("/api/docs/%d/attachments", created.ID), nil, "extra.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
		Expect(w.Code).To(Equal(http.StatusCreated))
		var att document.AttachmentResponse
		Expect(json.NewDecoder(w.Body).Decode(&att)).To(Succeed())
		Expect(att.URL).To(Equal(fmt.Sprintf("http://example.com/api/docs/attachments/%d/download", att.ID)))

		w = do(owner, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/docs/%d/download", created.ID), nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/pdf"))
		Expect(w.Header().Get("Content-Disposition")).To(Equal(`inline; filename="Nota fiscal"`))
		body, err := io.ReadAll(w.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(pdfBytes))

		w = do(stranger, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/docs/attachments/%d/download", att.ID), nil))
		Expect(w.Code).To(Equal(http.StatusForbidden))

		w = do(owner, httptest.NewRequest(http.MethodGet, "/api/docs", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		var list []document.DocumentResponse
		Expect(json.NewDecoder(w.Body).Decode(&list)).To(Succeed())
		Expect(list).To(HaveLen(1))
		Expect(list[0].Attachments).To(HaveLen(1))

		w = do(owner, httptest.NewRequest(http.MethodGet, "/api/docs/stats", nil))
		Expect(w.Code).To(Equal(http.StatusOK))
		var stats document.StatsResponse
		Expect(json.NewDecoder(w.Body).Decode(&stats)).To(Succeed())
		Expect(stats.TotalDocs).To(Equal(int64(1)))
		Expect(stats.Activity).To(Equal(int64(1)))

		w = do(owner, httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/docs/%d", created.ID), nil))
		Expect(w.Code).To(Equal(http.StatusOK))

		w = do(owner, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/docs/%d/download", created.ID), nil))
		Expect(w.Code).To(Equal(http.StatusNotFound))
		Expect(errorCode(w)).To(Equal("DOCUMENT_NOT_FOUND"))
	})

	It("requires a file part", func() {
		w := upload(owner, "/api/docs/upload", map[string]string{"title": "x"}, "", "", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal("FILE_REQUIRED"))
	})

	It("rejects unsupported file types", func() {
		w := upload(owner, "/api/docs/upload", nil, "notes.txt", "text/plain", []byte("hello"))
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal("INVALID_FILE_TYPE"))
	})

	It("validates ids and review bodies", func() {
		w := postJSON(financeiro, "/api/docs/abc/review", map[string]string{"status": "APROVADO"})
		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(w)).To(Equal("VALIDATION_FAILED"))

		req := httptest.NewRequest(http.MethodPost, "/api/docs/1/review", bytes.NewBufferString("{not json"))
		w = do(financeiro, req)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("reports a missing principal as unauthorized", func() {
		w := do(nil, httptest.NewRequest(http.MethodGet, "/api/docs/stats", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
})
