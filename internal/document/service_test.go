package document_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
	documentDatamodel "github.com/frahmantamala/ecodocs/internal/core/datamodel/document"
	"github.com/frahmantamala/ecodocs/internal/document"
	"github.com/frahmantamala/ecodocs/internal/storage"
	"github.com/frahmantamala/ecodocs/internal/storage/storagetest"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

var _ = Describe("Document Service", func() {
	var (
		repo     *MockRepository
		stats    *fixedStats
		store    *storage.LocalStore
		recorder *recordingAudit
		service  *document.Service
		ctx      context.Context
		root     string

		admin, gestor, financeiro, contabilidade, owner, stranger *auth.User
	)

	BeforeEach(func() {
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		var err error
		root = GinkgoT().TempDir()
		store, err = storage.NewLocalStore(root, logger)
		Expect(err).NotTo(HaveOccurred())

		repo = NewMockRepository()
		stats = &fixedStats{}
		recorder = &recordingAudit{}
		service = document.NewService(repo, stats, store, recorder, logger)
		ctx = context.Background()

		admin = &auth.User{ID: 1, Username: "admin", Role: auth.RoleAdmin}
		gestor = &auth.User{ID: 2, Username: "gestor", Role: auth.RoleGestor}
		financeiro = &auth.User{ID: 3, Username: "financeiro", Role: auth.RoleFinanceiro}
		contabilidade = &auth.User{ID: 4, Username: "contabil", Role: auth.RoleContabilidade}
		owner = &auth.User{ID: 10, Username: "owner", Role: auth.RoleViewer}
		stranger = &auth.User{ID: 11, Username: "stranger", Role: auth.RoleViewer}
	})

	save := func(name, contentType string, content []byte) *storage.StoredFile {
		stored, err := store.Save(storage.AreaDocuments, storagetest.FileHeader("file", name, contentType, content))
		Expect(err).NotTo(HaveOccurred())
		return stored
	}

	expectRemoved := func(stored *storage.StoredFile) {
		_, err := store.Open(stored.Path)
		Expect(err).To(MatchError(storage.ErrFileNotFound))
	}

	seedDoc := func(status document.Status, payment document.PaymentStatus) *documentDatamodel.Document {
		stored := save("nota.pdf", "application/pdf", pdfBytes)
		return repo.seed(&documentDatamodel.Document{
			Title:         "Nota",
			OwnerID:       owner.ID,
			Category:      string(document.CategoryOutros),
			Status:        string(status),
			PaymentStatus: string(payment),
			Path:          stored.Path,
			MimeType:      stored.MimeType,
			Size:          stored.Size,
		})
	}

	Describe("Upload", func() {
		It("stores a pending document with defaults and a unique code", func() {
			stored := save("nota-fiscal.pdf", "application/pdf", pdfBytes)

			doc, err := service.Upload(ctx, owner, stored, document.UploadDocumentDTO{
				Value:    "1250.50",
				Category: "adto",
				Tags:     " urgente, ,fornecedor ",
				Supplier: "ACME",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Title).To(Equal("nota-fiscal.pdf"))
			Expect(doc.Status).To(Equal(document.StatusPendente))
			Expect(doc.PaymentStatus).To(Equal(document.PaymentAPagar))
			Expect(doc.Category).To(Equal(document.CategoryAdto))
			Expect(doc.Value).To(BeNumerically("~", 1250.50, 0.001))
			Expect(doc.Tags).To(Equal([]string{"urgente", "fornecedor"}))
			Expect(*doc.Supplier).To(Equal("ACME"))
			Expect(doc.Description).To(BeNil())
			Expect(doc.OwnerID).To(Equal(owner.ID))
			Expect(doc.UniqueCode).To(MatchRegexp(`^\d{8}-\d{4}-[0-9A-Z]{4}$`))
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionUpload}))
		})

		It("defaults the value to zero and the category to OUTROS", func() {
			doc, err := service.Upload(ctx, owner, save("a.png", "image/png", []byte("\x89PNG\r\n\x1a\n")), document.UploadDocumentDTO{Title: "Recibo"})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Value).To(BeZero())
			Expect(doc.Category).To(Equal(document.CategoryOutros))
			Expect(doc.Title).To(Equal("Recibo"))
		})

		DescribeTable("rejects uploads and removes the stored file",
			func(actor func() *auth.User, name, contentType string, dto document.UploadDocumentDTO, code internal.ErrorCode) {
				stored := save(name, contentType, pdfBytes)

				_, err := service.Upload(ctx, actor(), stored, dto)
				Expect(codeOf(err)).To(Equal(code))
				expectRemoved(stored)
				Expect(recorder.entries).To(BeEmpty())
			},
			Entry("GESTOR cannot upload", func() *auth.User { return gestor }, "n.pdf", "application/pdf",
				document.UploadDocumentDTO{}, internal.ErrCodeUnauthorizedAccess),
			Entry("CONTABILIDADE cannot upload", func() *auth.User { return contabilidade }, "n.pdf", "application/pdf",
				document.UploadDocumentDTO{}, internal.ErrCodeUnauthorizedAccess),
			Entry("file type outside the allow-list", func() *auth.User { return owner }, "n.txt", "text/plain",
				document.UploadDocumentDTO{}, internal.ErrCodeInvalidFileType),
			Entry("value that is not a number", func() *auth.User { return owner }, "n.pdf", "application/pdf",
				document.UploadDocumentDTO{Value: "abc"}, internal.ErrCodeValidationFailed),
			Entry("unknown category", func() *auth.User { return owner }, "n.pdf", "application/pdf",
				document.UploadDocumentDTO{Category: "VIAGEM"}, internal.ErrCodeValidationFailed),
		)

		It("rejects files over the size limit", func() {
			stored := save("big.pdf", "application/pdf", pdfBytes)
			stored.Size = document.MaxFileSize + 1

			_, err := service.Upload(ctx, owner, stored, document.UploadDocumentDTO{})
			Expect(err).To(MatchError(internal.ErrFileTooLarge))
			expectRemoved(stored)
		})

		It("removes the file when persistence fails", func() {
			repo.createErr = errDatabase
			stored := save("n.pdf", "application/pdf", pdfBytes)

			_, err := service.Upload(ctx, owner, stored, document.UploadDocumentDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
			expectRemoved(stored)
		})
	})

	Describe("Review", func() {
		It("checks the role before looking the document up", func() {
			_, err := service.Review(ctx, contabilidade, 999, document.ReviewDocumentDTO{Status: "APROVADO"})
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("leaves the document untouched when a viewer reviews it", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			_, err := service.Review(ctx, owner, row.ID, document.ReviewDocumentDTO{Status: "APROVADO", Comment: "mine"})
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))

			stored := repo.docs[row.ID]
			Expect(stored.Status).To(Equal(string(document.StatusPendente)))
			Expect(stored.ReviewedBy).To(BeNil())
			Expect(stored.ReviewComment).To(BeNil())
			Expect(stored.ApprovedAt).To(BeNil())
			Expect(recorder.entries).To(BeEmpty())
		})

		It("returns not found for unknown documents", func() {
			_, err := service.Review(ctx, financeiro, 999, document.ReviewDocumentDTO{Status: "APROVADO"})
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
		})

		It("approves a pending document", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			doc, err := service.Review(ctx, financeiro, row.ID, document.ReviewDocumentDTO{Status: "aprovado", Comment: "ok"})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(document.StatusAprovado))
			Expect(*doc.ReviewedBy).To(Equal("financeiro"))
			Expect(*doc.ReviewComment).To(Equal("ok"))
			Expect(doc.ApprovedAt).NotTo(BeNil())
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionApproved}))
		})

		It("rejects without setting the approval time", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			doc, err := service.Review(ctx, admin, row.ID, document.ReviewDocumentDTO{Status: "REJEITADO"})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(document.StatusRejeitado))
			Expect(doc.ApprovedAt).To(BeNil())
			Expect(doc.ReviewComment).To(BeNil())
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionRejected}))
		})

		It("does not review twice", func() {
			row := seedDoc(document.StatusRejeitado, document.PaymentAPagar)

			_, err := service.Review(ctx, financeiro, row.ID, document.ReviewDocumentDTO{Status: "APROVADO"})
			Expect(err).To(MatchError(internal.ErrInvalidDocumentStatus))
		})

		It("refuses conciliated documents as finalized", func() {
			row := seedDoc(document.StatusConciliado, document.PaymentPago)

			_, err := service.Review(ctx, financeiro, row.ID, document.ReviewDocumentDTO{Status: "REJEITADO"})
			Expect(err).To(MatchError(internal.ErrDocumentFinalized))
		})

		It("rejects statuses other than APROVADO or REJEITADO", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			_, err := service.Review(ctx, financeiro, row.ID, document.ReviewDocumentDTO{Status: "CONCILIADO"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("reports a lost race as invalid status", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			repo.loseRace = true

			_, err := service.Review(ctx, financeiro, row.ID, document.ReviewDocumentDTO{Status: "APROVADO"})
			Expect(err).To(MatchError(internal.ErrInvalidDocumentStatus))
			Expect(recorder.entries).To(BeEmpty())
		})
	})

	Describe("ConfirmPayment", func() {
		It("marks the document paid with a calendar date", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			doc, err := service.ConfirmPayment(ctx, gestor, row.ID, document.ConfirmPaymentDTO{Date: "2024-03-15"})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.PaymentStatus).To(Equal(document.PaymentPago))
			Expect(doc.PaymentDate.Format(time.DateOnly)).To(Equal("2024-03-15"))
			Expect(*doc.LiquidatedBy).To(Equal("gestor"))
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionPayment}))
		})

		It("accepts RFC 3339 timestamps", func() {
			row := seedDoc(document.StatusAprovado, document.PaymentAPagar)

			doc, err := service.ConfirmPayment(ctx, admin, row.ID, document.ConfirmPaymentDTO{Date: "2024-03-15T10:30:00Z"})
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.PaymentDate.UTC().Hour()).To(Equal(10))
		})

		It("requires a valid date", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			_, err := service.ConfirmPayment(ctx, gestor, row.ID, document.ConfirmPaymentDTO{})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
			_, err = service.ConfirmPayment(ctx, gestor, row.ID, document.ConfirmPaymentDTO{Date: "15/03/2024"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("denies roles without the payment permission", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			_, err := service.ConfirmPayment(ctx, financeiro, row.ID, document.ConfirmPaymentDTO{Date: "2024-03-15"})
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("does not pay twice", func() {
			row := seedDoc(document.StatusAprovado, document.PaymentPago)

			_, err := service.ConfirmPayment(ctx, gestor, row.ID, document.ConfirmPaymentDTO{Date: "2024-03-15"})
			Expect(err).To(MatchError(internal.ErrInvalidDocumentStatus))
		})

		It("refuses conciliated documents", func() {
			row := seedDoc(document.StatusConciliado, document.PaymentAPagar)

			_, err := service.ConfirmPayment(ctx, gestor, row.ID, document.ConfirmPaymentDTO{Date: "2024-03-15"})
			Expect(err).To(MatchError(internal.ErrDocumentFinalized))
		})
	})

	Describe("Conciliate", func() {
		It("conciliates approved documents", func() {
			row := seedDoc(document.StatusAprovado, document.PaymentPago)

			doc, err := service.Conciliate(ctx, gestor, row.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Status).To(Equal(document.StatusConciliado))
			Expect(*doc.ConciliatedBy).To(Equal("gestor"))
			Expect(doc.ConciliatedAt).NotTo(BeNil())
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionConciliated}))
		})

		It("requires an approved document", func() {
			row := seedDoc(document.StatusPendente, document.PaymentPago)

			_, err := service.Conciliate(ctx, admin, row.ID)
			Expect(err).To(MatchError(internal.ErrInvalidDocumentStatus))
		})

		It("is terminal", func() {
			row := seedDoc(document.StatusConciliado, document.PaymentPago)

			_, err := service.Conciliate(ctx, admin, row.ID)
			Expect(err).To(MatchError(internal.ErrDocumentFinalized))
		})

		It("denies other roles", func() {
			row := seedDoc(document.StatusAprovado, document.PaymentPago)

			_, err := service.Conciliate(ctx, financeiro, row.ID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})
	})

	Describe("AddAttachment", func() {
		It("attaches a file named after the upload", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			stored := save("comprovante.pdf", "application/pdf", pdfBytes)

			att, err := service.AddAttachment(ctx, contabilidade, row.ID, stored)
			Expect(err).NotTo(HaveOccurred())
			Expect(att.Name).To(Equal("comprovante.pdf"))
			Expect(att.UploadedBy).To(Equal("contabil"))
			Expect(att.DocumentID).To(Equal(row.ID))
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionAttachment}))
		})

		It("removes the file when the document does not exist", func() {
			stored := save("c.pdf", "application/pdf", pdfBytes)

			_, err := service.AddAttachment(ctx, owner, 999, stored)
			Expect(err).To(MatchError(internal.ErrDocumentNotFound))
			expectRemoved(stored)
		})

		It("refuses conciliated documents", func() {
			row := seedDoc(document.StatusConciliado, document.PaymentPago)
			stored := save("c.pdf", "application/pdf", pdfBytes)

			_, err := service.AddAttachment(ctx, admin, row.ID, stored)
			Expect(err).To(MatchError(internal.ErrDocumentFinalized))
			expectRemoved(stored)
		})

		It("refuses a document conciliated while the attachment was prepared", func() {
			row := seedDoc(document.StatusAprovado, document.PaymentPago)
			repo.concludeBeforeAttach = true
			stored := save("c.pdf", "application/pdf", pdfBytes)

			_, err := service.AddAttachment(ctx, owner, row.ID, stored)
			Expect(err).To(MatchError(internal.ErrDocumentFinalized))
			Expect(repo.attachments).To(BeEmpty())
			expectRemoved(stored)
			Expect(recorder.entries).To(BeEmpty())
		})

		It("applies the upload type rules", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			stored := save("c.zip", "application/zip", pdfBytes)

			_, err := service.AddAttachment(ctx, owner, row.ID, stored)
			Expect(err).To(MatchError(internal.ErrInvalidFileType))
			expectRemoved(stored)
		})
	})

	Describe("OpenDocument", func() {
		It("lets the owner read the file", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			doc, rc, err := service.OpenDocument(ctx, owner, row.ID)
			Expect(err).NotTo(HaveOccurred())
			defer rc.Close()
			body, err := io.ReadAll(rc)
			Expect(err).NotTo(HaveOccurred())
			Expect(body).To(Equal(pdfBytes))
			Expect(doc.MimeType).To(Equal("application/pdf"))
		})

		It("lets reviewing roles read any document", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			for _, actor := range []*auth.User{admin, gestor, financeiro, contabilidade} {
				_, rc, err := service.OpenDocument(ctx, actor, row.ID)
				Expect(err).NotTo(HaveOccurred())
				rc.Close()
			}
		})

		It("forbids other viewers", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			_, _, err := service.OpenDocument(ctx, stranger, row.ID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))
		})

		It("distinguishes a missing backing file", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			Expect(store.Remove(row.Path)).To(Succeed())

			_, _, err := service.OpenDocument(ctx, owner, row.ID)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeFileNotFound))
		})
	})

	Describe("OpenAttachment", func() {
		It("applies the parent document's access rule", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			att, err := service.AddAttachment(ctx, owner, row.ID, save("c.pdf", "application/pdf", pdfBytes))
			Expect(err).NotTo(HaveOccurred())

			_, rc, err := service.OpenAttachment(ctx, owner, att.ID)
			Expect(err).NotTo(HaveOccurred())
			rc.Close()

			_, _, err = service.OpenAttachment(ctx, stranger, att.ID)
			Expect(err).To(MatchError(internal.ErrUnauthorizedAccess))

			_, _, err = service.OpenAttachment(ctx, owner, 999)
			Expect(err).To(MatchError(internal.ErrAttachmentNotFound))
		})
	})

	Describe("Delete", func() {
		It("lets the owner delete and removes every file", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			att, err := service.AddAttachment(ctx, owner, row.ID, save("c.pdf", "application/pdf", pdfBytes))
			Expect(err).NotTo(HaveOccurred())
			attPath := repo.attachments[att.ID].Path
			docPath := row.Path

			Expect(service.Delete(ctx, owner, row.ID)).To(Succeed())
			Expect(repo.docs).NotTo(HaveKey(row.ID))
			expectRemoved(&storage.StoredFile{Path: docPath})
			expectRemoved(&storage.StoredFile{Path: attPath})
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionAttachment, audit.ActionDelete}))
		})

		It("records exactly one entry when the files cannot be removed", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)
			// A non-empty directory in place of the file makes the unlink fail.
			full := filepath.Join(root, row.Path)
			Expect(os.Remove(full)).To(Succeed())
			Expect(os.MkdirAll(filepath.Join(full, "keep"), 0o755)).To(Succeed())

			Expect(service.Delete(ctx, owner, row.ID)).To(Succeed())
			Expect(repo.docs).NotTo(HaveKey(row.ID))
			Expect(full).To(BeADirectory())
			Expect(recorder.actions()).To(Equal([]audit.Action{audit.ActionDelete}))
		})

		It("gives administrators no override", func() {
			row := seedDoc(document.StatusPendente, document.PaymentAPagar)

			err := service.Delete(ctx, admin, row.ID)
			Expect(codeOf(err)).To(Equal(internal.ErrCodeUnauthorizedAccess))
			Expect(repo.docs).To(HaveKey(row.ID))
		})

		It("refuses conciliated documents", func() {
			row := seedDoc(document.StatusConciliado, document.PaymentPago)

			Expect(service.Delete(ctx, owner, row.ID)).To(MatchError(internal.ErrDocumentFinalized))
		})

		It("returns not found for unknown documents", func() {
			Expect(service.Delete(ctx, owner, 999)).To(MatchError(internal.ErrDocumentNotFound))
		})
	})

	Describe("List and Stats", func() {
		It("lists newest first and validates filters", func() {
			first := seedDoc(document.StatusPendente, document.PaymentAPagar)
			second := seedDoc(document.StatusAprovado, document.PaymentAPagar)

			docs, err := service.List(ctx, document.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(2))
			Expect(docs[0].ID).To(Equal(second.ID))
			Expect(docs[1].ID).To(Equal(first.ID))

			docs, err = service.List(ctx, document.ListFilter{Status: "aprovado"})
			Expect(err).NotTo(HaveOccurred())
			Expect(docs).To(HaveLen(1))

			_, err = service.List(ctx, document.ListFilter{Status: "ARQUIVADO"})
			Expect(codeOf(err)).To(Equal(internal.ErrCodeValidationFailed))
		})

		It("reads the caller's stats for the last seven days", func() {
			resp, err := service.Stats(ctx, owner)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp).To(Equal(&document.StatsResponse{TotalDocs: 3, UsedStorage: 2048, Activity: 1}))
			Expect(stats.ownerID).To(Equal(owner.ID))
			Expect(stats.since).To(BeTemporally("~", time.Now().Add(-7*24*time.Hour), time.Minute))
		})
	})
})
