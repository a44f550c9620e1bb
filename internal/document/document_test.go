package document_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ecodocs/internal/auth"
	"github.com/frahmantamala/ecodocs/internal/document"
)

var _ = Describe("Document", func() {
	It("builds codes from the local minute plus a base-36 suffix", func() {
		now := time.Date(2024, 3, 15, 9, 7, 0, 0, time.Local)
		code := document.NewUniqueCode(now)
		Expect(code).To(HavePrefix("20240315-0907-"))
		Expect(code).To(MatchRegexp(`^\d{8}-\d{4}-[0-9A-Z]{4}$`))
	})

	It("parses comma separated tags", func() {
		Expect(document.ParseTags("a, b ,,c")).To(Equal([]string{"a", "b", "c"}))
		Expect(document.ParseTags("  ")).To(BeEmpty())
	})

	It("knows the allowed upload types", func() {
		Expect(document.IsAllowedMimeType("application/pdf")).To(BeTrue())
		Expect(document.IsAllowedMimeType("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")).To(BeTrue())
		Expect(document.IsAllowedMimeType("IMAGE/PNG")).To(BeTrue())
		Expect(document.IsAllowedMimeType("application/pdf; charset=binary")).To(BeTrue())
		Expect(document.IsAllowedMimeType("text/plain; charset=application/pdf")).To(BeFalse())
		Expect(document.IsAllowedMimeType("image/gif")).To(BeFalse())
	})

	DescribeTable("transition predicates",
		func(status document.Status, payment document.PaymentStatus, review, pay, conciliate bool) {
			d := &document.Document{Status: status, PaymentStatus: payment}
			Expect(d.CanBeReviewed()).To(Equal(review))
			Expect(d.CanBePaid()).To(Equal(pay))
			Expect(d.CanBeConciliated()).To(Equal(conciliate))
		},
		Entry("pending and unpaid", document.StatusPendente, document.PaymentAPagar, true, true, false),
		Entry("approved and paid", document.StatusAprovado, document.PaymentPago, false, false, true),
		Entry("rejected", document.StatusRejeitado, document.PaymentAPagar, false, true, false),
		Entry("conciliated", document.StatusConciliado, document.PaymentAPagar, false, false, false),
	)

	It("renders download urls and owner summaries", func() {
		d := &document.Document{
			ID:         7,
			UniqueCode: "20240315-0907-AB12",
			Owner:      &document.Owner{ID: 3, Username: "maria", Email: "maria@example.com", Role: auth.RoleViewer},
			Attachments: []*document.Attachment{
				{ID: 9, DocumentID: 7, Name: "extra.pdf"},
			},
		}

		resp := d.ToResponse("http://localhost:3001")
		Expect(resp.Code).To(Equal("20240315-0907-AB12"))
		Expect(resp.URL).To(Equal("http://localhost:3001/api/docs/7/download"))
		Expect(resp.Attachments[0].URL).To(Equal("http://localhost:3001/api/docs/attachments/9/download"))
		Expect(resp.Owner.Name).To(Equal("maria"))
		Expect(resp.UploadedBy).To(Equal(resp.Owner))
		Expect(resp.Tags).NotTo(BeNil())
	})
})
