package auth_test

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/ecodocs/internal"
	"github.com/frahmantamala/ecodocs/internal/audit"
	"github.com/frahmantamala/ecodocs/internal/auth"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var _ = Describe("Auth Service", func() {
	var (
		repo     *mockUserRepository
		recorder *recordingAudit
		tokens   *auth.JWTTokenGenerator
		service  *auth.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		repo = newMockUserRepository()
		recorder = &recordingAudit{}
		tokens = auth.NewJWTTokenGenerator(testSecret, time.Hour)
		service = auth.NewService(repo, tokens, recorder, 4, testLogger)
		ctx = context.Background()
	})

	Describe("Register", func() {
		It("creates a viewer by default and returns a token", func() {
			resp, err := service.Register(ctx, auth.RegisterDTO{
				Username: "  alice ",
				Email:    "alice@example.com",
				Password: "secret1",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Token).NotTo(BeEmpty())
			Expect(resp.User.Username).To(Equal("alice"))
			Expect(resp.User.Name).To(Equal("alice"))
			Expect(resp.User.Role).To(Equal(auth.RoleViewer))
			Expect(resp.User.Avatar).To(Equal("https://ui-avatars.com/api/?name=alice"))

			stored := repo.users[resp.User.ID]
			Expect(stored.PasswordHash).NotTo(Equal("secret1"))
			Expect(auth.VerifyPassword(stored.PasswordHash, "secret1")).To(Succeed())

			Expect(recorder.entries).To(HaveLen(1))
			Expect(recorder.entries[0].Action).To(Equal(audit.ActionCreateUser))
		})

		It("rejects a duplicate username or email with a conflict", func() {
			_, err := service.Register(ctx, auth.RegisterDTO{Username: "alice", Email: "a@example.com", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Register(ctx, auth.RegisterDTO{Username: "other", Email: "a@example.com", Password: "secret1"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(409))
		})

		It("returns field errors for invalid input", func() {
			_, err := service.Register(ctx, auth.RegisterDTO{Username: "al", Email: "bad", Password: "123", Role: "root"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			details := appErr.Details.(internal.ValidationErrors)
			Expect(details.Errors).To(HaveLen(4))
			Expect(recorder.entries).To(BeEmpty())
		})

		It("accepts an explicit role", func() {
			resp, err := service.Register(ctx, auth.RegisterDTO{Username: "boss", Email: "b@example.com", Password: "secret1", Role: "gestor"})
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.User.Role).To(Equal(auth.RoleGestor))
		})
	})

	Describe("Login", func() {
		BeforeEach(func() {
			_, err := service.Register(ctx, auth.RegisterDTO{Username: "alice", Email: "a@example.com", Password: "secret1", Role: "FINANCEIRO"})
			Expect(err).NotTo(HaveOccurred())
			recorder.entries = nil
		})

		It("issues a token carrying id and role", func() {
			resp, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret1"})
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.ValidateAccessToken(resp.Token)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims.UserID).To(Equal(resp.User.ID))
			Expect(claims.Role).To(Equal(auth.RoleFinanceiro))
			Expect(claims.Subject).To(Equal("1"))
			Expect(recorder.entries[0].Action).To(Equal(audit.ActionLogin))
		})

		It("rejects a wrong password", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "nope"})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("rejects an unknown user", func() {
			_, err := service.Login(ctx, auth.LoginDTO{Username: "bob", Password: "secret1"})
			Expect(err).To(MatchError(internal.ErrInvalidCredentials))
		})

		It("surfaces repository failures as internal errors", func() {
			repo.setError(errDatabase)
			_, err := service.Login(ctx, auth.LoginDTO{Username: "alice", Password: "secret1"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})

	Describe("GetPrincipal", func() {
		It("reports deleted users as unauthorized", func() {
			_, err := service.GetPrincipal(ctx, 99)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(401))
		})
	})
})

var _ = Describe("JWTTokenGenerator", func() {
	It("rejects expired tokens", func() {
		gen := auth.NewJWTTokenGenerator(testSecret, time.Hour)
		claims := &auth.Claims{
			UserID: 1,
			Role:   auth.RoleAdmin,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = gen.ValidateToken(signed)
		Expect(err).To(MatchError(internal.ErrTokenExpired))
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewJWTTokenGenerator(strings.Repeat("x", 32), time.Hour)
		token, err := other.GenerateAccessToken(1, auth.RoleAdmin)
		Expect(err).NotTo(HaveOccurred())

		_, err = auth.NewJWTTokenGenerator(testSecret, time.Hour).ValidateToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("rejects garbage", func() {
		_, err := auth.NewJWTTokenGenerator(testSecret, time.Hour).ValidateToken("not-a-jwt")
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})
})
