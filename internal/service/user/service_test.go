package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/repotest"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/otp"
	"github.com/jwalitptl/dental-api/pkg/security"
)

const testSecret = "test-secret"

func newTestService(t *testing.T, repos *repository.Repositories, cfg OTPConfig) *Service {
	t.Helper()
	require.NoError(t, repos.Clinics.Upsert(context.Background(), &model.Clinic{ID: "clinic_1", Name: "Acme", CreatedAt: model.Now()}))
	return NewService(
		repos.Users,
		repos.Clinics,
		security.NewBcryptHasher(bcrypt.MinCost),
		auth.NewJWTService(testSecret, time.Hour),
		otp.NewMemoryStore(),
		cfg,
		event.NewNopPublisher(),
		metrics.NewNop(),
	)
}

func newUser(email string) *model.User {
	return &model.User{
		ClinicScoped: model.ClinicScoped{ClinicID: "clinic_1"},
		Email:        email,
		Password:     "secret123",
	}
}

func TestUpsertUserHashesPassword(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		svc := newTestService(t, repos, OTPConfig{})

		created, err := svc.UpsertUser(ctx, newUser("Doc@Example.com"))
		require.NoError(t, err)
		assert.Empty(t, created.Password)
		assert.Equal(t, model.UserRoleUser, created.Role)
		assert.Equal(t, "doc@example.com", created.Email)

		stored, err := repos.Users.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret123")))

		// An empty password keeps the stored hash.
		_, err = svc.UpsertUser(ctx, &model.User{
			ClinicScoped: model.ClinicScoped{ID: created.ID},
			Email:        "doc@example.com",
			Proficiency:  "ortho",
		})
		require.NoError(t, err)
		again, err := repos.Users.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.Password, again.Password)
		assert.Equal(t, "clinic_1", again.ClinicID)
	})
}

func TestUpsertUserValidation(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		svc := newTestService(t, repos, OTPConfig{})

		_, err := svc.UpsertUser(ctx, newUser("a@example.com"))
		require.NoError(t, err)

		_, err = svc.UpsertUser(ctx, newUser("A@example.com"))
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest), "duplicate email")

		u := newUser("b@example.com")
		u.ClinicID = "clinic_missing"
		_, err = svc.UpsertUser(ctx, u)
		assert.True(t, apperrors.IsNotFound(err), "unknown clinic")

		u = newUser("c@example.com")
		u.Password = "abc"
		_, err = svc.UpsertUser(ctx, u)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest), "short password")

		u = newUser("d@example.com")
		u.Password = ""
		_, err = svc.UpsertUser(ctx, u)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest), "missing password")
	})
}

func TestLogin(t *testing.T) {
	repos := repotest.SQLite(t)
	ctx := context.Background()
	svc := newTestService(t, repos, OTPConfig{})

	created, err := svc.UpsertUser(ctx, newUser("doc@example.com"))
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &model.LoginRequest{Email: "DOC@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, resp.User.ID)
	assert.Empty(t, resp.User.Password)

	claims, err := auth.NewJWTService(testSecret, time.Hour).ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, "clinic_1", claims.ClinicID)

	_, err = svc.Login(ctx, &model.LoginRequest{Email: "doc@example.com", Password: "wrong-password"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	_, err = svc.Login(ctx, &model.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestGetUserByEmailAndDelete(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		svc := newTestService(t, repos, OTPConfig{})

		created, err := svc.UpsertUser(ctx, newUser("doc@example.com"))
		require.NoError(t, err)

		got, err := svc.GetUserByEmail(ctx, "doc@example.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Empty(t, got.Password)

		assert.True(t, apperrors.IsNotFound(svc.DeleteUser(ctx, created.ID, "clinic_other")))
		require.NoError(t, svc.DeleteUser(ctx, created.ID, "clinic_1"))

		got, err = svc.GetUserByEmail(ctx, "doc@example.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestOTPFlow(t *testing.T) {
	repos := repotest.SQLite(t)
	ctx := context.Background()
	svc := newTestService(t, repos, OTPConfig{TTL: time.Minute, Length: 6, ExposeCode: true})

	sent, err := svc.SendOTP(ctx, "+60123456789")
	require.NoError(t, err)
	require.Len(t, sent.OTP, 6)

	bad, err := svc.VerifyOTP(ctx, &model.OTPVerifyRequest{Phone: "+60123456789", OTP: "not-it"})
	require.NoError(t, err)
	assert.False(t, bad.Verified)

	ok, err := svc.VerifyOTP(ctx, &model.OTPVerifyRequest{Phone: "+60123456789", OTP: sent.OTP})
	require.NoError(t, err)
	assert.True(t, ok.Verified)

	reused, err := svc.VerifyOTP(ctx, &model.OTPVerifyRequest{Phone: "+60123456789", OTP: sent.OTP})
	require.NoError(t, err)
	assert.False(t, reused.Verified)
}

func TestSendOTPHidesCode(t *testing.T) {
	repos := repotest.SQLite(t)
	svc := newTestService(t, repos, OTPConfig{TTL: time.Minute, Length: 6})

	sent, err := svc.SendOTP(context.Background(), "+60123456789")
	require.NoError(t, err)
	assert.Empty(t, sent.OTP)
	assert.NotEmpty(t, sent.Message)

	_, err = svc.SendOTP(context.Background(), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}
