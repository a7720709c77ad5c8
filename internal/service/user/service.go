package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service"
	"github.com/jwalitptl/dental-api/pkg/auth"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/ids"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/otp"
	"github.com/jwalitptl/dental-api/pkg/security"
)

type UserServicer interface {
	ListUsers(ctx context.Context, clinicID string) ([]*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertUser(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id, clinicID string) error
	Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error)
	SendOTP(ctx context.Context, phone string) (*model.OTPSendResponse, error)
	VerifyOTP(ctx context.Context, req *model.OTPVerifyRequest) (*model.OTPVerifyResponse, error)
}

const (
	defaultOTPTTL    = 5 * time.Minute
	defaultOTPLength = 6
)

// OTPConfig controls the one-time codes issued by SendOTP.
type OTPConfig struct {
	TTL    time.Duration
	Length int
	// ExposeCode echoes the code in the response, for setups without SMS delivery.
	ExposeCode bool
}

type Service struct {
	repo      repository.UserRepository
	clinics   repository.ClinicRepository
	hasher    security.PasswordHasher
	jwt       auth.JWTService
	otpStore  otp.Store
	otpConfig OTPConfig
	publisher event.Publisher
	metrics   *metrics.Metrics
}

func NewService(
	repo repository.UserRepository,
	clinics repository.ClinicRepository,
	hasher security.PasswordHasher,
	jwt auth.JWTService,
	otpStore otp.Store,
	otpConfig OTPConfig,
	publisher event.Publisher,
	m *metrics.Metrics,
) *Service {
	if otpConfig.TTL <= 0 {
		otpConfig.TTL = defaultOTPTTL
	}
	if otpConfig.Length == 0 {
		otpConfig.Length = defaultOTPLength
	}
	return &Service{
		repo:      repo,
		clinics:   clinics,
		hasher:    hasher,
		jwt:       jwt,
		otpStore:  otpStore,
		otpConfig: otpConfig,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *Service) ListUsers(ctx context.Context, clinicID string) ([]*model.User, error) {
	users, err := s.repo.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// GetUserByEmail returns nil when no user has the address.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, nil
	}
	return user.Public(), nil
}

// UpsertUser stores the password as a bcrypt hash. An empty password on an
// update keeps the stored hash.
func (s *Service) UpsertUser(ctx context.Context, user *model.User) (*model.User, error) {
	user.Email = model.NormalizeEmail(user.Email)

	var existing *model.User
	if user.ID != "" {
		var err error
		if existing, err = s.repo.Get(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
	}

	if existing != nil {
		user.ClinicID = existing.ClinicID
		user.CreatedAt = existing.CreatedAt
	}
	if err := service.RequireClinic(ctx, s.clinics, user.ClinicID); err != nil {
		return nil, err
	}

	if user.Email != "" {
		other, err := s.repo.GetByEmail(ctx, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, apperrors.BadRequest("user already exists", nil)
		}
	}

	if err := s.setPassword(user, existing); err != nil {
		return nil, err
	}

	if user.ID == "" {
		user.ID = ids.New(ids.User)
	}
	if user.Role == "" {
		user.Role = model.UserRoleUser
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = model.Now()
	}

	if err := s.repo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	public := user.Public()
	service.Emit(ctx, s.publisher, model.EntityUser, event.ActionUpserted, user.ID, user.ClinicID, public)
	return public, nil
}

func (s *Service) setPassword(user, existing *model.User) error {
	switch {
	case user.Password == "" && existing != nil:
		user.Password = existing.Password
		return nil
	case user.Password == "":
		return apperrors.BadRequest("password is required", nil)
	case s.hasher.IsHashed(user.Password):
		return nil
	}

	hash, err := s.hasher.Hash(user.Password)
	if errors.Is(err, security.ErrPasswordTooShort) {
		return apperrors.BadRequest(fmt.Sprintf("password must be at least %d characters", security.MinPasswordLen), err)
	}
	if err != nil {
		return apperrors.Internal(err)
	}
	user.Password = hash
	return nil
}

func (s *Service) DeleteUser(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("user", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityUser, event.ActionDeleted, id, clinicID, nil)
	return nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	if err := s.hasher.Compare(user.Password, req.Password); err != nil {
		log.Debug().Str("user_id", user.ID).Msg("login rejected")
		return nil, apperrors.Unauthorized(errors.New("invalid credentials"))
	}

	token, err := s.jwt.GenerateAccessToken(auth.TokenSubject{
		UserID:   user.ID,
		ClinicID: user.ClinicID,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}

	return &model.LoginResponse{User: user.Public(), Token: token}, nil
}

func (s *Service) SendOTP(ctx context.Context, phone string) (*model.OTPSendResponse, error) {
	if phone == "" {
		return nil, apperrors.BadRequest("phone is required", nil)
	}

	code, err := otp.Generate(s.otpConfig.Length)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if err := s.otpStore.Save(ctx, phone, code, s.otpConfig.TTL); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to save otp: %w", err))
	}
	if s.metrics != nil {
		s.metrics.OTPSent.Inc()
	}

	resp := &model.OTPSendResponse{Message: "OTP sent successfully"}
	if s.otpConfig.ExposeCode {
		resp.OTP = code
	}
	return resp, nil
}

// VerifyOTP consumes the code on success.
func (s *Service) VerifyOTP(ctx context.Context, req *model.OTPVerifyRequest) (*model.OTPVerifyResponse, error) {
	ok, err := s.otpStore.Verify(ctx, req.Phone, req.OTP)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to verify otp: %w", err))
	}

	if s.metrics != nil {
		result := "rejected"
		if ok {
			result = "verified"
		}
		s.metrics.OTPVerified.WithLabelValues(result).Inc()
	}
	return &model.OTPVerifyResponse{Verified: ok}, nil
}
