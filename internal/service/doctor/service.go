package doctor

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/ids"
)

type DoctorServicer interface {
	ListDoctors(ctx context.Context, clinicID string) ([]*model.Doctor, error)
	GetDoctor(ctx context.Context, id string) (*model.Doctor, error)
	UpsertDoctor(ctx context.Context, doctor *model.Doctor) (*model.Doctor, error)
	DeleteDoctor(ctx context.Context, id, clinicID string) error
}

type Service struct {
	repo      repository.DoctorRepository
	clinics   repository.ClinicRepository
	users     repository.UserRepository
	publisher event.Publisher
}

func NewService(repo repository.DoctorRepository, clinics repository.ClinicRepository, users repository.UserRepository, publisher event.Publisher) *Service {
	return &Service{
		repo:      repo,
		clinics:   clinics,
		users:     users,
		publisher: publisher,
	}
}

func (s *Service) ListDoctors(ctx context.Context, clinicID string) ([]*model.Doctor, error) {
	doctors, err := s.repo.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

func (s *Service) GetDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	if doctor == nil {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return doctor, nil
}

func (s *Service) UpsertDoctor(ctx context.Context, doctor *model.Doctor) (*model.Doctor, error) {
	if doctor.ID != "" {
		existing, err := s.repo.Get(ctx, doctor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get doctor: %w", err)
		}
		if existing != nil {
			doctor.ClinicID = existing.ClinicID
		}
	}
	if err := service.RequireClinic(ctx, s.clinics, doctor.ClinicID); err != nil {
		return nil, err
	}

	if doctor.UserID != nil && *doctor.UserID == "" {
		doctor.UserID = nil
	}
	if doctor.UserID != nil {
		user, err := s.users.Get(ctx, *doctor.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user == nil {
			return nil, apperrors.NotFound("user", nil)
		}
	}

	if doctor.ID == "" {
		doctor.ID = ids.New(ids.Doctor)
	}
	if doctor.Color == "" {
		doctor.Color = model.DefaultDoctorColor
	}

	if err := s.repo.Upsert(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to upsert doctor: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityDoctor, event.ActionUpserted, doctor.ID, doctor.ClinicID, doctor)
	return doctor, nil
}

func (s *Service) DeleteDoctor(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete doctor: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("doctor", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityDoctor, event.ActionDeleted, id, clinicID, nil)
	return nil
}
