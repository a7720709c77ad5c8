package patient

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

type PatientServicer interface {
	ListPatients(ctx context.Context, clinicID string) ([]*model.Patient, error)
	GetPatient(ctx context.Context, id string) (*model.Patient, error)
	UpsertPatient(ctx context.Context, patient *model.Patient) (*model.Patient, error)
	DeletePatient(ctx context.Context, id, clinicID string) error
}

type Service struct {
	repo      repository.PatientRepository
	clinics   repository.ClinicRepository
	publisher event.Publisher
}

func NewService(repo repository.PatientRepository, clinics repository.ClinicRepository, publisher event.Publisher) *Service {
	return &Service{
		repo:      repo,
		clinics:   clinics,
		publisher: publisher,
	}
}

func (s *Service) ListPatients(ctx context.Context, clinicID string) ([]*model.Patient, error) {
	patients, err := s.repo.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if patient == nil {
		return nil, apperrors.NotFound("patient", nil)
	}
	return patient, nil
}

func (s *Service) UpsertPatient(ctx context.Context, patient *model.Patient) (*model.Patient, error) {
	if patient.ID != "" {
		existing, err := s.repo.Get(ctx, patient.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get patient: %w", err)
		}
		if existing != nil {
			patient.ClinicID = existing.ClinicID
			patient.CreatedAt = existing.CreatedAt
		}
	}
	if err := service.RequireClinic(ctx, s.clinics, patient.ClinicID); err != nil {
		return nil, err
	}

	switch patient.Status {
	case "":
		patient.Status = model.PatientStatusActive
	case model.PatientStatusActive, model.PatientStatusInactive:
	default:
		return nil, apperrors.BadRequest("status must be one of [active inactive]", nil)
	}

	if patient.ID == "" {
		patient.ID = ids.New(ids.Patient)
	}
	if patient.Teeth == nil {
		patient.Teeth = model.JSONList[model.ToothStatus]{}
	}
	if patient.Services == nil {
		patient.Services = model.JSONList[string]{}
	}
	now := model.Now()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	if err := s.repo.Upsert(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to upsert patient: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityPatient, event.ActionUpserted, patient.ID, patient.ClinicID, patient)
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("patient", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityPatient, event.ActionDeleted, id, clinicID, nil)
	return nil
}
