package clinic

import (
	"context"
	"fmt"
	"strings"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/ids"
)

type ClinicServicer interface {
	ListClinics(ctx context.Context) ([]*model.Clinic, error)
	GetClinic(ctx context.Context, id string) (*model.Clinic, error)
	UpsertClinic(ctx context.Context, clinic *model.Clinic) (*model.Clinic, error)
	DeleteClinic(ctx context.Context, id string) error
}

type Service struct {
	repo      repository.ClinicRepository
	publisher event.Publisher
}

func NewService(repo repository.ClinicRepository, publisher event.Publisher) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *Service) ListClinics(ctx context.Context) ([]*model.Clinic, error) {
	clinics, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clinics: %w", err)
	}
	return clinics, nil
}

// GetClinic returns nil when no clinic has the id.
func (s *Service) GetClinic(ctx context.Context, id string) (*model.Clinic, error) {
	clinic, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get clinic: %w", err)
	}
	return clinic, nil
}

func (s *Service) UpsertClinic(ctx context.Context, clinic *model.Clinic) (*model.Clinic, error) {
	clinic.Name = strings.TrimSpace(clinic.Name)
	if clinic.Name == "" {
		return nil, apperrors.BadRequest("name is required", nil)
	}

	if clinic.ID != "" {
		existing, err := s.repo.Get(ctx, clinic.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get clinic: %w", err)
		}
		if existing != nil {
			clinic.CreatedAt = existing.CreatedAt
		}
	} else {
		clinic.ID = ids.New(ids.Clinic)
	}
	if clinic.CreatedAt.IsZero() {
		clinic.CreatedAt = model.Now()
	}

	sameName, err := s.repo.GetByName(ctx, clinic.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check clinic name: %w", err)
	}
	if sameName != nil && sameName.ID != clinic.ID {
		return nil, apperrors.BadRequest("clinic already exists", nil)
	}

	if err := s.repo.Upsert(ctx, clinic); err != nil {
		return nil, fmt.Errorf("failed to upsert clinic: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityClinic, event.ActionUpserted, clinic.ID, clinic.ID, clinic)
	return clinic, nil
}

func (s *Service) DeleteClinic(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.BadRequest("missing id", nil)
	}

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete clinic: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("clinic", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityClinic, event.ActionDeleted, id, id, nil)
	return nil
}
