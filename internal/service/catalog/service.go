// Package catalog manages the billable services a clinic offers.
package catalog

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

type CatalogServicer interface {
	ListServices(ctx context.Context, clinicID string) ([]*model.Service, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
	UpsertService(ctx context.Context, svc *model.Service) (*model.Service, error)
	DeleteService(ctx context.Context, id, clinicID string) error
}

type Service struct {
	repo      repository.ServiceRepository
	clinics   repository.ClinicRepository
	publisher event.Publisher
}

func NewService(repo repository.ServiceRepository, clinics repository.ClinicRepository, publisher event.Publisher) *Service {
	return &Service{
		repo:      repo,
		clinics:   clinics,
		publisher: publisher,
	}
}

func (s *Service) ListServices(ctx context.Context, clinicID string) ([]*model.Service, error) {
	services, err := s.repo.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	return services, nil
}

func (s *Service) GetService(ctx context.Context, id string) (*model.Service, error) {
	svc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get service: %w", err)
	}
	if svc == nil {
		return nil, apperrors.NotFound("service", nil)
	}
	return svc, nil
}

func (s *Service) UpsertService(ctx context.Context, svc *model.Service) (*model.Service, error) {
	if svc.ID != "" {
		existing, err := s.repo.Get(ctx, svc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get service: %w", err)
		}
		if existing != nil {
			svc.ClinicID = existing.ClinicID
		}
	}
	if err := service.RequireClinic(ctx, s.clinics, svc.ClinicID); err != nil {
		return nil, err
	}

	if svc.ID == "" {
		svc.ID = ids.New(ids.Service)
	}

	if err := s.repo.Upsert(ctx, svc); err != nil {
		return nil, fmt.Errorf("failed to upsert service: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityService, event.ActionUpserted, svc.ID, svc.ClinicID, svc)
	return svc, nil
}

func (s *Service) DeleteService(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete service: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("service", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityService, event.ActionDeleted, id, clinicID, nil)
	return nil
}
