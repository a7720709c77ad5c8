package visit

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

type VisitServicer interface {
	ListVisits(ctx context.Context, clinicID string) ([]*model.Visit, error)
	GetVisit(ctx context.Context, id string) (*model.Visit, error)
	UpsertVisit(ctx context.Context, visit *model.Visit) (*model.Visit, error)
	UpdateStatus(ctx context.Context, id string, status model.VisitStatus) (*model.Visit, error)
	DeleteVisit(ctx context.Context, id, clinicID string) error
}

type Service struct {
	repos     *repository.Repositories
	publisher event.Publisher
}

func NewService(repos *repository.Repositories, publisher event.Publisher) *Service {
	return &Service{
		repos:     repos,
		publisher: publisher,
	}
}

func (s *Service) ListVisits(ctx context.Context, clinicID string) ([]*model.Visit, error) {
	visits, err := s.repos.Visits.List(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func (s *Service) GetVisit(ctx context.Context, id string) (*model.Visit, error) {
	visit, err := s.repos.Visits.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get visit: %w", err)
	}
	if visit == nil {
		return nil, apperrors.NotFound("visit", nil)
	}
	return visit, nil
}

// UpsertVisit keeps cashAmount and ewalletAmount derived from the visit's
// payments whatever the payload says.
func (s *Service) UpsertVisit(ctx context.Context, visit *model.Visit) (*model.Visit, error) {
	if visit.ID != "" {
		existing, err := s.repos.Visits.Get(ctx, visit.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get visit: %w", err)
		}
		if existing != nil {
			visit.ClinicID = existing.ClinicID
			visit.CreatedAt = existing.CreatedAt
		}
	}
	if err := service.RequireClinic(ctx, s.repos.Clinics, visit.ClinicID); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, visit); err != nil {
		return nil, err
	}

	if visit.StartTime.IsZero() || visit.EndTime.IsZero() {
		return nil, apperrors.BadRequest("startTime and endTime are required", nil)
	}
	if visit.Status == "" {
		visit.Status = model.VisitStatusScheduled
	}
	for i := range visit.Services {
		if visit.Services[i].Quantity == 0 {
			visit.Services[i].Quantity = 1
		}
	}
	if visit.Services == nil {
		visit.Services = model.JSONList[model.VisitService]{}
	}
	if visit.TreatedTeeth == nil {
		visit.TreatedTeeth = model.JSONList[int]{}
	}

	if visit.ID == "" {
		visit.ID = ids.New(ids.Visit)
	}
	payments, err := s.repos.Payments.ListByVisit(ctx, visit.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	model.ComputeTotals(payments).Apply(visit)

	now := model.Now()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = now
	}
	visit.UpdatedAt = now

	if err := s.repos.Visits.Upsert(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to upsert visit: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityVisit, event.ActionUpserted, visit.ID, visit.ClinicID, visit)
	return visit, nil
}

func (s *Service) checkReferences(ctx context.Context, visit *model.Visit) error {
	if visit.PatientID == "" {
		return apperrors.BadRequest("patientId is required", nil)
	}
	patient, err := s.repos.Patients.Get(ctx, visit.PatientID)
	if err != nil {
		return fmt.Errorf("failed to get patient: %w", err)
	}
	if patient == nil {
		return apperrors.NotFound("patient", nil)
	}

	if visit.DoctorID != nil && *visit.DoctorID == "" {
		visit.DoctorID = nil
	}
	if visit.DoctorID == nil {
		return nil
	}
	doctor, err := s.repos.Doctors.Get(ctx, *visit.DoctorID)
	if err != nil {
		return fmt.Errorf("failed to get doctor: %w", err)
	}
	if doctor == nil {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}

// UpdateStatus sets any valid status regardless of the current one.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.VisitStatus) (*model.Visit, error) {
	if !status.Valid() {
		return nil, apperrors.BadRequest("status must be one of [scheduled completed cancelled]", nil)
	}

	visit, err := s.GetVisit(ctx, id)
	if err != nil {
		return nil, err
	}
	visit.Status = status
	visit.UpdatedAt = model.Now()

	if err := s.repos.Visits.Upsert(ctx, visit); err != nil {
		return nil, fmt.Errorf("failed to update visit status: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityVisit, event.ActionUpserted, visit.ID, visit.ClinicID, visit)
	return visit, nil
}

func (s *Service) DeleteVisit(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repos.Visits.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("visit", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityVisit, event.ActionDeleted, id, clinicID, nil)
	return nil
}
