package file

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

type FileServicer interface {
	ListFiles(ctx context.Context, patientID, clinicID string) ([]*model.PatientFile, error)
	GetFile(ctx context.Context, id string) (*model.PatientFile, error)
	UpsertFile(ctx context.Context, file *model.PatientFile) (*model.PatientFile, error)
	DeleteFile(ctx context.Context, id, clinicID string) error
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

// ListFiles filters by patient when patientID is set, then by clinic.
func (s *Service) ListFiles(ctx context.Context, patientID, clinicID string) ([]*model.PatientFile, error) {
	if patientID == "" {
		files, err := s.repos.Files.List(ctx, clinicID)
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		return files, nil
	}

	files, err := s.repos.Files.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	if clinicID == "" {
		return files, nil
	}
	out := make([]*model.PatientFile, 0, len(files))
	for _, f := range files {
		if f.ClinicID == clinicID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *Service) GetFile(ctx context.Context, id string) (*model.PatientFile, error) {
	file, err := s.repos.Files.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file == nil {
		return nil, apperrors.NotFound("file", nil)
	}
	return file, nil
}

func (s *Service) UpsertFile(ctx context.Context, file *model.PatientFile) (*model.PatientFile, error) {
	if file.ID != "" {
		existing, err := s.repos.Files.Get(ctx, file.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get file: %w", err)
		}
		if existing != nil {
			file.ClinicID = existing.ClinicID
			if file.UploadedAt.IsZero() {
				file.UploadedAt = existing.UploadedAt
			}
		}
	}
	if err := service.RequireClinic(ctx, s.repos.Clinics, file.ClinicID); err != nil {
		return nil, err
	}

	if file.PatientID == "" {
		return nil, apperrors.BadRequest("patientId is required", nil)
	}
	patient, err := s.repos.Patients.Get(ctx, file.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if patient == nil {
		return nil, apperrors.NotFound("patient", nil)
	}

	if file.ID == "" {
		file.ID = ids.New(ids.File)
	}
	if file.UploadedAt.IsZero() {
		file.UploadedAt = model.Now()
	}

	if err := s.repos.Files.Upsert(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to upsert file: %w", err)
	}

	service.Emit(ctx, s.publisher, model.EntityFile, event.ActionUpserted, file.ID, file.ClinicID, file)
	return file, nil
}

func (s *Service) DeleteFile(ctx context.Context, id, clinicID string) error {
	if err := service.RequireDeleteKeys(id, clinicID); err != nil {
		return err
	}

	deleted, err := s.repos.Files.Delete(ctx, id, clinicID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if !deleted {
		return apperrors.NotFound("file", nil)
	}

	service.Emit(ctx, s.publisher, model.EntityFile, event.ActionDeleted, id, clinicID, nil)
	return nil
}
