package repository

import (
	"context"

	"github.com/jwalitptl/dental-api/internal/model"
)

// Lookups return (nil, nil) when no record matches. An empty clinicID passed
// to List means "all clinics".
type (
	// ScopedRepository is the common shape of clinic-owned tables.
	ScopedRepository[T any] interface {
		List(ctx context.Context, clinicID string) ([]*T, error)
		Get(ctx context.Context, id string) (*T, error)
		Upsert(ctx context.Context, record *T) error
		// Delete removes the record only when both id and clinicID match.
		Delete(ctx context.Context, id, clinicID string) (bool, error)
	}

	ClinicRepository interface {
		List(ctx context.Context) ([]*model.Clinic, error)
		Get(ctx context.Context, id string) (*model.Clinic, error)
		GetByName(ctx context.Context, name string) (*model.Clinic, error)
		Upsert(ctx context.Context, clinic *model.Clinic) error
		Delete(ctx context.Context, id string) (bool, error)
	}

	UserRepository interface {
		ScopedRepository[model.User]
		GetByEmail(ctx context.Context, email string) (*model.User, error)
	}

	DoctorRepository interface {
		ScopedRepository[model.Doctor]
	}

	ServiceRepository interface {
		ScopedRepository[model.Service]
	}

	PatientRepository interface {
		ScopedRepository[model.Patient]
	}

	VisitRepository interface {
		ScopedRepository[model.Visit]
		ListByPatient(ctx context.Context, patientID string) ([]*model.Visit, error)
	}

	PaymentRepository interface {
		ScopedRepository[model.Payment]
		ListByVisit(ctx context.Context, visitID string) ([]*model.Payment, error)
	}

	FileRepository interface {
		ScopedRepository[model.PatientFile]
		ListByPatient(ctx context.Context, patientID string) ([]*model.PatientFile, error)
	}

	// Transactor runs fn atomically where the backend supports it. Repository
	// calls made with the ctx passed to fn join the transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	Pinger interface {
		Ping(ctx context.Context) error
	}
)

// Repositories bundles one storage backend.
type Repositories struct {
	Backend  string
	Clinics  ClinicRepository
	Users    UserRepository
	Doctors  DoctorRepository
	Services ServiceRepository
	Patients PatientRepository
	Visits   VisitRepository
	Payments PaymentRepository
	Files    FileRepository
	Tx       Transactor
	Health   Pinger
	Close    func() error
}
