package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

func setupRepos(t *testing.T) *repository.Repositories {
	t.Helper()
	db, err := NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db, Up))
	t.Cleanup(func() { db.Close() })
	return New(db, metrics.NewNop())
}

func seedClinic(t *testing.T, repos *repository.Repositories, id string) {
	t.Helper()
	require.NoError(t, repos.Clinics.Upsert(context.Background(), &model.Clinic{ID: id, Name: "Clinic " + id, CreatedAt: model.Now()}))
}

func seedPatient(t *testing.T, repos *repository.Repositories, id, clinicID string) *model.Patient {
	t.Helper()
	p := &model.Patient{
		ClinicScoped: model.ClinicScoped{ID: id, ClinicID: clinicID},
		Name:         "Jane Roe",
		Status:       model.PatientStatusActive,
		Teeth:        model.JSONList[model.ToothStatus]{{ToothNumber: 11, Status: model.ToothProblem}},
		CreatedAt:    model.Now(),
		UpdatedAt:    model.Now(),
	}
	require.NoError(t, repos.Patients.Upsert(context.Background(), p))
	return p
}

func seedVisit(t *testing.T, repos *repository.Repositories, id, patientID, clinicID string) *model.Visit {
	t.Helper()
	v := &model.Visit{
		ClinicScoped: model.ClinicScoped{ID: id, ClinicID: clinicID},
		PatientID:    patientID,
		StartTime:    model.Now(),
		EndTime:      model.Now(),
		Services:     model.JSONList[model.VisitService]{{ServiceID: "service_1", Quantity: 2}},
		Status:       model.VisitStatusScheduled,
		CreatedAt:    model.Now(),
		UpdatedAt:    model.Now(),
	}
	require.NoError(t, repos.Visits.Upsert(context.Background(), v))
	return v
}

func TestClinicRepository(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)

	seedClinic(t, repos, "clinic_1")

	got, err := repos.Clinics.Get(ctx, "clinic_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Clinic clinic_1", got.Name)
	assert.False(t, got.CreatedAt.IsZero())

	byName, err := repos.Clinics.GetByName(ctx, "Clinic clinic_1")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "clinic_1", byName.ID)

	missing, err := repos.Clinics.Get(ctx, "clinic_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	got.Name = "Renamed"
	require.NoError(t, repos.Clinics.Upsert(ctx, got))
	all, err := repos.Clinics.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Name)

	err = repos.Clinics.Upsert(ctx, &model.Clinic{ID: "clinic_2", Name: "Renamed", CreatedAt: model.Now()})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

	deleted, err := repos.Clinics.Delete(ctx, "clinic_1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repos.Clinics.Delete(ctx, "clinic_1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUserRepositoryEmailLookup(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")

	user := &model.User{
		ClinicScoped: model.ClinicScoped{ID: "user_1", ClinicID: "clinic_1"},
		Email:        "Dr.Who@Example.com",
		Password:     "$2a$10$hash",
		Role:         model.UserRoleAdmin,
		CreatedAt:    model.Now(),
	}
	require.NoError(t, repos.Users.Upsert(ctx, user))

	got, err := repos.Users.GetByEmail(ctx, "dr.who@example.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user_1", got.ID)
	assert.Equal(t, "dr.who@example.com", got.Email)

	dup := &model.User{
		ClinicScoped: model.ClinicScoped{ID: "user_2", ClinicID: "clinic_1"},
		Email:        "DR.WHO@example.com",
		Role:         model.UserRoleUser,
		CreatedAt:    model.Now(),
	}
	err = repos.Users.Upsert(ctx, dup)
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestScopedDeleteRequiresMatchingClinic(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")
	seedClinic(t, repos, "clinic_2")
	seedPatient(t, repos, "patient_1", "clinic_1")

	deleted, err := repos.Patients.Delete(ctx, "patient_1", "clinic_2")
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = repos.Patients.Delete(ctx, "patient_1", "clinic_1")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestPatientRoundTripsJSONColumns(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")
	seedPatient(t, repos, "patient_1", "clinic_1")

	got, err := repos.Patients.Get(ctx, "patient_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Teeth, 1)
	assert.Equal(t, 11, got.Teeth[0].ToothNumber)
	assert.Equal(t, model.ToothProblem, got.Teeth[0].Status)
	assert.NotNil(t, got.Services)
	assert.Equal(t, model.PatientStatusActive, got.Status)

	list, err := repos.Patients.List(ctx, "clinic_1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = repos.Patients.List(ctx, "clinic_other")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestForeignKeyViolationIsNotFound(t *testing.T) {
	repos := setupRepos(t)

	err := repos.Services.Upsert(context.Background(), &model.Service{
		ClinicScoped: model.ClinicScoped{ID: "service_1", ClinicID: "clinic_missing"},
		Name:         "Cleaning",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePatientCascades(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")
	seedPatient(t, repos, "patient_1", "clinic_1")
	seedVisit(t, repos, "visit_1", "patient_1", "clinic_1")

	cash := model.PaymentMethodCash
	require.NoError(t, repos.Payments.Upsert(ctx, &model.Payment{
		ClinicScoped: model.ClinicScoped{ID: "payment_1", ClinicID: "clinic_1"},
		VisitID:      "visit_1",
		Amount:       50,
		Date:         model.Now(),
		Method:       &cash,
	}))
	require.NoError(t, repos.Files.Upsert(ctx, &model.PatientFile{
		ClinicScoped: model.ClinicScoped{ID: "file_1", ClinicID: "clinic_1"},
		PatientID:    "patient_1",
		Name:         "xray.png",
		File:         "https://files.example.com/xray.png",
		UploadedAt:   model.Now(),
	}))

	deleted, err := repos.Patients.Delete(ctx, "patient_1", "clinic_1")
	require.NoError(t, err)
	require.True(t, deleted)

	visits, err := repos.Visits.ListByPatient(ctx, "patient_1")
	require.NoError(t, err)
	assert.Empty(t, visits)

	payments, err := repos.Payments.ListByVisit(ctx, "visit_1")
	require.NoError(t, err)
	assert.Empty(t, payments)

	files, err := repos.Files.ListByPatient(ctx, "patient_1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDeleteDoctorNullsVisitDoctor(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")
	seedPatient(t, repos, "patient_1", "clinic_1")

	require.NoError(t, repos.Doctors.Upsert(ctx, &model.Doctor{
		ClinicScoped: model.ClinicScoped{ID: "doctor_1", ClinicID: "clinic_1"},
		Name:         "Dr. Molar",
		Color:        model.DefaultDoctorColor,
	}))
	v := seedVisit(t, repos, "visit_1", "patient_1", "clinic_1")
	doctorID := "doctor_1"
	v.DoctorID = &doctorID
	require.NoError(t, repos.Visits.Upsert(ctx, v))

	deleted, err := repos.Doctors.Delete(ctx, "doctor_1", "clinic_1")
	require.NoError(t, err)
	require.True(t, deleted)

	got, err := repos.Visits.Get(ctx, "visit_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.DoctorID)
}

func TestDeleteClinicCascades(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)
	seedClinic(t, repos, "clinic_1")
	seedPatient(t, repos, "patient_1", "clinic_1")

	_, err := repos.Clinics.Delete(ctx, "clinic_1")
	require.NoError(t, err)

	patients, err := repos.Patients.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, patients)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repos := setupRepos(t)

	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Clinics.Upsert(ctx, &model.Clinic{ID: "clinic_1", Name: "Acme", CreatedAt: model.Now()}); err != nil {
			return err
		}
		return repos.Tx.WithinTx(ctx, func(ctx context.Context) error { return boom })
	})
	assert.ErrorIs(t, err, boom)

	got, err := repos.Clinics.Get(ctx, "clinic_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return repos.Clinics.Upsert(ctx, &model.Clinic{ID: "clinic_1", Name: "Acme", CreatedAt: model.Now()})
	}))
	got, err = repos.Clinics.Get(ctx, "clinic_1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestUpsertRejectsInvalidRecord(t *testing.T) {
	repos := setupRepos(t)
	err := repos.Clinics.Upsert(context.Background(), &model.Clinic{ID: "clinic_1"})
	assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
}

func TestMigrateDownDropsTables(t *testing.T) {
	db, err := NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, Up))
	require.NoError(t, Migrate(db, Up))
	require.NoError(t, Migrate(db, Down))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'clinics'"))
	assert.Zero(t, count)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "sqlmock")
	repo := NewServiceRepository(db, metrics.NewNop())

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("disk I/O error"))

	_, err = repo.List(context.Background(), "clinic_1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}
