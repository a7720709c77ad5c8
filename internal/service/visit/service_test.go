package visit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/ids"
)

func seed(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	now := model.Now()

	require.NoError(t, repos.Clinics.Upsert(ctx, &model.Clinic{ID: "c1", Name: "Acme", CreatedAt: now}))
	require.NoError(t, repos.Patients.Upsert(ctx, &model.Patient{
		ClinicScoped: model.ClinicScoped{ID: "p1", ClinicID: "c1"},
		Name:         "Jane",
		Status:       model.PatientStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))
	require.NoError(t, repos.Doctors.Upsert(ctx, &model.Doctor{
		ClinicScoped: model.ClinicScoped{ID: "d1", ClinicID: "c1"},
		Name:         "Dr. Molar",
		Color:        model.DefaultDoctorColor,
	}))
}

func newVisit() *model.Visit {
	start := model.NewTimestamp(time.Date(2024, 10, 17, 9, 0, 0, 0, time.UTC))
	return &model.Visit{
		ClinicScoped: model.ClinicScoped{ClinicID: "c1"},
		PatientID:    "p1",
		StartTime:    start,
		EndTime:      model.NewTimestamp(start.Add(30 * time.Minute)),
		Services:     model.JSONList[model.VisitService]{{ServiceID: "s1"}},
		CashAmount:   500,
	}
}

func TestUpsertVisitDefaults(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		seed(t, repos)
		svc := NewService(repos, event.NewNopPublisher())

		created, err := svc.UpsertVisit(ctx, newVisit())
		require.NoError(t, err)
		assert.True(t, ids.HasPrefix(created.ID, ids.Visit))
		assert.Equal(t, model.VisitStatusScheduled, created.Status)
		assert.Equal(t, 1, created.Services[0].Quantity)
		assert.Zero(t, created.CashAmount, "totals come from payments only")
		assert.NotNil(t, created.TreatedTeeth)

		got, err := svc.GetVisit(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.StartTime, got.StartTime)
		assert.Equal(t, "s1", got.Services[0].ServiceID)
	})
}

func TestUpsertVisitKeepsScopeOnUpdate(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		seed(t, repos)
		require.NoError(t, repos.Clinics.Upsert(ctx, &model.Clinic{ID: "c2", Name: "Other", CreatedAt: model.Now()}))
		svc := NewService(repos, event.NewNopPublisher())

		created, err := svc.UpsertVisit(ctx, newVisit())
		require.NoError(t, err)

		update := newVisit()
		update.ID = created.ID
		update.ClinicID = "c2"
		update.Notes = "filling"
		updated, err := svc.UpsertVisit(ctx, update)
		require.NoError(t, err)
		assert.Equal(t, "c1", updated.ClinicID)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.Equal(t, "filling", updated.Notes)
	})
}

func TestUpsertVisitReferences(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		seed(t, repos)
		svc := NewService(repos, event.NewNopPublisher())

		v := newVisit()
		v.PatientID = "p_missing"
		_, err := svc.UpsertVisit(ctx, v)
		assert.True(t, apperrors.IsNotFound(err))

		v = newVisit()
		missing := "d_missing"
		v.DoctorID = &missing
		_, err = svc.UpsertVisit(ctx, v)
		assert.True(t, apperrors.IsNotFound(err))

		v = newVisit()
		doctor := "d1"
		v.DoctorID = &doctor
		_, err = svc.UpsertVisit(ctx, v)
		assert.NoError(t, err)

		v = newVisit()
		v.ClinicID = "c_missing"
		_, err = svc.UpsertVisit(ctx, v)
		assert.True(t, apperrors.IsNotFound(err))

		v = newVisit()
		v.EndTime = model.Timestamp{}
		_, err = svc.UpsertVisit(ctx, v)
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))
	})
}

func TestUpdateStatus(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		seed(t, repos)
		svc := NewService(repos, event.NewNopPublisher())

		created, err := svc.UpsertVisit(ctx, newVisit())
		require.NoError(t, err)

		for _, status := range []model.VisitStatus{model.VisitStatusCompleted, model.VisitStatusScheduled, model.VisitStatusCancelled} {
			updated, err := svc.UpdateStatus(ctx, created.ID, status)
			require.NoError(t, err)
			assert.Equal(t, status, updated.Status)
		}

		_, err = svc.UpdateStatus(ctx, created.ID, "done")
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

		_, err = svc.UpdateStatus(ctx, "visit_missing", model.VisitStatusCompleted)
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDeleteVisit(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
		ctx := context.Background()
		seed(t, repos)
		svc := NewService(repos, event.NewNopPublisher())

		created, err := svc.UpsertVisit(ctx, newVisit())
		require.NoError(t, err)

		assert.True(t, apperrors.Is(svc.DeleteVisit(ctx, created.ID, ""), apperrors.ErrBadRequest))
		assert.True(t, apperrors.IsNotFound(svc.DeleteVisit(ctx, created.ID, "c2")))
		require.NoError(t, svc.DeleteVisit(ctx, created.ID, "c1"))

		visits, err := svc.ListVisits(ctx, "c1")
		require.NoError(t, err)
		assert.Empty(t, visits)
	})
}
