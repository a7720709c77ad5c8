package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
)

func TestPatientFiles(t *testing.T) {
	repotest.Backends(t, func(t *testing.T, repos *repository.Repositories) {
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
		svc := NewService(repos, event.NewNopPublisher())

		created, err := svc.UpsertFile(ctx, &model.PatientFile{
			ClinicScoped: model.ClinicScoped{ClinicID: "c1"},
			PatientID:    "p1",
			Name:         "panoramic.png",
			File:         "https://files.example.com/panoramic.png",
		})
		require.NoError(t, err)
		assert.False(t, created.UploadedAt.IsZero())

		files, err := svc.ListFiles(ctx, "p1", "c1")
		require.NoError(t, err)
		require.Len(t, files, 1)

		files, err = svc.ListFiles(ctx, "p1", "c2")
		require.NoError(t, err)
		assert.Empty(t, files)

		_, err = svc.UpsertFile(ctx, &model.PatientFile{
			ClinicScoped: model.ClinicScoped{ClinicID: "c1"},
			PatientID:    "p_missing",
			Name:         "x",
			File:         "https://files.example.com/x",
		})
		assert.True(t, apperrors.IsNotFound(err))

		_, err = svc.UpsertFile(ctx, &model.PatientFile{ClinicScoped: model.ClinicScoped{ClinicID: "c1"}, PatientID: "p1", Name: "x"})
		assert.True(t, apperrors.Is(err, apperrors.ErrBadRequest))

		require.NoError(t, svc.DeleteFile(ctx, created.ID, "c1"))
		_, err = svc.GetFile(ctx, created.ID)
		assert.True(t, apperrors.IsNotFound(err))
	})
}
