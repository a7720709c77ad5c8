// Package repotest builds throwaway repository sets for tests.
package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/repository"
	sheetsrepo "github.com/jwalitptl/dental-api/internal/repository/sheets"
	"github.com/jwalitptl/dental-api/internal/repository/sqlite"
	storage "github.com/jwalitptl/dental-api/internal/storage/sheets"
	"github.com/jwalitptl/dental-api/internal/storage/sheets/sheetstest"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

// SQLite returns repositories over a migrated in-memory database.
func SQLite(t testing.TB) *repository.Repositories {
	t.Helper()

	db, err := sqlite.NewDB(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, sqlite.Migrate(db, sqlite.Up))

	repos := sqlite.New(db, metrics.NewNop())
	t.Cleanup(func() { repos.Close() })
	return repos
}

// Sheets returns repositories over an in-memory spreadsheet.
func Sheets(t testing.TB) (*repository.Repositories, *sheetstest.Spreadsheet) {
	t.Helper()

	fake := sheetstest.New()
	client := storage.NewClient(fake, metrics.NewNop())
	return sheetsrepo.New(client, metrics.NewNop()), fake
}

// Backends runs fn once per storage backend.
func Backends(t *testing.T, fn func(t *testing.T, repos *repository.Repositories)) {
	t.Run(sqlite.BackendName, func(t *testing.T) {
		fn(t, SQLite(t))
	})
	t.Run(sheetsrepo.BackendName, func(t *testing.T) {
		repos, _ := Sheets(t)
		fn(t, repos)
	})
}
