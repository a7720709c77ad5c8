package sheets_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/internal/storage/sheets"
	"github.com/jwalitptl/dental-api/internal/storage/sheets/sheetstest"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

var headers = []string{"id", "clinicId", "data"}

func newClient(t *testing.T) (*sheets.Client, *sheetstest.Spreadsheet) {
	t.Helper()
	fake := sheetstest.New()
	return sheets.NewClient(fake, metrics.NewNop()), fake
}

func TestEnsureSheetCreatesOnce(t *testing.T) {
	client, fake := newClient(t)
	ctx := context.Background()

	_, err := client.EnsureSheet(ctx, "Clinics", headers)
	require.NoError(t, err)
	_, err = client.EnsureSheet(ctx, "Clinics", headers)
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls["AddSheet"])
	assert.Equal(t, 1, fake.Calls["SheetIDs"])
	assert.Equal(t, [][]string{headers}, fake.Rows("Clinics"))
}

// slowListing delays SheetIDs so concurrent first callers overlap.
type slowListing struct {
	*sheetstest.Spreadsheet
}

func (s slowListing) SheetIDs(ctx context.Context) (map[string]int64, error) {
	time.Sleep(5 * time.Millisecond)
	return s.Spreadsheet.SheetIDs(ctx)
}

func TestEnsureSheetConcurrentFirstUse(t *testing.T) {
	fake := sheetstest.New()
	client := sheets.NewClient(slowListing{fake}, metrics.NewNop())

	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.GetRows(context.Background(), "Patients", headers); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), failed.Load())
	assert.Equal(t, 1, fake.Calls["AddSheet"])
	assert.Equal(t, [][]string{headers}, fake.Rows("Patients"))
}

// staleListing hides one sheet from the first SheetIDs call, as when another
// process creates it between our listing and AddSheet.
type staleListing struct {
	*sheetstest.Spreadsheet
	hide  string
	calls atomic.Int32
}

func (s *staleListing) SheetIDs(ctx context.Context) (map[string]int64, error) {
	ids, err := s.Spreadsheet.SheetIDs(ctx)
	if err == nil && s.calls.Add(1) == 1 {
		delete(ids, s.hide)
	}
	return ids, err
}

func TestEnsureSheetUsesSheetCreatedElsewhere(t *testing.T) {
	fake := sheetstest.New()
	fake.SetRows("Doctors", [][]string{headers, {"d1", "c1", "{}"}})
	client := sheets.NewClient(&staleListing{Spreadsheet: fake, hide: "Doctors"}, metrics.NewNop())

	rows, err := client.GetRows(context.Background(), "Doctors", headers)
	require.NoError(t, err)
	assert.Equal(t, [][]string{headers, {"d1", "c1", "{}"}}, rows)
	assert.Equal(t, 1, fake.Calls["AddSheet"])
}

func TestEnsureSheetRewritesDriftedHeaders(t *testing.T) {
	client, fake := newClient(t)
	fake.SetRows("Visits", [][]string{
		{"ID", "clinic"},
		{"visit_1", "clinic_1", `{"id":"visit_1"}`},
	})

	_, err := client.EnsureSheet(context.Background(), "Visits", headers)
	require.NoError(t, err)

	rows := fake.Rows("Visits")
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "visit_1", rows[1][0], "data rows untouched")
	assert.Equal(t, 0, fake.Calls["AddSheet"])
}

func TestAppendUpdateAndGetRows(t *testing.T) {
	client, fake := newClient(t)
	ctx := context.Background()

	require.NoError(t, client.AppendRow(ctx, "Services", headers, []string{"s1", "c1", "{}"}))
	require.NoError(t, client.AppendRow(ctx, "Services", headers, []string{"s2", "c1", "{}"}))
	require.NoError(t, client.UpdateRow(ctx, "Services", headers, 3, "s2", []string{"s2", "c1", `{"name":"x"}`}))

	rows, err := client.GetRows(ctx, "Services", headers)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		headers,
		{"s1", "c1", "{}"},
		{"s2", "c1", `{"name":"x"}`},
	}, rows)
	assert.Equal(t, rows, fake.Rows("Services"))
}

func TestUpdateRowDetectsShiftedRow(t *testing.T) {
	client, fake := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.AppendRow(ctx, "Patients", headers, []string{"p1", "c1", "{}"}))
	require.NoError(t, client.AppendRow(ctx, "Patients", headers, []string{"p2", "c1", "{}"}))

	// Someone deleted p1 by hand; p2 moved up to row 2.
	fake.SetRows("Patients", [][]string{headers, {"p2", "c1", "{}"}})

	err := client.UpdateRow(ctx, "Patients", headers, 3, "p2", []string{"p2", "c1", `{"changed":true}`})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, [][]string{headers, {"p2", "c1", "{}"}}, fake.Rows("Patients"))
}

func TestDeleteRowsBottomUpInOneBatch(t *testing.T) {
	client, fake := newClient(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, client.AppendRow(ctx, "Files", headers, []string{id, "c1", "{}"}))
	}

	// Rows 2 (a), 4 (c) and 5 (d).
	err := client.DeleteRows(ctx, "Files", headers, map[int]string{2: "a", 4: "c", 5: "d"})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.Calls["DeleteRows"])
	assert.Equal(t, [][]string{headers, {"b", "c1", "{}"}, {"e", "c1", "{}"}}, fake.Rows("Files"))
}

func TestDeleteRowsRejectsMovedRows(t *testing.T) {
	client, fake := newClient(t)
	ctx := context.Background()
	require.NoError(t, client.AppendRow(ctx, "Files", headers, []string{"a", "c1", "{}"}))

	err := client.DeleteRows(ctx, "Files", headers, map[int]string{2: "zzz"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 0, fake.Calls["DeleteRows"])
	assert.Len(t, fake.Rows("Files"), 2)
}

func TestTransportErrorsBecomeStorageErrors(t *testing.T) {
	client, fake := newClient(t)
	fake.Err = errors.New("quota exceeded")

	_, err := client.GetRows(context.Background(), "Clinics", headers)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrStorage))
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestWithTableLockSerializes(t *testing.T) {
	client, _ := newClient(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.WithTableLock("Visits", func() error {
				mu.Lock()
				active++
				if active > maxSeen {
					maxSeen = active
				}
				mu.Unlock()

				mu.Lock()
				active--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", sheets.ColumnLetter(1))
	assert.Equal(t, "C", sheets.ColumnLetter(3))
	assert.Equal(t, "Z", sheets.ColumnLetter(26))
	assert.Equal(t, "AA", sheets.ColumnLetter(27))
	assert.Equal(t, "'O''Brien'!A1", sheets.A1("O'Brien", "A1"))
}
