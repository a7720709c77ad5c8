package sheets

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/dental-api/internal/model"
	storage "github.com/jwalitptl/dental-api/internal/storage/sheets"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

// Headers is the physical layout of every table sheet.
var Headers = []string{"id", "clinicId", "data"}

// Sheet names.
const (
	SheetClinics  = "Clinics"
	SheetUsers    = "Users"
	SheetDoctors  = "Doctors"
	SheetServices = "Services"
	SheetPatients = "Patients"
	SheetVisits   = "Visits"
	SheetPayments = "Payments"
	SheetFiles    = "Files"
)

// recordPtr constrains PT to a pointer to T that implements model.Record.
type recordPtr[T any] interface {
	*T
	model.Record
}

type row[T any] struct {
	pos  int
	item *T
}

// Table stores records of one type as JSON in a sheet.
type Table[T any, PT recordPtr[T]] struct {
	client  *storage.Client
	name    string
	metrics *metrics.Metrics
}

func NewTable[T any, PT recordPtr[T]](client *storage.Client, name string, m *metrics.Metrics) *Table[T, PT] {
	return &Table[T, PT]{client: client, name: name, metrics: m}
}

func (t *Table[T, PT]) Name() string {
	return t.name
}

func (t *Table[T, PT]) readRows(ctx context.Context) ([]row[T], error) {
	raw, err := t.client.GetRows(ctx, t.name, Headers)
	if err != nil {
		return nil, err
	}
	return t.parseRows(raw), nil
}

// parseRows decodes the data rows of raw, skipping malformed ones.
func (t *Table[T, PT]) parseRows(raw [][]string) []row[T] {
	if len(raw) <= 1 {
		return nil
	}

	rows := make([]row[T], 0, len(raw)-1)
	for i, cells := range raw[1:] {
		pos := i + 2
		if len(cells) < 3 || cells[2] == "" {
			continue
		}

		var item T
		if err := json.Unmarshal([]byte(cells[2]), &item); err != nil {
			t.skip(pos, err)
			continue
		}

		rec := PT(&item)
		if rec.GetID() == "" {
			rec.SetID(cells[0])
		}
		if rec.GetClinicID() == "" && cells[1] != "" {
			rec.SetClinicID(cells[1])
		}
		if err := rec.Validate(); err != nil {
			t.skip(pos, err)
			continue
		}
		rows = append(rows, row[T]{pos: pos, item: &item})
	}
	return rows
}

func (t *Table[T, PT]) skip(pos int, err error) {
	log.Warn().Err(err).Str("sheet", t.name).Int("row", pos).Msg("skipping malformed row")
	if t.metrics != nil {
		t.metrics.MalformedRows.WithLabelValues(t.name).Inc()
	}
}

// List returns all records matching pred, or all records when pred is nil.
func (t *Table[T, PT]) List(ctx context.Context, pred func(*T) bool) ([]*T, error) {
	rows, err := t.readRows(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*T, 0, len(rows))
	for _, r := range rows {
		if pred == nil || pred(r.item) {
			items = append(items, r.item)
		}
	}
	return items, nil
}

// Find returns the first record matching pred, or nil.
func (t *Table[T, PT]) Find(ctx context.Context, pred func(*T) bool) (*T, error) {
	rows, err := t.readRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if pred(r.item) {
			return r.item, nil
		}
	}
	return nil, nil
}

// Upsert rewrites the row holding the record's id, or appends a new row.
func (t *Table[T, PT]) Upsert(ctx context.Context, item *T) error {
	rec := PT(item)
	if err := rec.Validate(); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}

	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to encode %s record: %w", t.name, err)
	}
	cells := []string{rec.GetID(), rec.GetClinicID(), string(data)}

	return t.client.WithTableLock(t.name, func() error {
		raw, err := t.client.GetRows(ctx, t.name, Headers)
		if err != nil {
			return err
		}
		if pos, ok := t.locate(raw, rec.GetID()); ok {
			return t.client.UpdateRow(ctx, t.name, Headers, pos, raw[pos-1][0], cells)
		}
		return t.client.AppendRow(ctx, t.name, Headers, cells)
	})
}

// locate finds the row holding id. Column A wins, so a malformed row is
// repaired in place instead of being shadowed by a new one; rows with an
// empty column A are matched on their decoded id.
func (t *Table[T, PT]) locate(raw [][]string, id string) (int, bool) {
	for i := 1; i < len(raw); i++ {
		if len(raw[i]) > 0 && raw[i][0] == id {
			return i + 1, true
		}
	}
	for _, r := range t.parseRows(raw) {
		if PT(r.item).GetID() == id {
			return r.pos, true
		}
	}
	return 0, false
}

// DeleteWhere removes every matching row in one batch and returns how many
// were deleted.
func (t *Table[T, PT]) DeleteWhere(ctx context.Context, pred func(*T) bool) (int, error) {
	var deleted int
	err := t.client.WithTableLock(t.name, func() error {
		rows, err := t.readRows(ctx)
		if err != nil {
			return err
		}
		targets := make(map[int]string)
		for _, r := range rows {
			if pred(r.item) {
				targets[r.pos] = PT(r.item).GetID()
			}
		}
		if len(targets) == 0 {
			return nil
		}
		if err := t.client.DeleteRows(ctx, t.name, Headers, targets); err != nil {
			return err
		}
		deleted = len(targets)
		return nil
	})
	return deleted, err
}
