package sheets

import (
	"context"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	storage "github.com/jwalitptl/dental-api/internal/storage/sheets"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

const BackendName = "sheets"

// scopedRepo implements repository.ScopedRepository over a Table.
type scopedRepo[T any, PT recordPtr[T]] struct {
	table *Table[T, PT]
}

func newScoped[T any, PT recordPtr[T]](client *storage.Client, name string, m *metrics.Metrics) *scopedRepo[T, PT] {
	return &scopedRepo[T, PT]{table: NewTable[T, PT](client, name, m)}
}

func (r *scopedRepo[T, PT]) List(ctx context.Context, clinicID string) ([]*T, error) {
	return r.table.List(ctx, func(item *T) bool {
		return clinicID == "" || PT(item).GetClinicID() == clinicID
	})
}

func (r *scopedRepo[T, PT]) Get(ctx context.Context, id string) (*T, error) {
	return r.table.Find(ctx, func(item *T) bool {
		return PT(item).GetID() == id
	})
}

func (r *scopedRepo[T, PT]) Upsert(ctx context.Context, record *T) error {
	return r.table.Upsert(ctx, record)
}

func (r *scopedRepo[T, PT]) Delete(ctx context.Context, id, clinicID string) (bool, error) {
	n, err := r.table.DeleteWhere(ctx, func(item *T) bool {
		rec := PT(item)
		return rec.GetID() == id && rec.GetClinicID() == clinicID
	})
	return n > 0, err
}

type ClinicRepository struct {
	table *Table[model.Clinic, *model.Clinic]
}

func (r *ClinicRepository) List(ctx context.Context) ([]*model.Clinic, error) {
	return r.table.List(ctx, nil)
}

func (r *ClinicRepository) Get(ctx context.Context, id string) (*model.Clinic, error) {
	return r.table.Find(ctx, func(c *model.Clinic) bool { return c.ID == id })
}

func (r *ClinicRepository) GetByName(ctx context.Context, name string) (*model.Clinic, error) {
	return r.table.Find(ctx, func(c *model.Clinic) bool { return c.Name == name })
}

func (r *ClinicRepository) Upsert(ctx context.Context, clinic *model.Clinic) error {
	return r.table.Upsert(ctx, clinic)
}

func (r *ClinicRepository) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.table.DeleteWhere(ctx, func(c *model.Clinic) bool { return c.ID == id })
	return n > 0, err
}

type UserRepository struct {
	*scopedRepo[model.User, *model.User]
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	return r.table.Find(ctx, func(u *model.User) bool {
		return model.NormalizeEmail(u.Email) == email
	})
}

type VisitRepository struct {
	*scopedRepo[model.Visit, *model.Visit]
}

func (r *VisitRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.Visit, error) {
	return r.table.List(ctx, func(v *model.Visit) bool { return v.PatientID == patientID })
}

type PaymentRepository struct {
	*scopedRepo[model.Payment, *model.Payment]
}

func (r *PaymentRepository) ListByVisit(ctx context.Context, visitID string) ([]*model.Payment, error) {
	return r.table.List(ctx, func(p *model.Payment) bool { return p.VisitID == visitID })
}

type FileRepository struct {
	*scopedRepo[model.PatientFile, *model.PatientFile]
}

func (r *FileRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.PatientFile, error) {
	return r.table.List(ctx, func(f *model.PatientFile) bool { return f.PatientID == patientID })
}

// noTx runs fn directly; a spreadsheet has no transactions.
type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// New builds the sheet-backed repositories. Deletes do not cascade.
func New(client *storage.Client, m *metrics.Metrics) *repository.Repositories {
	return &repository.Repositories{
		Backend:  BackendName,
		Clinics:  &ClinicRepository{table: NewTable[model.Clinic](client, SheetClinics, m)},
		Users:    &UserRepository{newScoped[model.User](client, SheetUsers, m)},
		Doctors:  newScoped[model.Doctor](client, SheetDoctors, m),
		Services: newScoped[model.Service](client, SheetServices, m),
		Patients: newScoped[model.Patient](client, SheetPatients, m),
		Visits:   &VisitRepository{newScoped[model.Visit](client, SheetVisits, m)},
		Payments: &PaymentRepository{newScoped[model.Payment](client, SheetPayments, m)},
		Files:    &FileRepository{newScoped[model.PatientFile](client, SheetFiles, m)},
		Tx:       noTx{},
		Health:   client,
		Close:    func() error { return nil },
	}
}
