package sqlite

import (
	"context"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

const (
	tableClinics  = "clinics"
	tableUsers    = "users"
	tableDoctors  = "doctors"
	tableServices = "services"
	tablePatients = "patients"
	tableVisits   = "visits"
	tablePayments = "payments"
	tableFiles    = "patient_files"
)

type ClinicRepository struct {
	base baseRepository[model.Clinic, *model.Clinic]
}

func NewClinicRepository(db *sqlx.DB, m *metrics.Metrics) *ClinicRepository {
	return &ClinicRepository{base: baseRepository[model.Clinic, *model.Clinic]{
		db: db, table: tableClinics, metrics: m,
		columns: func(c *model.Clinic) goqu.Record {
			return goqu.Record{"id": c.ID, "name": c.Name, "created_at": c.CreatedAt}
		},
	}}
}

func (r *ClinicRepository) List(ctx context.Context) ([]*model.Clinic, error) {
	return r.base.selectWhere(ctx, "list")
}

func (r *ClinicRepository) Get(ctx context.Context, id string) (*model.Clinic, error) {
	return r.base.Get(ctx, id)
}

func (r *ClinicRepository) GetByName(ctx context.Context, name string) (*model.Clinic, error) {
	return r.base.getWhere(ctx, "get_by_name", goqu.C("name").Eq(name))
}

func (r *ClinicRepository) Upsert(ctx context.Context, clinic *model.Clinic) error {
	return r.base.Upsert(ctx, clinic)
}

// Delete removes the clinic and, through foreign keys, everything it owns.
func (r *ClinicRepository) Delete(ctx context.Context, id string) (bool, error) {
	return r.base.deleteWhere(ctx, goqu.C("id").Eq(id))
}

type UserRepository struct {
	baseRepository[model.User, *model.User]
}

func NewUserRepository(db *sqlx.DB, m *metrics.Metrics) *UserRepository {
	return &UserRepository{baseRepository[model.User, *model.User]{
		db: db, table: tableUsers, metrics: m,
		columns: func(u *model.User) goqu.Record {
			return goqu.Record{
				"id":          u.ID,
				"email":       model.NormalizeEmail(u.Email),
				"password":    u.Password,
				"phone":       u.Phone,
				"clinic_id":   u.ClinicID,
				"proficiency": u.Proficiency,
				"role":        string(u.Role),
				"created_at":  u.CreatedAt,
			}
		},
	}}
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getWhere(ctx, "get_by_email", goqu.C("email").Eq(model.NormalizeEmail(email)))
}

func NewDoctorRepository(db *sqlx.DB, m *metrics.Metrics) repository.DoctorRepository {
	return &baseRepository[model.Doctor, *model.Doctor]{
		db: db, table: tableDoctors, metrics: m,
		columns: func(d *model.Doctor) goqu.Record {
			return goqu.Record{
				"id":             d.ID,
				"name":           d.Name,
				"specialization": d.Specialization,
				"email":          d.Email,
				"phone":          d.Phone,
				"color":          d.Color,
				"clinic_id":      d.ClinicID,
				"user_id":        nullable(d.UserID),
			}
		},
	}
}

func NewServiceRepository(db *sqlx.DB, m *metrics.Metrics) repository.ServiceRepository {
	return &baseRepository[model.Service, *model.Service]{
		db: db, table: tableServices, metrics: m,
		columns: func(s *model.Service) goqu.Record {
			return goqu.Record{
				"id":            s.ID,
				"name":          s.Name,
				"default_price": s.DefaultPrice,
				"clinic_id":     s.ClinicID,
			}
		},
	}
}

func NewPatientRepository(db *sqlx.DB, m *metrics.Metrics) repository.PatientRepository {
	return &baseRepository[model.Patient, *model.Patient]{
		db: db, table: tablePatients, metrics: m,
		columns: func(p *model.Patient) goqu.Record {
			return goqu.Record{
				"id":            p.ID,
				"name":          p.Name,
				"phone":         p.Phone,
				"email":         p.Email,
				"date_of_birth": p.DateOfBirth,
				"is_child":      p.IsChild,
				"address":       p.Address,
				"notes":         p.Notes,
				"teeth":         p.Teeth,
				"services":      p.Services,
				"balance":       p.Balance,
				"status":        string(p.Status),
				"clinic_id":     p.ClinicID,
				"created_at":    p.CreatedAt,
				"updated_at":    p.UpdatedAt,
			}
		},
	}
}

type VisitRepository struct {
	baseRepository[model.Visit, *model.Visit]
}

func NewVisitRepository(db *sqlx.DB, m *metrics.Metrics) *VisitRepository {
	return &VisitRepository{baseRepository[model.Visit, *model.Visit]{
		db: db, table: tableVisits, metrics: m,
		columns: func(v *model.Visit) goqu.Record {
			return goqu.Record{
				"id":             v.ID,
				"patient_id":     v.PatientID,
				"doctor_id":      nullable(v.DoctorID),
				"clinic_id":      v.ClinicID,
				"start_time":     v.StartTime,
				"end_time":       v.EndTime,
				"services":       v.Services,
				"cost":           v.Cost,
				"notes":          v.Notes,
				"status":         string(v.Status),
				"treated_teeth":  v.TreatedTeeth,
				"cash_amount":    v.CashAmount,
				"ewallet_amount": v.EwalletAmount,
				"created_at":     v.CreatedAt,
				"updated_at":     v.UpdatedAt,
			}
		},
	}}
}

func (r *VisitRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.Visit, error) {
	return r.selectWhere(ctx, "list_by_patient", goqu.C("patient_id").Eq(patientID))
}

type PaymentRepository struct {
	baseRepository[model.Payment, *model.Payment]
}

func NewPaymentRepository(db *sqlx.DB, m *metrics.Metrics) *PaymentRepository {
	return &PaymentRepository{baseRepository[model.Payment, *model.Payment]{
		db: db, table: tablePayments, metrics: m,
		columns: func(p *model.Payment) goqu.Record {
			var method interface{}
			if p.Method != nil {
				method = string(*p.Method)
			}
			return goqu.Record{
				"id":        p.ID,
				"visit_id":  p.VisitID,
				"clinic_id": p.ClinicID,
				"amount":    p.Amount,
				"date":      p.Date,
				"method":    method,
			}
		},
	}}
}

func (r *PaymentRepository) ListByVisit(ctx context.Context, visitID string) ([]*model.Payment, error) {
	return r.selectWhere(ctx, "list_by_visit", goqu.C("visit_id").Eq(visitID))
}

type FileRepository struct {
	baseRepository[model.PatientFile, *model.PatientFile]
}

func NewFileRepository(db *sqlx.DB, m *metrics.Metrics) *FileRepository {
	return &FileRepository{baseRepository[model.PatientFile, *model.PatientFile]{
		db: db, table: tableFiles, metrics: m,
		columns: func(f *model.PatientFile) goqu.Record {
			return goqu.Record{
				"id":          f.ID,
				"patient_id":  f.PatientID,
				"clinic_id":   f.ClinicID,
				"name":        f.Name,
				"file_url":    f.File,
				"uploaded_at": f.UploadedAt,
			}
		},
	}}
}

func (r *FileRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.PatientFile, error) {
	return r.selectWhere(ctx, "list_by_patient", goqu.C("patient_id").Eq(patientID))
}

type pinger struct {
	db *sqlx.DB
}

func (p pinger) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return wrapErr(err)
	}
	return nil
}

// New builds the SQLite repositories. Deletes cascade through foreign keys.
func New(db *sqlx.DB, m *metrics.Metrics) *repository.Repositories {
	return &repository.Repositories{
		Backend:  BackendName,
		Clinics:  NewClinicRepository(db, m),
		Users:    NewUserRepository(db, m),
		Doctors:  NewDoctorRepository(db, m),
		Services: NewServiceRepository(db, m),
		Patients: NewPatientRepository(db, m),
		Visits:   NewVisitRepository(db, m),
		Payments: NewPaymentRepository(db, m),
		Files:    NewFileRepository(db, m),
		Tx:       NewTxManager(db),
		Health:   pinger{db: db},
		Close:    db.Close,
	}
}
