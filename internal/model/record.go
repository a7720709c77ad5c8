package model

// Record is implemented by every stored entity.
type Record interface {
	GetID() string
	SetID(id string)
	GetClinicID() string
	SetClinicID(clinicID string)
	Validate() error
}

// Entity names used for ids, events and error messages.
const (
	EntityClinic  = "clinic"
	EntityUser    = "user"
	EntityDoctor  = "doctor"
	EntityService = "service"
	EntityPatient = "patient"
	EntityVisit   = "visit"
	EntityPayment = "payment"
	EntityFile    = "file"
)

// ClinicScoped carries the id and clinic id shared by clinic-owned records.
type ClinicScoped struct {
	ID       string `json:"id" db:"id" validate:"required"`
	ClinicID string `json:"clinicId" db:"clinic_id" validate:"required"`
}

func (s *ClinicScoped) GetID() string { return s.ID }
func (s *ClinicScoped) SetID(id string) { s.ID = id }
func (s *ClinicScoped) GetClinicID() string { return s.ClinicID }
func (s *ClinicScoped) SetClinicID(id string) { s.ClinicID = id }
