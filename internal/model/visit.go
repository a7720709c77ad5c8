package model

import (
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/dental-api/pkg/validator"
)

type VisitStatus string

const (
	VisitStatusScheduled VisitStatus = "scheduled"
	VisitStatusCompleted VisitStatus = "completed"
	VisitStatusCancelled VisitStatus = "cancelled"
)

func (s VisitStatus) Valid() bool {
	switch s {
	case VisitStatusScheduled, VisitStatusCompleted, VisitStatusCancelled:
		return true
	}
	return false
}

// VisitService is one rendered service line. A bare JSON string decodes as
// {serviceId: s, quantity: 1}.
type VisitService struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
	Teeth     []int  `json:"teeth,omitempty"`
}

func (vs *VisitService) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*vs = VisitService{ServiceID: id, Quantity: 1}
		return nil
	}

	type plain VisitService
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("visit service must be a service id or an object: %w", err)
	}
	if p.Quantity == 0 {
		p.Quantity = 1
	}
	*vs = VisitService(p)
	return nil
}

type Visit struct {
	ClinicScoped
	PatientID     string                 `json:"patientId" db:"patient_id" validate:"required"`
	DoctorID      *string                `json:"doctorId" db:"doctor_id"`
	StartTime     Timestamp              `json:"startTime" db:"start_time"`
	EndTime       Timestamp              `json:"endTime" db:"end_time"`
	Services      JSONList[VisitService] `json:"services" db:"services" validate:"dive"`
	Cost          float64                `json:"cost" db:"cost" validate:"gte=0"`
	Notes         string                 `json:"notes" db:"notes"`
	Status        VisitStatus            `json:"status" db:"status" validate:"required,oneof=scheduled completed cancelled"`
	TreatedTeeth  JSONList[int]          `json:"treatedTeeth" db:"treated_teeth"`
	CashAmount    float64                `json:"cashAmount" db:"cash_amount"`
	EwalletAmount float64                `json:"ewalletAmount" db:"ewallet_amount"`
	CreatedAt     Timestamp              `json:"createdAt" db:"created_at"`
	UpdatedAt     Timestamp              `json:"updatedAt" db:"updated_at"`
}

func (v *Visit) Validate() error {
	if err := validator.Struct(v); err != nil {
		return err
	}
	if !v.StartTime.IsZero() && !v.EndTime.IsZero() && v.EndTime.Before(v.StartTime.Time) {
		return fmt.Errorf("endTime must not be before startTime")
	}
	return nil
}

type VisitStatusRequest struct {
	Status VisitStatus `json:"status" form:"status" validate:"required,oneof=scheduled completed cancelled"`
}
