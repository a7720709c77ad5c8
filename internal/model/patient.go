package model

import (
	"github.com/jwalitptl/dental-api/pkg/validator"
)

type PatientStatus string

const (
	PatientStatusActive   PatientStatus = "active"
	PatientStatusInactive PatientStatus = "inactive"
)

type ToothCondition string

const (
	ToothHealthy  ToothCondition = "healthy"
	ToothProblem  ToothCondition = "problem"
	ToothTreating ToothCondition = "treating"
	ToothTreated  ToothCondition = "treated"
	ToothMissing  ToothCondition = "missing"
)

type ToothStatus struct {
	ToothNumber int            `json:"toothNumber" validate:"gt=0"`
	Status      ToothCondition `json:"status" validate:"required,oneof=healthy problem treating treated missing"`
}

type Patient struct {
	ClinicScoped
	Name  string `json:"name" db:"name" validate:"required"`
	Phone string `json:"phone" db:"phone"`
	Email string `json:"email" db:"email" validate:"omitempty,email"`
	// DateOfBirth is kept as sent by the client (usually YYYY-MM-DD).
	DateOfBirth string                `json:"dateOfBirth" db:"date_of_birth"`
	IsChild     bool                  `json:"isChild" db:"is_child"`
	Address     string                `json:"address" db:"address"`
	Notes       string                `json:"notes" db:"notes"`
	Teeth       JSONList[ToothStatus] `json:"teeth" db:"teeth" validate:"dive"`
	Services    JSONList[string]      `json:"services" db:"services"`
	Balance     float64               `json:"balance" db:"balance"`
	Status      PatientStatus         `json:"status" db:"status"`
	CreatedAt   Timestamp             `json:"createdAt" db:"created_at"`
	UpdatedAt   Timestamp             `json:"updatedAt" db:"updated_at"`
}

func (p *Patient) Validate() error {
	return validator.Struct(p)
}
