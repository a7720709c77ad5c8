package model

import (
	"github.com/jwalitptl/dental-api/pkg/validator"
)

// PatientFile references a document stored elsewhere; File holds its URL.
type PatientFile struct {
	ClinicScoped
	PatientID  string    `json:"patientId" db:"patient_id" validate:"required"`
	Name       string    `json:"name" db:"name" validate:"required"`
	File       string    `json:"file" db:"file_url" validate:"required"`
	UploadedAt Timestamp `json:"uploadedAt" db:"uploaded_at"`
}

func (f *PatientFile) Validate() error {
	return validator.Struct(f)
}
