package model

import (
	"github.com/jwalitptl/dental-api/pkg/validator"
)

const DefaultDoctorColor = "blue"

type Doctor struct {
	ClinicScoped
	Name           string  `json:"name" db:"name" validate:"required"`
	Specialization string  `json:"specialization" db:"specialization"`
	Email          string  `json:"email" db:"email" validate:"omitempty,email"`
	Phone          string  `json:"phone" db:"phone"`
	Color          string  `json:"color" db:"color" validate:"required"`
	UserID         *string `json:"userId" db:"user_id"`
}

func (d *Doctor) Validate() error {
	return validator.Struct(d)
}
