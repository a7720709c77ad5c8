package model

import (
	"github.com/jwalitptl/dental-api/pkg/validator"
)

// Service is a billable treatment offered by a clinic.
type Service struct {
	ClinicScoped
	Name         string  `json:"name" db:"name" validate:"required"`
	DefaultPrice float64 `json:"defaultPrice" db:"default_price" validate:"gte=0"`
}

func (s *Service) Validate() error {
	return validator.Struct(s)
}
