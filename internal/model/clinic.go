package model

import (
	"github.com/jwalitptl/dental-api/pkg/validator"
)

type Clinic struct {
	ID        string    `json:"id" db:"id" validate:"required"`
	Name      string    `json:"name" db:"name" validate:"required"`
	CreatedAt Timestamp `json:"createdAt" db:"created_at"`
}

func (c *Clinic) GetID() string { return c.ID }
func (c *Clinic) SetID(id string) { c.ID = id }
func (c *Clinic) GetClinicID() string { return "" }

// SetClinicID is a no-op: clinics are the root of the scope.
func (c *Clinic) SetClinicID(string) {}

func (c *Clinic) Validate() error {
	return validator.Struct(c)
}
