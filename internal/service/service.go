// Package service holds helpers shared by the per-entity services.
package service

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dental-api/internal/repository"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
)

// RequireClinic fails with NotFound unless clinicID names an existing clinic.
func RequireClinic(ctx context.Context, clinics repository.ClinicRepository, clinicID string) error {
	if clinicID == "" {
		return apperrors.BadRequest("clinicId is required", nil)
	}
	clinic, err := clinics.Get(ctx, clinicID)
	if err != nil {
		return fmt.Errorf("failed to get clinic: %w", err)
	}
	if clinic == nil {
		return apperrors.NotFound("clinic", nil)
	}
	return nil
}

// Emit publishes "<resource>.<action>" for one record.
func Emit(ctx context.Context, pub event.Publisher, resource, action, id, clinicID string, payload interface{}) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event.Event{
		Type:       event.TypeFor(resource, action),
		Resource:   resource,
		ResourceID: id,
		ClinicID:   clinicID,
		Payload:    payload,
	})
}

// RequireDeleteKeys checks the identifiers a scoped delete needs.
func RequireDeleteKeys(id, clinicID string) error {
	if id == "" || clinicID == "" {
		return apperrors.BadRequest("missing id or clinicId", nil)
	}
	return nil
}
