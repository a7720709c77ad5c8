package payment

import (
	"context"
	"fmt"

	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/service"
	apperrors "github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/ids"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

type PaymentServicer interface {
	ListPayments(ctx context.Context, visitID, clinicID string) ([]*model.Payment, error)
	GetPayment(ctx context.Context, id string) (*model.Payment, error)
	UpsertPayment(ctx context.Context, payment *model.Payment) (*model.Payment, error)
	DeletePayment(ctx context.Context, id string) error
}

type Service struct {
	repos     *repository.Repositories
	publisher event.Publisher
	metrics   *metrics.Metrics
}

func NewService(repos *repository.Repositories, publisher event.Publisher, m *metrics.Metrics) *Service {
	return &Service{
		repos:     repos,
		publisher: publisher,
		metrics:   m,
	}
}

func (s *Service) ListPayments(ctx context.Context, visitID, clinicID string) ([]*model.Payment, error) {
	if visitID == "" {
		payments, err := s.repos.Payments.List(ctx, clinicID)
		if err != nil {
			return nil, fmt.Errorf("failed to list payments: %w", err)
		}
		return payments, nil
	}

	payments, err := s.repos.Payments.ListByVisit(ctx, visitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if clinicID == "" {
		return payments, nil
	}
	out := make([]*model.Payment, 0, len(payments))
	for _, p := range payments {
		if p.ClinicID == clinicID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) GetPayment(ctx context.Context, id string) (*model.Payment, error) {
	payment, err := s.repos.Payments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFound("payment", nil)
	}
	return payment, nil
}

// UpsertPayment stores the payment and recomputes the totals of its visit,
// and of the previous visit when the payment moved.
func (s *Service) UpsertPayment(ctx context.Context, payment *model.Payment) (*model.Payment, error) {
	if payment.VisitID == "" {
		return nil, apperrors.BadRequest("visitId is required", nil)
	}
	if payment.Method != nil && *payment.Method == "" {
		payment.Method = nil
	}

	var touched []*model.Visit
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		visit, err := s.repos.Visits.Get(ctx, payment.VisitID)
		if err != nil {
			return fmt.Errorf("failed to get visit: %w", err)
		}
		if visit == nil {
			return apperrors.NotFound("visit", nil)
		}

		var previous *model.Payment
		if payment.ID != "" {
			if previous, err = s.repos.Payments.Get(ctx, payment.ID); err != nil {
				return fmt.Errorf("failed to get payment: %w", err)
			}
		} else {
			payment.ID = ids.New(ids.Payment)
		}

		payment.ClinicID = visit.ClinicID
		if payment.Date.IsZero() && previous != nil {
			payment.Date = previous.Date
		}
		if payment.Date.IsZero() {
			payment.Date = model.Now()
		}

		if err := s.repos.Payments.Upsert(ctx, payment); err != nil {
			return fmt.Errorf("failed to upsert payment: %w", err)
		}

		if err := s.recompute(ctx, visit); err != nil {
			return err
		}
		touched = append(touched, visit)

		if previous != nil && previous.VisitID != visit.ID {
			old, err := s.repos.Visits.Get(ctx, previous.VisitID)
			if err != nil {
				return fmt.Errorf("failed to get visit: %w", err)
			}
			if old != nil {
				if err := s.recompute(ctx, old); err != nil {
					return err
				}
				touched = append(touched, old)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	service.Emit(ctx, s.publisher, model.EntityPayment, event.ActionUpserted, payment.ID, payment.ClinicID, payment)
	s.emitTotals(ctx, touched...)
	return payment, nil
}

func (s *Service) DeletePayment(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.BadRequest("missing id", nil)
	}

	var (
		payment *model.Payment
		visit   *model.Visit
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if payment, err = s.GetPayment(ctx, id); err != nil {
			return err
		}

		deleted, err := s.repos.Payments.Delete(ctx, payment.ID, payment.ClinicID)
		if err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		if !deleted {
			return apperrors.NotFound("payment", nil)
		}

		if visit, err = s.repos.Visits.Get(ctx, payment.VisitID); err != nil {
			return fmt.Errorf("failed to get visit: %w", err)
		}
		if visit == nil {
			return nil
		}
		return s.recompute(ctx, visit)
	})
	if err != nil {
		return err
	}

	service.Emit(ctx, s.publisher, model.EntityPayment, event.ActionDeleted, payment.ID, payment.ClinicID, nil)
	if visit != nil {
		s.emitTotals(ctx, visit)
	}
	return nil
}

// recompute sets the visit's per-method totals from its stored payments.
func (s *Service) recompute(ctx context.Context, visit *model.Visit) error {
	payments, err := s.repos.Payments.ListByVisit(ctx, visit.ID)
	if err != nil {
		return fmt.Errorf("failed to list payments: %w", err)
	}

	model.ComputeTotals(payments).Apply(visit)
	visit.UpdatedAt = model.Now()

	if err := s.repos.Visits.Upsert(ctx, visit); err != nil {
		return fmt.Errorf("failed to update visit totals: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TotalsRecomputed.Inc()
	}
	return nil
}

func (s *Service) emitTotals(ctx context.Context, visits ...*model.Visit) {
	if s.publisher == nil {
		return
	}
	for _, v := range visits {
		s.publisher.Publish(ctx, event.Event{
			Type:       event.VisitTotalsUpdated,
			Resource:   model.EntityVisit,
			ResourceID: v.ID,
			ClinicID:   v.ClinicID,
			Payload: model.PaymentTotals{
				Cash:    v.CashAmount,
				Ewallet: v.EwalletAmount,
			},
		})
	}
}
