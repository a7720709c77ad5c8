package model

import (
	"math"

	"github.com/jwalitptl/dental-api/pkg/validator"
)

type PaymentMethod string

const (
	PaymentMethodCash    PaymentMethod = "cash"
	PaymentMethodEwallet PaymentMethod = "ewallet"
)

type Payment struct {
	ClinicScoped
	VisitID string         `json:"visitId" db:"visit_id" validate:"required"`
	Amount  float64        `json:"amount" db:"amount"`
	Date    Timestamp      `json:"date" db:"date"`
	Method  *PaymentMethod `json:"method" db:"method" validate:"omitempty,oneof=cash ewallet"`
}

func (p *Payment) Validate() error {
	return validator.Struct(p)
}

// PaymentTotals are the per-method sums cached on a visit.
type PaymentTotals struct {
	Cash    float64 `json:"cashAmount"`
	Ewallet float64 `json:"ewalletAmount"`
}

// ComputeTotals sums payments by method. Payments without a method count
// toward neither total. Both sums are rounded to cents.
func ComputeTotals(payments []*Payment) PaymentTotals {
	var t PaymentTotals
	for _, p := range payments {
		if p.Method == nil {
			continue
		}
		switch *p.Method {
		case PaymentMethodCash:
			t.Cash += p.Amount
		case PaymentMethodEwallet:
			t.Ewallet += p.Amount
		}
	}
	t.Cash = RoundCents(t.Cash)
	t.Ewallet = RoundCents(t.Ewallet)
	return t
}

func RoundCents(x float64) float64 {
	return math.Round(x*100) / 100
}

// Apply copies the totals onto v.
func (t PaymentTotals) Apply(v *Visit) {
	v.CashAmount = t.Cash
	v.EwalletAmount = t.Ewallet
}
