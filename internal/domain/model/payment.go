package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"  // preference created; awaiting provider outcome
	PaymentStatusApproved PaymentStatus = "approved" // provider approved the charge
	PaymentStatusRejected PaymentStatus = "rejected" // provider rejected or cancelled the charge
)

// PaymentMethodMercadoPago is the only provider this service charges through.
const PaymentMethodMercadoPago = "mercadopago"

// IsTerminal reports whether no further transition is accepted.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusApproved || s == PaymentStatusRejected
}

// CanTransitionTo encodes the lattice pending -> {approved, rejected}.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next.IsTerminal()
}

// PaymentStatusFromProvider maps a Mercado Pago payment status onto the local lattice.
// Anything that is not a final outcome (in_process, authorized, in_mediation...) stays pending.
func PaymentStatusFromProvider(raw string) PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "approved":
		return PaymentStatusApproved
	case "rejected", "cancelled":
		return PaymentStatusRejected
	default:
		return PaymentStatusPending
	}
}

// Payment records one checkout attempt.
type Payment struct {
	ID                string          // UUID, generated before the preference is requested
	UserID            string          // owner
	PlanID            string          // plans.id
	Amount            decimal.Decimal // immutable after creation
	Currency          string          // single configured code, e.g. "ARS"
	Status            PaymentStatus
	Method            string  // always PaymentMethodMercadoPago
	PreferenceID      string  // checkout preference id
	ExternalPaymentID *string // provider payment id, attached once a checkout attempt happens
	Description       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewPayment builds a pending payment for the given plan and preference.
func NewPayment(id, userID string, plan *Plan, currency, preferenceID string, now time.Time) (*Payment, error) {
	if id == "" || userID == "" || plan.IsZero() || preferenceID == "" || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Payment{
		ID:           id,
		UserID:       userID,
		PlanID:       plan.ID,
		Amount:       plan.Price,
		Currency:     currency,
		Status:       PaymentStatusPending,
		Method:       PaymentMethodMercadoPago,
		PreferenceID: preferenceID,
		Description:  PaymentDescription(plan),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PaymentDescription is shown on receipts and in the admin API. The plan id lives in
// its own column; the text is never parsed back.
func PaymentDescription(plan *Plan) string {
	return fmt.Sprintf("Plan %s (plan_id=%s)", plan.DisplayName, plan.ID)
}

// ExternalReference ties a provider payment back to this service.
type ExternalReference struct {
	PlanID    string
	UserID    string
	PaymentID string
}

func (r ExternalReference) String() string {
	return fmt.Sprintf("plan:%s|user:%s|payment:%s", r.PlanID, r.UserID, r.PaymentID)
}

// ParseExternalReference reads back what ExternalReference.String wrote.
func ParseExternalReference(s string) (ExternalReference, error) {
	var ref ExternalReference
	for _, part := range strings.Split(s, "|") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			return ExternalReference{}, fmt.Errorf("%w: malformed external reference %q", domain.ErrInvalidArgument, s)
		}
		switch k {
		case "plan":
			ref.PlanID = v
		case "user":
			ref.UserID = v
		case "payment":
			ref.PaymentID = v
		}
	}
	if ref.PaymentID == "" {
		return ExternalReference{}, fmt.Errorf("%w: external reference without payment id", domain.ErrInvalidArgument)
	}
	return ref, nil
}
