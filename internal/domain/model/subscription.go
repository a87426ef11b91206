package model

import (
	"time"

	"realestate-payments/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// SubscriptionPeriod is the fixed validity window of a subscription; there is no renewal.
const SubscriptionPeriod = 30 * 24 * time.Hour

// UserSubscription represents a user's entitlement to a plan.
type UserSubscription struct {
	ID          string
	UserID      string
	PlanID      string
	PaymentID   string // back-reference to the approved payment
	Status      SubscriptionStatus
	StartDate   time.Time
	EndDate     time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
}

// NewUserSubscription creates an active subscription starting at now.
func NewUserSubscription(id, userID, planID, paymentID string, now time.Time) (*UserSubscription, error) {
	if id == "" || userID == "" || planID == "" || paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &UserSubscription{
		ID:        id,
		UserID:    userID,
		PlanID:    planID,
		PaymentID: paymentID,
		Status:    SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.Add(SubscriptionPeriod),
		CreatedAt: now,
	}, nil
}

func (s *UserSubscription) IsActive() bool {
	return s != nil && s.Status == SubscriptionStatusActive
}
