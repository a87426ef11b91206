package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/domain"
)

// Plan is immutable pricing reference data. Price carries no currency; the
// currency is fixed by configuration.
type Plan struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"display_name"`
	Price       decimal.Decimal `json:"price"`
	MaxAds      *int            `json:"max_ads,omitempty"` // nil means unbounded
	CreatedAt   time.Time       `json:"created_at"`
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Purchasable reports whether a checkout can be opened for the plan.
func (p *Plan) Purchasable() bool {
	return !p.IsZero() && strings.TrimSpace(p.DisplayName) != "" && p.Price.IsPositive()
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name, displayName string, price decimal.Decimal, maxAds *int) (*Plan, error) {
	if id == "" || name == "" || strings.TrimSpace(displayName) == "" || !price.IsPositive() {
		return nil, domain.ErrInvalidArgument
	}
	if maxAds != nil && *maxAds < 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:          id,
		Name:        name,
		DisplayName: displayName,
		Price:       price,
		MaxAds:      maxAds,
		CreatedAt:   time.Now(),
	}, nil
}
