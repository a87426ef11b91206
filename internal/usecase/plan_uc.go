package usecase

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/domain/model"
	"realestate-payments/internal/domain/ports/repository"
)

// Compile-time check
var _ PlanUseCase = (*planUC)(nil)

type PlanUseCase interface {
	List(ctx context.Context) ([]*model.Plan, error)
	Get(ctx context.Context, id string) (*model.Plan, error)
	// Upsert creates or replaces a plan; used by the seeder.
	Upsert(ctx context.Context, id, name, displayName string, price decimal.Decimal, maxAds *int) (*model.Plan, error)
}

type planUC struct {
	plans repository.PlanRepository
	log   zerolog.Logger
}

func NewPlanUseCase(plans repository.PlanRepository, logger *zerolog.Logger) *planUC {
	return &planUC{plans: plans, log: logger.With().Str("component", "PlanUseCase").Logger()}
}

func (u *planUC) List(ctx context.Context) ([]*model.Plan, error) {
	return u.plans.ListAll(ctx, nil)
}

func (u *planUC) Get(ctx context.Context, id string) (*model.Plan, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.plans.FindByID(ctx, nil, id)
}

func (u *planUC) Upsert(ctx context.Context, id, name, displayName string, price decimal.Decimal, maxAds *int) (*model.Plan, error) {
	plan, err := model.NewPlan(id, name, displayName, price, maxAds)
	if err != nil {
		return nil, err
	}
	if err := u.plans.Save(ctx, nil, plan); err != nil {
		return nil, err
	}
	u.log.Info().Str("plan_id", plan.ID).Str("price", plan.Price.StringFixed(2)).Msg("plan saved")
	return plan, nil
}
