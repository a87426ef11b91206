//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"realestate-payments/internal/domain"
	"realestate-payments/internal/usecase"
)

func TestPlanUseCase(t *testing.T) {
	ctx := context.Background()
	uc := usecase.NewPlanUseCase(NewMockPlanRepo(testPlans()...), newTestLogger())

	t.Run("should list plans by price", func(t *testing.T) {
		plans, err := uc.List(ctx)
		if err != nil || len(plans) != 3 {
			t.Fatalf("expected 3 plans, got %d / %v", len(plans), err)
		}
		if plans[0].ID != "1" || plans[2].ID != "3" {
			t.Errorf("unexpected order %s..%s", plans[0].ID, plans[2].ID)
		}
	})

	t.Run("should get one plan", func(t *testing.T) {
		p, err := uc.Get(ctx, " 2 ")
		if err != nil || p.DisplayName != "Premium" {
			t.Fatalf("expected Premium, got %v / %v", p, err)
		}
		if _, err := uc.Get(ctx, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("should upsert valid plans only", func(t *testing.T) {
		p, err := uc.Upsert(ctx, "2", "premium", "Premium Plus", decimal.RequireFromString("59.90"), nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		got, _ := uc.Get(ctx, "2")
		if got.DisplayName != "Premium Plus" || !got.Price.Equal(p.Price) {
			t.Errorf("expected the plan to be replaced, got %+v", got)
		}
		if _, err := uc.Upsert(ctx, "4", "free", "Free", decimal.Zero, nil); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for a zero price, got %v", err)
		}
	})
}
