package services

import (
	"smartdalali_backend/internal/dto"

	"github.com/shopspring/decimal"
)

// PlanCatalog is the static agent subscription catalog.
func PlanCatalog() []dto.SubscriptionPlan {
	return []dto.SubscriptionPlan{
		{
			ID:          "monthly",
			Name:        "Monthly Plan",
			Price:       decimal.NewFromInt(50000),
			Description: "Perfect for getting started",
			Features: []string{
				"Unlimited property listings",
				"Priority customer support",
				"Advanced analytics",
				"Featured listing priority",
			},
			DurationDays: 30,
		},
		{
			ID:          "annual",
			Name:        "Annual Plan",
			Price:       decimal.NewFromInt(500000),
			Description: "Best value for serious agents",
			Features: []string{
				"Everything in Monthly plan",
				"2 months free",
				"Featured listings priority",
				"Dedicated account manager",
			},
			DurationDays: 365,
		},
	}
}
