package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Pricing holds purchase prices in UZS.
type Pricing struct {
	PostPrice         float64 `yaml:"post_price" validate:"gt=0"`
	PremiumMonthPrice float64 `yaml:"premium_month_price" validate:"gt=0"`
	SalonTopDayPrice  float64 `yaml:"salon_top_day_price" validate:"gt=0"`

	MaxPostCount     int `yaml:"max_post_count" validate:"min=1"`
	MaxPremiumMonths int `yaml:"max_premium_months" validate:"min=1"`
	MaxTopDays       int `yaml:"max_top_days" validate:"min=1"`
}

func DefaultPricing() Pricing {
	return Pricing{
		PostPrice:         10000,
		PremiumMonthPrice: 50000,
		SalonTopDayPrice:  20000,
		MaxPostCount:      50,
		MaxPremiumMonths:  12,
		MaxTopDays:        30,
	}
}

// LoadPricing reads the YAML pricing document at path. Keys missing from the
// file keep their default values; an empty path or a missing file yields
// the defaults.
func LoadPricing(path string) (Pricing, error) {
	p := DefaultPricing()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to read pricing file: %w", err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal pricing: %w", err)
	}
	if err := validator.New().Struct(p); err != nil {
		return p, fmt.Errorf("pricing validation failed: %w", err)
	}
	return p, nil
}

func (p Pricing) PostTotal(count int) float64 {
	return p.PostPrice * float64(count)
}

func (p Pricing) PremiumTotal(months int) float64 {
	return p.PremiumMonthPrice * float64(months)
}

func (p Pricing) TopTotal(days int) float64 {
	return p.SalonTopDayPrice * float64(days)
}
