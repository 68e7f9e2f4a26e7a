package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"referral-ledger-go/internal/ledger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// RestaurantConfig is one restaurant in the seed file. Percentages are
// strings so they keep their exact decimal value.
type RestaurantConfig struct {
	Name                      string   `yaml:"name"`
	GuaranteedDiscountPercent string   `yaml:"guaranteed_discount_percent"`
	UplineRewardPercent       string   `yaml:"upline_reward_percent"`
	MaxRedemptionPercent      string   `yaml:"max_redemption_percent"`
	VirtualCurrencyExpiryDays int      `yaml:"virtual_currency_expiry_days"`
	Branches                  []string `yaml:"branches"`
}

type RestaurantsConfig struct {
	Restaurants []RestaurantConfig `yaml:"restaurants"`
}

func LoadRestaurantConfig(restaurantsFile string) ([]RestaurantConfig, error) {
	var restaurantsPath string
	if filepath.IsAbs(restaurantsFile) {
		restaurantsPath = restaurantsFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		restaurantsPath = filepath.Join(wd, restaurantsFile)
	}

	data, err := os.ReadFile(restaurantsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", restaurantsFile, err)
	}

	var config RestaurantsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", restaurantsFile, err)
	}

	for i, r := range config.Restaurants {
		if strings.TrimSpace(r.Name) == "" {
			return nil, fmt.Errorf("restaurant at index %d missing name", i)
		}
		if _, err := r.params(); err != nil {
			return nil, fmt.Errorf("restaurant %q: %w", r.Name, err)
		}
	}

	return config.Restaurants, nil
}

func (r RestaurantConfig) params() (ledger.CreateRestaurantParams, error) {
	params := ledger.CreateRestaurantParams{
		Name:                      r.Name,
		VirtualCurrencyExpiryDays: r.VirtualCurrencyExpiryDays,
	}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"guaranteed_discount_percent", r.GuaranteedDiscountPercent, &params.GuaranteedDiscountPercent},
		{"upline_reward_percent", r.UplineRewardPercent, &params.UplineRewardPercent},
		{"max_redemption_percent", r.MaxRedemptionPercent, &params.MaxRedemptionPercent},
	} {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return params, fmt.Errorf("invalid %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return params, nil
}

// SeedRestaurants creates every restaurant in seeds that does not exist yet,
// matched by name, together with its branches. It returns how many
// restaurants were created.
func SeedRestaurants(ctx context.Context, engine *ledger.Service, seeds []RestaurantConfig) (int, error) {
	existing, err := engine.ListRestaurants(ctx)
	if err != nil {
		return 0, err
	}
	known := make(map[string]bool, len(existing))
	for _, r := range existing {
		known[strings.ToLower(r.Name)] = true
	}

	created := 0
	for _, seed := range seeds {
		if known[strings.ToLower(strings.TrimSpace(seed.Name))] {
			zap.L().Info("Restaurant already exists, skipping", zap.String("name", seed.Name))
			continue
		}

		params, err := seed.params()
		if err != nil {
			return created, err
		}
		restaurant, err := engine.CreateRestaurant(ctx, params)
		if err != nil {
			return created, fmt.Errorf("unable to create restaurant %q: %w", seed.Name, err)
		}
		for _, name := range seed.Branches {
			if _, err := engine.CreateBranch(ctx, restaurant.Id, name); err != nil {
				return created, fmt.Errorf("unable to create branch %q for %q: %w", name, seed.Name, err)
			}
		}

		zap.L().Info("Created restaurant",
			zap.String("id", restaurant.Id),
			zap.String("name", restaurant.Name),
			zap.Int("branches", len(seed.Branches)))
		known[strings.ToLower(restaurant.Name)] = true
		created++
	}
	return created, nil
}
