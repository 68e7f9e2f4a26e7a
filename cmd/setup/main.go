package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"referral-ledger-go/internal/common"
	"referral-ledger-go/internal/config"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger(os.Getenv("LOG_LEVEL"))
	defer loggerCleanup()

	restaurantsFlag := flag.String("restaurants", "", "Path to the restaurant seed file (default: RESTAURANTS_FILE)")
	schemaOnly := flag.Bool("schema-only", false, "Create or migrate the schema without seeding restaurants")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Opening the store creates or migrates the schema
	zap.L().Info("Initializing store", zap.String("backend", cfg.Backend))
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	if *schemaOnly {
		zap.L().Info("Schema ready")
		return
	}

	restaurantsFile := cfg.RestaurantsFile
	if *restaurantsFlag != "" {
		restaurantsFile = *restaurantsFlag
	}

	zap.L().Info("Loading restaurant configuration", zap.String("file", restaurantsFile))
	seeds, err := common.LoadRestaurantConfig(restaurantsFile)
	if err != nil {
		zap.L().Fatal("Failed to load restaurant config", zap.Error(err))
	}

	created, err := common.SeedRestaurants(ctx, services.Engine, seeds)
	if err != nil {
		zap.L().Fatal("Failed to seed restaurants", zap.Int("created", created), zap.Error(err))
	}

	restaurants, err := services.Engine.ListRestaurants(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list restaurants", zap.Error(err))
	}

	common.PrintHeader("RESTAURANTS", common.DefaultWidth)
	for i, r := range restaurants {
		isLast := i == len(restaurants)-1
		fmt.Printf("%s%s (%s)\n", common.BoxPrefix(isLast), r.Name, r.Id)
		detail := common.BoxDetailPrefix(isLast)
		common.PrintKeyValue(detail, "discount", r.GuaranteedDiscountPercent.String()+"%")
		common.PrintKeyValue(detail, "reward", r.UplineRewardPercent.String()+"%")
		common.PrintKeyValue(detail, "max redeem", r.MaxRedemptionPercent.String()+"%")
		common.PrintKeyValue(detail, "expiry days", fmt.Sprintf("%d", r.VirtualCurrencyExpiryDays))
	}
	common.PrintFooter(fmt.Sprintf("SUMMARY: %d created, %d total", created, len(restaurants)), common.DefaultWidth)

	zap.L().Info("Setup complete",
		zap.Int("restaurants_created", created),
		zap.Int("restaurants_total", len(restaurants)))
}
