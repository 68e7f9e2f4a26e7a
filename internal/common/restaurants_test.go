package common

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"referral-ledger-go/internal/database"
	"referral-ledger-go/internal/ledger"
	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const seedYAML = `
restaurants:
  - name: Somtum House
    guaranteed_discount_percent: "5"
    upline_reward_percent: "1.5"
    max_redemption_percent: "20"
    virtual_currency_expiry_days: 90
    branches:
      - Silom
      - Ari
  - name: Noodle Bar
    upline_reward_percent: "2"
    virtual_currency_expiry_days: 30
`

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "restaurants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newEngine(t *testing.T) (*ledger.Service, *database.Service) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "common.db"),
		MaxOpenConns: 2,
		PingTimeout:  time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return ledger.NewService(db), db
}

func TestLoadRestaurantConfig(t *testing.T) {
	seeds, err := LoadRestaurantConfig(writeSeed(t, seedYAML))
	require.NoError(t, err)
	require.Len(t, seeds, 2)

	assert.Equal(t, "Somtum House", seeds[0].Name)
	assert.Equal(t, []string{"Silom", "Ari"}, seeds[0].Branches)

	params, err := seeds[0].params()
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1.5").Equal(params.UplineRewardPercent))
	assert.Equal(t, 90, params.VirtualCurrencyExpiryDays)
}

func TestLoadRestaurantConfig_Invalid(t *testing.T) {
	_, err := LoadRestaurantConfig(writeSeed(t, "restaurants:\n  - upline_reward_percent: \"1\"\n"))
	assert.Error(t, err)

	_, err = LoadRestaurantConfig(writeSeed(t, "restaurants:\n  - name: X\n    upline_reward_percent: lots\n"))
	assert.Error(t, err)

	_, err = LoadRestaurantConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeedRestaurants_Idempotent(t *testing.T) {
	engine, _ := newEngine(t)
	ctx := context.Background()

	seeds, err := LoadRestaurantConfig(writeSeed(t, seedYAML))
	require.NoError(t, err)

	created, err := SeedRestaurants(ctx, engine, seeds)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = SeedRestaurants(ctx, engine, seeds)
	require.NoError(t, err)
	assert.Zero(t, created)

	restaurants, err := engine.ListRestaurants(ctx)
	require.NoError(t, err)
	assert.Len(t, restaurants, 2)
}

func TestSeedRestaurants_RejectsMissingExpiry(t *testing.T) {
	engine, _ := newEngine(t)
	seeds, err := LoadRestaurantConfig(writeSeed(t, "restaurants:\n  - name: Forever Cafe\n    upline_reward_percent: \"1\"\n"))
	require.NoError(t, err)

	_, err = SeedRestaurants(context.Background(), engine, seeds)
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestInitializeUsers(t *testing.T) {
	engine, db := newEngine(t)
	ctx := context.Background()

	_, err := engine.CreateUser(ctx, ledger.CreateUserParams{Email: "alice@example.com", FullName: "Alice"})
	require.NoError(t, err)
	_, err = engine.CreateUser(ctx, ledger.CreateUserParams{Email: "bob@example.com", FullName: "Bob"})
	require.NoError(t, err)

	all, err := InitializeUsers(ctx, db, "", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := InitializeUsers(ctx, db, " Alice@Example.com ", zap.NewNop())
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "Alice", one[0].Name)

	_, err = InitializeUsers(ctx, db, "nobody@example.com", zap.NewNop())
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "2.50", FormatAmount(decimal.RequireFromString("2.5")))
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
}
