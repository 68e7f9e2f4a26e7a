package ledger

import (
	"context"
	"testing"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		params  CreateUserParams
		wantErr bool
	}{
		{"valid", CreateUserParams{Email: " Ann@Example.com ", FullName: "Ann"}, false},
		{"staff role", CreateUserParams{Email: "sam@example.com", FullName: "Sam", Role: models.RoleStaff}, false},
		{"missing email", CreateUserParams{FullName: "Nobody"}, true},
		{"malformed email", CreateUserParams{Email: "not-an-email", FullName: "Bad"}, true},
		{"blank name", CreateUserParams{Email: "blank@example.com", FullName: "   "}, true},
		{"unknown role", CreateUserParams{Email: "root@example.com", FullName: "Root", Role: "superuser"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.svc.CreateUser(ctx, tt.params)
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, user.ReferralCode)
		})
	}

	user, err := f.svc.CreateUser(ctx, CreateUserParams{Email: " Mixed@Example.com", FullName: "Mixed"})
	require.NoError(t, err)
	assert.Equal(t, "mixed@example.com", user.Email)
	assert.Equal(t, models.RoleCustomer, user.Role)
}

func TestCreateRestaurant_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := func() CreateRestaurantParams {
		return CreateRestaurantParams{
			Name:                      "Khao Soi Corner",
			GuaranteedDiscountPercent: dec("5"),
			UplineRewardPercent:       dec("1"),
			MaxRedemptionPercent:      dec("20"),
			VirtualCurrencyExpiryDays: 30,
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *CreateRestaurantParams)
		wantErr bool
	}{
		{"valid", func(p *CreateRestaurantParams) {}, false},
		{"blank name", func(p *CreateRestaurantParams) { p.Name = "  " }, true},
		{"negative discount", func(p *CreateRestaurantParams) { p.GuaranteedDiscountPercent = dec("-0.5") }, true},
		{"reward above 100", func(p *CreateRestaurantParams) { p.UplineRewardPercent = dec("100.01") }, true},
		{"redemption at 100", func(p *CreateRestaurantParams) { p.MaxRedemptionPercent = dec("100") }, false},
		{"zero expiry days", func(p *CreateRestaurantParams) { p.VirtualCurrencyExpiryDays = 0 }, true},
		{"negative expiry days", func(p *CreateRestaurantParams) { p.VirtualCurrencyExpiryDays = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := valid()
			tt.mutate(&params)
			_, err := f.svc.CreateRestaurant(ctx, params)
			if tt.wantErr {
				assert.ErrorIs(t, err, store.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateBranch_RequiresName(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateBranch(context.Background(), f.restaurant.Id, " ")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}
