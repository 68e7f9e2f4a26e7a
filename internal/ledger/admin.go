package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const referralCodeAttempts = 5

type CreateUserParams struct {
	Email    string      `validate:"required,email"`
	FullName string      `validate:"required"`
	Role     models.Role `validate:"omitempty,oneof=customer staff owner admin"`
}

type CreateRestaurantParams struct {
	Name                      string          `validate:"required"`
	GuaranteedDiscountPercent decimal.Decimal `validate:"gte=0,lte=100"`
	UplineRewardPercent       decimal.Decimal `validate:"gte=0,lte=100"`
	MaxRedemptionPercent      decimal.Decimal `validate:"gte=0,lte=100"`
	VirtualCurrencyExpiryDays int             `validate:"gte=1"`
}

// NewReferralCode returns eight upper-case hex characters.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func (s *Service) CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error) {
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))
	params.FullName = strings.TrimSpace(params.FullName)
	if err := validateParams(params); err != nil {
		return nil, err
	}
	email, name, role := params.Email, params.FullName, params.Role
	if role == "" {
		role = models.RoleCustomer
	}

	now := s.clock()
	user := models.User{
		Id:        uuid.New().String(),
		Email:     email,
		FullName:  name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var err error
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		user.ReferralCode = NewReferralCode()
		err = s.store.InsertUser(ctx, user)
		if !errors.Is(err, store.ErrDuplicateReferralCode) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUser(ctx context.Context, userId string) (*models.User, error) {
	return s.store.GetUserById(ctx, userId)
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.GetUsers(ctx)
}

func (s *Service) CreateRestaurant(ctx context.Context, params CreateRestaurantParams) (*models.Restaurant, error) {
	params.Name = strings.TrimSpace(params.Name)
	if err := validateParams(params); err != nil {
		return nil, err
	}

	restaurant := models.Restaurant{
		Id:                        uuid.New().String(),
		Name:                      params.Name,
		GuaranteedDiscountPercent: params.GuaranteedDiscountPercent,
		UplineRewardPercent:       params.UplineRewardPercent,
		MaxRedemptionPercent:      params.MaxRedemptionPercent,
		VirtualCurrencyExpiryDays: params.VirtualCurrencyExpiryDays,
		CreatedAt:                 s.clock(),
	}
	if err := s.store.InsertRestaurant(ctx, restaurant); err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (s *Service) GetRestaurant(ctx context.Context, restaurantId string) (*models.Restaurant, error) {
	return s.store.GetRestaurantById(ctx, restaurantId)
}

func (s *Service) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	return s.store.GetRestaurants(ctx)
}

func (s *Service) CreateBranch(ctx context.Context, restaurantId, name string) (*models.Branch, error) {
	if _, err := s.store.GetRestaurantById(ctx, restaurantId); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required"); err != nil {
		return nil, fmt.Errorf("%w: branch name cannot be empty", store.ErrInvalidInput)
	}

	branch := models.Branch{
		Id:           uuid.New().String(),
		RestaurantId: restaurantId,
		Name:         name,
		CreatedAt:    s.clock(),
	}
	if err := s.store.InsertBranch(ctx, branch); err != nil {
		return nil, err
	}
	return &branch, nil
}
