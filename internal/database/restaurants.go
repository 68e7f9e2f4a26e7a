package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

func scanRestaurant(row rowScanner) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	err := row.Scan(
		&restaurant.Id,
		&restaurant.Name,
		&restaurant.GuaranteedDiscountPercent,
		&restaurant.UplineRewardPercent,
		&restaurant.MaxRedemptionPercent,
		&restaurant.VirtualCurrencyExpiryDays,
		&restaurant.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &restaurant, nil
}

func (r *Repo) InsertRestaurant(ctx context.Context, restaurant models.Restaurant) error {
	_, err := r.q.ExecContext(ctx, queryInsertRestaurant,
		restaurant.Id,
		restaurant.Name,
		restaurant.GuaranteedDiscountPercent.String(),
		restaurant.UplineRewardPercent.String(),
		restaurant.MaxRedemptionPercent.String(),
		restaurant.VirtualCurrencyExpiryDays,
		restaurant.CreatedAt.UTC(),
	)
	if err != nil {
		zap.L().Error("Failed to insert restaurant", zap.String("id", restaurant.Id), zap.Error(err))
		return fmt.Errorf("unable to insert restaurant: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetRestaurantById(ctx context.Context, restaurantId string) (*models.Restaurant, error) {
	restaurant, err := scanRestaurant(r.q.QueryRowContext(ctx, queryGetRestaurantById, restaurantId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrRestaurantNotFound, restaurantId)
		}
		return nil, fmt.Errorf("unable to query restaurant: %w", translateError(err))
	}
	return restaurant, nil
}

func (r *Repo) GetRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := r.q.QueryContext(ctx, queryGetRestaurants)
	if err != nil {
		return nil, fmt.Errorf("unable to query restaurants: %w", translateError(err))
	}
	defer closeRows(rows)

	var restaurants []models.Restaurant
	for rows.Next() {
		restaurant, err := scanRestaurant(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan restaurant row: %w", err)
		}
		restaurants = append(restaurants, *restaurant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating restaurant rows: %w", err)
	}
	return restaurants, nil
}

func (r *Repo) InsertBranch(ctx context.Context, branch models.Branch) error {
	_, err := r.q.ExecContext(ctx, queryInsertBranch, branch.Id, branch.RestaurantId, branch.Name, branch.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert branch: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetBranchById(ctx context.Context, branchId string) (*models.Branch, error) {
	var branch models.Branch
	err := r.q.QueryRowContext(ctx, queryGetBranchById, branchId).Scan(
		&branch.Id, &branch.RestaurantId, &branch.Name, &branch.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrBranchNotFound, branchId)
		}
		return nil, fmt.Errorf("unable to query branch: %w", translateError(err))
	}
	return &branch, nil
}
