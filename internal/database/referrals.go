package database

import (
	"context"
	"fmt"

	"referral-ledger-go/internal/models"
)

// InsertReferralEdge fails with store.ErrDuplicateChain when the downline
// already has an ancestor at that level for the restaurant.
func (r *Repo) InsertReferralEdge(ctx context.Context, edge models.ReferralEdge) error {
	_, err := r.q.ExecContext(ctx, queryInsertReferralEdge,
		edge.Id, edge.DownlineId, edge.UplineId, edge.UplineLevel, edge.RestaurantId, edge.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to insert referral edge: %w", translateError(err))
	}
	return nil
}

func (r *Repo) GetReferralEdges(ctx context.Context, downlineId, restaurantId string) ([]models.ReferralEdge, error) {
	rows, err := r.q.QueryContext(ctx, queryGetReferralEdges, downlineId, restaurantId)
	if err != nil {
		return nil, fmt.Errorf("unable to query referral edges: %w", translateError(err))
	}
	defer closeRows(rows)

	var edges []models.ReferralEdge
	for rows.Next() {
		var edge models.ReferralEdge
		if err := rows.Scan(&edge.Id, &edge.DownlineId, &edge.UplineId, &edge.UplineLevel, &edge.RestaurantId, &edge.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan referral edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating referral edges: %w", err)
	}
	return edges, nil
}
