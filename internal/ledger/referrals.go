package ledger

import (
	"context"
	"fmt"
	"strings"

	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateReferralChain redeems referralCode for downlineId at a restaurant and
// stores the whole ancestor path (one to three edges) in one transaction.
// It returns the number of edges created.
func (s *Service) CreateReferralChain(ctx context.Context, downlineId, referralCode, restaurantId string) (int, error) {
	if _, err := s.store.GetRestaurantById(ctx, restaurantId); err != nil {
		return 0, err
	}

	code := normalizeReferralCode(referralCode)
	if code == "" {
		return 0, store.ErrInvalidReferralCode
	}

	upline, err := s.store.GetActiveUserByReferralCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if upline.Id == downlineId {
		return 0, store.ErrSelfReferral
	}

	downline, err := s.store.GetUserById(ctx, downlineId)
	if err != nil {
		return 0, err
	}
	if downline.IsDeleted {
		return 0, store.ErrUserDeleted
	}

	var created int
	err = s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		existing, err := repo.GetReferralEdges(ctx, downlineId, restaurantId)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return store.ErrDuplicateChain
		}

		ancestors, err := repo.GetReferralEdges(ctx, upline.Id, restaurantId)
		if err != nil {
			return err
		}

		path := []string{upline.Id}
		for _, edge := range ancestors {
			if edge.UplineId == downlineId {
				return fmt.Errorf("%w: %s is already an ancestor of %s", store.ErrReferralCycle, downlineId, upline.Id)
			}
			if edge.UplineLevel == len(path) && len(path) < models.MaxUplineLevel {
				path = append(path, edge.UplineId)
			}
		}

		now := s.clock()
		for i, ancestorId := range path {
			edge := models.ReferralEdge{
				Id:           uuid.New().String(),
				DownlineId:   downlineId,
				UplineId:     ancestorId,
				UplineLevel:  i + 1,
				RestaurantId: restaurantId,
				CreatedAt:    now,
			}
			if err := repo.InsertReferralEdge(ctx, edge); err != nil {
				return err
			}
		}
		created = len(path)
		return nil
	})
	if err != nil {
		zap.L().Info("Referral chain rejected",
			zap.String("downline_id", downlineId),
			zap.String("restaurant_id", restaurantId),
			zap.Error(err))
		return 0, err
	}

	zap.L().Info("Referral chain created",
		zap.String("downline_id", downlineId),
		zap.String("upline_id", upline.Id),
		zap.String("restaurant_id", restaurantId),
		zap.Int("edges", created))
	return created, nil
}

// ListReferralEdges returns the stored ancestor path of a downline, level 1 first.
func (s *Service) ListReferralEdges(ctx context.Context, downlineId, restaurantId string) ([]models.ReferralEdge, error) {
	return s.store.GetReferralEdges(ctx, downlineId, restaurantId)
}

func normalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
