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

const anonymizedName = "Deleted User"

// AnonymizedEmail is the placeholder written over a deleted user's email.
func AnonymizedEmail(userId string) string {
	return fmt.Sprintf("deleted_%s@deleted.local", userId)
}

// AnonymizeUser soft-deletes a user and scrubs their PII. Referral edges and
// ledger rows are left alone so other users' chains and balances are
// unaffected. The caller taken from ctx is written to the audit log.
func (s *Service) AnonymizeUser(ctx context.Context, userId, reason string) error {
	actor := models.ActorFromContext(ctx)
	reason = strings.TrimSpace(reason)

	err := s.store.WithTx(ctx, func(ctx context.Context, repo store.Repository) error {
		user, err := repo.GetUserById(ctx, userId)
		if err != nil {
			return err
		}
		if user.IsDeleted {
			return store.ErrAlreadyAnonymized
		}

		now := s.clock()
		err = repo.AnonymizeUser(ctx, store.AnonymizeParams{
			UserId:   userId,
			Email:    AnonymizedEmail(userId),
			FullName: anonymizedName,
			Reason:   reason,
			At:       now,
		})
		if err != nil {
			return err
		}

		return repo.InsertAuditEntry(ctx, models.AuditEntry{
			Id:           uuid.New().String(),
			ActorId:      actor,
			Action:       models.AuditActionAnonymize,
			TargetUserId: userId,
			Details:      reason,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return err
	}

	zap.L().Info("User anonymized", zap.String("user_id", userId), zap.String("actor_id", actor))
	return nil
}
