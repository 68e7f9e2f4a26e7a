package postgres

import (
	"errors"
	"fmt"

	"referral-ledger-go/internal/store"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// translateError maps PostgreSQL errors onto the store sentinels.
func translateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %v", store.ErrBusy, err)
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "uq_users_email":
			return store.ErrDuplicateEmail
		case "uq_users_referral_code":
			return store.ErrDuplicateReferralCode
		case "uq_referrals_downline_level":
			return store.ErrDuplicateChain
		case "uq_ledger_entries_earn":
			return store.ErrDuplicateEntry
		}
	}
	return err
}
