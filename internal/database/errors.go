package database

import (
	"errors"
	"fmt"
	"strings"

	"referral-ledger-go/internal/store"

	"github.com/mattn/go-sqlite3"
)

// translateError maps driver errors onto the store sentinels. Anything it
// does not recognise is returned unchanged.
func translateError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return err
	}

	switch {
	case sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%w: %v", store.ErrBusy, err)
	case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		msg := sqliteErr.Error()
		switch {
		case strings.Contains(msg, "users.email"):
			return store.ErrDuplicateEmail
		case strings.Contains(msg, "users.referral_code"):
			return store.ErrDuplicateReferralCode
		case strings.Contains(msg, "referrals."):
			return store.ErrDuplicateChain
		case strings.Contains(msg, "ledger_entries."):
			return store.ErrDuplicateEntry
		}
	}
	return err
}
