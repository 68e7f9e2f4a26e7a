package store

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations and the engine.
var (
	ErrInvalidReferralCode   = errors.New("invalid referral code")
	ErrSelfReferral          = errors.New("cannot refer yourself")
	ErrDuplicateChain        = errors.New("user already has a referrer at this restaurant")
	ErrReferralCycle         = errors.New("referral would create a cycle")
	ErrInsufficientBalance   = errors.New("insufficient virtual currency balance")
	ErrRedemptionCapExceeded = errors.New("redemption exceeds maximum allowed for this bill")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrAlreadyVoided         = errors.New("transaction already voided")
	ErrBusy                  = errors.New("account is busy, retry later")
	ErrUserNotFound          = errors.New("user not found")
	ErrUserDeleted           = errors.New("user has been deleted")
	ErrAlreadyAnonymized     = errors.New("user already anonymized")
	ErrRestaurantNotFound    = errors.New("restaurant not found")
	ErrBranchNotFound        = errors.New("branch not found")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrDuplicateReferralCode = errors.New("referral code already in use")
	ErrDuplicateEmail        = errors.New("email already in use")
	ErrDuplicateEntry        = errors.New("duplicate ledger entry")
	ErrInvalidInput          = errors.New("invalid input")
)

// InsufficientBalanceError reports how much VC the account actually holds.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s: available %s, requested %s", ErrInsufficientBalance, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// RedemptionCapError reports the per-bill redemption ceiling.
type RedemptionCapError struct {
	Cap       decimal.Decimal
	Requested decimal.Decimal
}

func (e *RedemptionCapError) Error() string {
	return fmt.Sprintf("%s: cap %s, requested %s", ErrRedemptionCapExceeded, e.Cap.StringFixed(2), e.Requested.StringFixed(2))
}

func (e *RedemptionCapError) Unwrap() error { return ErrRedemptionCapExceeded }

// IsRetryable reports whether the caller may retry the same request unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsNotFound reports whether err names a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrRestaurantNotFound) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrTransactionNotFound)
}

// IsClientError reports whether err was caused by the request itself
// rather than by the system.
func IsClientError(err error) bool {
	for _, target := range []error{
		ErrInvalidReferralCode, ErrSelfReferral, ErrDuplicateChain, ErrReferralCycle,
		ErrInsufficientBalance, ErrRedemptionCapExceeded, ErrAlreadyVoided,
		ErrUserDeleted, ErrAlreadyAnonymized, ErrInvalidAmount,
		ErrDuplicateReferralCode, ErrDuplicateEmail, ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return IsNotFound(err)
}
