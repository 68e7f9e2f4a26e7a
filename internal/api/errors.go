/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"errors"
	"net/http"

	"referral-ledger-go/internal/store"

	"go.uber.org/zap"
)

type errorKind struct {
	target error
	status int
	code   string
}

// Checked in order; the first match wins.
var errorKinds = []errorKind{
	{store.ErrBusy, http.StatusServiceUnavailable, "busy"},
	{store.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{store.ErrRestaurantNotFound, http.StatusNotFound, "restaurant_not_found"},
	{store.ErrBranchNotFound, http.StatusNotFound, "branch_not_found"},
	{store.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{store.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{store.ErrRedemptionCapExceeded, http.StatusUnprocessableEntity, "redemption_cap_exceeded"},
	{store.ErrAlreadyVoided, http.StatusConflict, "already_voided"},
	{store.ErrDuplicateChain, http.StatusConflict, "duplicate_chain"},
	{store.ErrAlreadyAnonymized, http.StatusConflict, "already_anonymized"},
	{store.ErrDuplicateEmail, http.StatusConflict, "duplicate_email"},
	{store.ErrDuplicateReferralCode, http.StatusConflict, "duplicate_referral_code"},
	{store.ErrUserDeleted, http.StatusUnprocessableEntity, "user_deleted"},
	{store.ErrInvalidReferralCode, http.StatusBadRequest, "invalid_referral_code"},
	{store.ErrSelfReferral, http.StatusBadRequest, "self_referral"},
	{store.ErrReferralCycle, http.StatusBadRequest, "referral_cycle"},
	{store.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{store.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
}

func classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError maps a ledger error onto a response. Internal errors are
// logged and never echoed to the client.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, status, code, "internal error", nil)
		return
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, status, code, http.StatusText(status), err)
}
