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
	"time"

	"referral-ledger-go/internal/ledger"
	"referral-ledger-go/internal/models"

	"github.com/shopspring/decimal"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type CreateUserRequest struct {
	Email    string      `json:"email" validate:"required,email"`
	FullName string      `json:"full_name" validate:"required"`
	Role     models.Role `json:"role" validate:"omitempty,oneof=customer staff owner admin"`
}

type UserDTO struct {
	Id           string      `json:"id"`
	Email        string      `json:"email"`
	FullName     string      `json:"full_name"`
	Role         models.Role `json:"role"`
	ReferralCode string      `json:"referral_code"`
	IsDeleted    bool        `json:"is_deleted"`
	DeletedAt    *time.Time  `json:"deleted_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}

func toUserDTO(u models.User) UserDTO {
	return UserDTO{
		Id:           u.Id,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
		ReferralCode: u.ReferralCode,
		IsDeleted:    u.IsDeleted,
		DeletedAt:    u.DeletedAt,
		CreatedAt:    u.CreatedAt,
	}
}

type AnonymizeRequest struct {
	Reason string `json:"reason"`
}

type CreateRestaurantRequest struct {
	Name                      string          `json:"name" validate:"required"`
	GuaranteedDiscountPercent decimal.Decimal `json:"guaranteed_discount_percent" validate:"gte=0,lte=100"`
	UplineRewardPercent       decimal.Decimal `json:"upline_reward_percent" validate:"gte=0,lte=100"`
	MaxRedemptionPercent      decimal.Decimal `json:"max_redemption_percent" validate:"gte=0,lte=100"`
	VirtualCurrencyExpiryDays int             `json:"virtual_currency_expiry_days" validate:"gte=1"`
}

type RestaurantDTO struct {
	Id                        string          `json:"id"`
	Name                      string          `json:"name"`
	GuaranteedDiscountPercent decimal.Decimal `json:"guaranteed_discount_percent"`
	UplineRewardPercent       decimal.Decimal `json:"upline_reward_percent"`
	MaxRedemptionPercent      decimal.Decimal `json:"max_redemption_percent"`
	VirtualCurrencyExpiryDays int             `json:"virtual_currency_expiry_days"`
	CreatedAt                 time.Time       `json:"created_at"`
}

func toRestaurantDTO(r models.Restaurant) RestaurantDTO {
	return RestaurantDTO{
		Id:                        r.Id,
		Name:                      r.Name,
		GuaranteedDiscountPercent: r.GuaranteedDiscountPercent,
		UplineRewardPercent:       r.UplineRewardPercent,
		MaxRedemptionPercent:      r.MaxRedemptionPercent,
		VirtualCurrencyExpiryDays: r.VirtualCurrencyExpiryDays,
		CreatedAt:                 r.CreatedAt,
	}
}

type CreateBranchRequest struct {
	Name string `json:"name" validate:"required"`
}

type BranchDTO struct {
	Id           string    `json:"id"`
	RestaurantId string    `json:"restaurant_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}

type CreateReferralRequest struct {
	DownlineId   string `json:"downline_id" validate:"required"`
	ReferralCode string `json:"referral_code" validate:"required"`
}

type ReferralResponse struct {
	DownlineId   string `json:"downline_id"`
	RestaurantId string `json:"restaurant_id"`
	EdgesCreated int    `json:"edges_created"`
}

type ReferralEdgeDTO struct {
	UplineId    string    `json:"upline_id"`
	UplineLevel int       `json:"upline_level"`
	CreatedAt   time.Time `json:"created_at"`
}

type BalanceResponse struct {
	UserId       string          `json:"user_id"`
	RestaurantId string          `json:"restaurant_id"`
	Balance      decimal.Decimal `json:"balance"`
}

type CheckoutRequest struct {
	CustomerId   string          `json:"customer_id" validate:"required"`
	BranchId     string          `json:"branch_id" validate:"required"`
	StaffId      string          `json:"staff_id"`
	BillAmount   decimal.Decimal `json:"bill_amount"`
	RedeemAmount decimal.Decimal `json:"redeem_amount"`
}

type TransactionDTO struct {
	Id                       string                   `json:"id"`
	CustomerId               string                   `json:"customer_id"`
	BranchId                 string                   `json:"branch_id"`
	RestaurantId             string                   `json:"restaurant_id"`
	StaffId                  string                   `json:"staff_id"`
	BillAmount               decimal.Decimal          `json:"bill_amount"`
	GuaranteedDiscountAmount decimal.Decimal          `json:"guaranteed_discount_amount"`
	VirtualCurrencyRedeemed  decimal.Decimal          `json:"virtual_currency_redeemed"`
	IsFirstTransaction       bool                     `json:"is_first_transaction"`
	Status                   models.TransactionStatus `json:"status"`
	CreatedAt                time.Time                `json:"created_at"`
	VoidedAt                 *time.Time               `json:"voided_at,omitempty"`
	VoidReason               string                   `json:"void_reason,omitempty"`
}

func toTransactionDTO(t models.Transaction) TransactionDTO {
	return TransactionDTO{
		Id:                       t.Id,
		CustomerId:               t.CustomerId,
		BranchId:                 t.BranchId,
		RestaurantId:             t.RestaurantId,
		StaffId:                  t.StaffId,
		BillAmount:               t.BillAmount,
		GuaranteedDiscountAmount: t.GuaranteedDiscountAmount,
		VirtualCurrencyRedeemed:  t.VirtualCurrencyRedeemed,
		IsFirstTransaction:       t.IsFirstTransaction,
		Status:                   t.Status,
		CreatedAt:                t.CreatedAt,
		VoidedAt:                 t.VoidedAt,
		VoidReason:               t.VoidReason,
	}
}

type CheckoutResponse struct {
	Transaction        TransactionDTO         `json:"transaction"`
	GuaranteedDiscount decimal.Decimal        `json:"guaranteed_discount"`
	Redeemed           decimal.Decimal        `json:"redeemed"`
	NetPayable         decimal.Decimal        `json:"net_payable"`
	Rewards            []ledger.RewardPosting `json:"rewards"`
	SkippedLevels      []int                  `json:"skipped_levels,omitempty"`
	State              ledger.SettlementState `json:"state"`
}

func toCheckoutResponse(r *ledger.SettlementResult) CheckoutResponse {
	rewards := r.Rewards
	if rewards == nil {
		rewards = []ledger.RewardPosting{}
	}
	return CheckoutResponse{
		Transaction:        toTransactionDTO(r.Transaction),
		GuaranteedDiscount: r.GuaranteedDiscount,
		Redeemed:           r.Redeemed,
		NetPayable:         r.NetPayable,
		Rewards:            rewards,
		SkippedLevels:      r.SkippedLevels,
		State:              r.State,
	}
}

type VoidRequest struct {
	Reason string `json:"reason"`
}

type VoidResponse struct {
	Transaction TransactionDTO        `json:"transaction"`
	Reversals   []models.LedgerRecord `json:"reversals"`
}

func toVoidResponse(r *ledger.VoidResult) VoidResponse {
	reversals := make([]models.LedgerRecord, 0, len(r.Reversals))
	for _, e := range r.Reversals {
		reversals = append(reversals, models.NewLedgerRecord(e))
	}
	return VoidResponse{
		Transaction: toTransactionDTO(r.Transaction),
		Reversals:   reversals,
	}
}
