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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"referral-ledger-go/internal/ledger"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

var validate = ledger.NewValidator()

// Handler holds the HTTP handlers for the ledger API.
type Handler struct {
	engine *ledger.Service
	ledger *LedgerService
}

func NewHandler(engine *ledger.Service, svc *LedgerService) *Handler {
	return &Handler{
		engine: engine,
		ledger: svc,
	}
}

// Health

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.HealthCheck(r.Context()); err != nil {
		zap.L().Warn("Health check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unhealthy", "database unavailable", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Users

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.engine.CreateUser(r.Context(), ledger.CreateUserParams{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(*user))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.engine.ListUsers(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result := make([]UserDTO, 0, len(users))
	for _, u := range users {
		result = append(result, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.engine.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

// AnonymizeUser soft-deletes a user. The reason comes from the optional body
// or the "reason" query parameter.
func (h *Handler) AnonymizeUser(w http.ResponseWriter, r *http.Request) {
	var req AnonymizeRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = r.URL.Query().Get("reason")
	}

	userId := chi.URLParam(r, "id")
	if err := h.engine.AnonymizeUser(r.Context(), userId, req.Reason); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.engine.GetUser(r.Context(), userId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(*user))
}

func (h *Handler) GetUserBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.ledger.GetUserBalances(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

// Restaurants

func (h *Handler) CreateRestaurant(w http.ResponseWriter, r *http.Request) {
	var req CreateRestaurantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	restaurant, err := h.engine.CreateRestaurant(r.Context(), ledger.CreateRestaurantParams{
		Name:                      req.Name,
		GuaranteedDiscountPercent: req.GuaranteedDiscountPercent,
		UplineRewardPercent:       req.UplineRewardPercent,
		MaxRedemptionPercent:      req.MaxRedemptionPercent,
		VirtualCurrencyExpiryDays: req.VirtualCurrencyExpiryDays,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRestaurantDTO(*restaurant))
}

func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	restaurants, err := h.engine.ListRestaurants(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result := make([]RestaurantDTO, 0, len(restaurants))
	for _, rest := range restaurants {
		result = append(result, toRestaurantDTO(rest))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	restaurant, err := h.engine.GetRestaurant(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRestaurantDTO(*restaurant))
}

func (h *Handler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	var req CreateBranchRequest
	if !decodeBody(w, r, &req) {
		return
	}

	branch, err := h.engine.CreateBranch(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, BranchDTO{
		Id:           branch.Id,
		RestaurantId: branch.RestaurantId,
		Name:         branch.Name,
		CreatedAt:    branch.CreatedAt,
	})
}

// Referrals

func (h *Handler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	var req CreateReferralRequest
	if !decodeBody(w, r, &req) {
		return
	}

	restaurantId := chi.URLParam(r, "id")
	created, err := h.engine.CreateReferralChain(r.Context(), req.DownlineId, req.ReferralCode, restaurantId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReferralResponse{
		DownlineId:   req.DownlineId,
		RestaurantId: restaurantId,
		EdgesCreated: created,
	})
}

func (h *Handler) ListReferralEdges(w http.ResponseWriter, r *http.Request) {
	edges, err := h.engine.ListReferralEdges(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result := make([]ReferralEdgeDTO, 0, len(edges))
	for _, e := range edges {
		result = append(result, ReferralEdgeDTO{
			UplineId:    e.UplineId,
			UplineLevel: e.UplineLevel,
			CreatedAt:   e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// Balances and history

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userId := chi.URLParam(r, "userID")
	restaurantId := chi.URLParam(r, "id")

	balance, err := h.ledger.GetUserBalance(r.Context(), userId, restaurantId)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		UserId:       userId,
		RestaurantId: restaurantId,
		Balance:      balance,
	})
}

func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid limit", err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid offset", err)
		return
	}

	records, err := h.ledger.GetLedgerHistory(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Checkout and void

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.SettleTransaction(r.Context(), ledger.SettleRequest{
		CustomerId:   req.CustomerId,
		BranchId:     req.BranchId,
		StaffId:      req.StaffId,
		BillAmount:   req.BillAmount,
		RedeemAmount: req.RedeemAmount,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCheckoutResponse(result))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.engine.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

func (h *Handler) VoidTransaction(w http.ResponseWriter, r *http.Request) {
	var req VoidRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	result, err := h.engine.VoidTransaction(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVoidResponse(result))
}

// Admin

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Reconcile(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Helpers

// decodeBody reads a size-limited JSON body into dst and checks its validate
// tags. It writes the error response itself and reports whether to go on.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "request body too large", err)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "invalid_input", "request body is required", nil)
		default:
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body", err)
		}
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			writeError(w, http.StatusBadRequest, "invalid_input", "request failed validation", errors.New(ledger.DescribeValidation(fieldErrs)))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_input", "request failed validation", err)
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("Failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
