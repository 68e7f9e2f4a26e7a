package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"referral-ledger-go/internal/database"
	"referral-ledger-go/internal/ledger"
	"referral-ledger-go/internal/models"
	"referral-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv *httptest.Server
	db  *database.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "api.db"),
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: time.Minute,
		PingTimeout:     time.Second,
		BusyTimeout:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	engine := ledger.NewService(db)
	h := NewHandler(engine, NewLedgerService(engine, db))
	srv := httptest.NewServer(NewRouter(h, models.ServerConfig{AllowedOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (s *testServer) createUser(t *testing.T, name string) UserDTO {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/users", CreateUserRequest{
		Email:    name + "@example.com",
		FullName: name,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[UserDTO](t, resp)
}

func (s *testServer) createRestaurant(t *testing.T) (RestaurantDTO, BranchDTO) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/api/restaurants", CreateRestaurantRequest{
		Name:                      "Somtum House",
		GuaranteedDiscountPercent: decimal.NewFromInt(5),
		UplineRewardPercent:       decimal.NewFromInt(1),
		MaxRedemptionPercent:      decimal.NewFromInt(20),
		VirtualCurrencyExpiryDays: 90,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	restaurant := decode[RestaurantDTO](t, resp)

	resp = s.do(t, http.MethodPost, "/api/restaurants/"+restaurant.Id+"/branches", CreateBranchRequest{Name: "Silom"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return restaurant, decode[BranchDTO](t, resp)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)
	restaurant, branch := s.createRestaurant(t)
	alice := s.createUser(t, "alice")
	bob := s.createUser(t, "bob")

	resp := s.do(t, http.MethodPost, "/api/restaurants/"+restaurant.Id+"/referrals", CreateReferralRequest{
		DownlineId:   bob.Id,
		ReferralCode: alice.ReferralCode,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, decode[ReferralResponse](t, resp).EdgesCreated)

	resp = s.do(t, http.MethodPost, "/api/checkouts", CheckoutRequest{
		CustomerId:   bob.Id,
		BranchId:     branch.Id,
		StaffId:      "staff-1",
		BillAmount:   decimal.NewFromInt(200),
		RedeemAmount: decimal.Zero,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	checkout := decode[CheckoutResponse](t, resp)
	assert.True(t, checkout.Transaction.IsFirstTransaction)
	assert.True(t, decimal.NewFromInt(10).Equal(checkout.GuaranteedDiscount))
	assert.True(t, decimal.NewFromInt(190).Equal(checkout.NetPayable))
	require.Len(t, checkout.Rewards, 1)
	assert.Equal(t, alice.Id, checkout.Rewards[0].UplineId)

	resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/restaurants/%s/balances/%s", restaurant.Id, alice.Id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decimal.NewFromInt(2).Equal(decode[BalanceResponse](t, resp).Balance))

	resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/restaurants/%s/ledger/%s?limit=5", restaurant.Id, alice.Id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[[]models.LedgerRecord](t, resp)
	require.Len(t, records, 1)
	assert.Equal(t, models.EntryEarn, records[0].Type)

	resp = s.do(t, http.MethodPost, "/api/transactions/"+checkout.Transaction.Id+"/void", VoidRequest{Reason: "wrong table"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	voided := decode[VoidResponse](t, resp)
	assert.Equal(t, models.StatusVoided, voided.Transaction.Status)
	require.Len(t, voided.Reversals, 1)

	resp = s.do(t, http.MethodGet, "/api/users/"+alice.Id+"/balances", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.RestaurantBalance](t, resp))

	resp = s.do(t, http.MethodPost, "/api/transactions/"+checkout.Transaction.Id+"/void", VoidRequest{Reason: "again"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "already_voided", decode[ErrorResponse](t, resp).Code)
}

func TestCheckout_InsufficientBalance(t *testing.T) {
	s := newTestServer(t)
	_, branch := s.createRestaurant(t)
	carol := s.createUser(t, "carol")

	resp := s.do(t, http.MethodPost, "/api/checkouts", CheckoutRequest{
		CustomerId:   carol.Id,
		BranchId:     branch.Id,
		StaffId:      "staff-1",
		BillAmount:   decimal.NewFromInt(100),
		RedeemAmount: decimal.NewFromInt(5),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decode[ErrorResponse](t, resp)
	assert.Equal(t, "insufficient_balance", body.Code)
	assert.Contains(t, body.Details, "available 0.00")
}

func TestBadRequests(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/users", map[string]string{"email": "x@example.com", "nickname": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/api/users", CreateUserRequest{Email: "not-an-email", FullName: "X"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, resp).Code)

	resp = s.do(t, http.MethodGet, "/api/users/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/transactions/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t)
	restaurant, branch := s.createRestaurant(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"user without name", "/api/users", CreateUserRequest{Email: "nameless@example.com"}},
		{"user with unknown role", "/api/users", CreateUserRequest{Email: "r@example.com", FullName: "R", Role: "root"}},
		{"restaurant without expiry", "/api/restaurants", CreateRestaurantRequest{Name: "Forever", UplineRewardPercent: decimal.NewFromInt(1)}},
		{"restaurant over 100 percent", "/api/restaurants", CreateRestaurantRequest{
			Name: "Generous", UplineRewardPercent: decimal.NewFromInt(101), VirtualCurrencyExpiryDays: 30,
		}},
		{"branch without name", "/api/restaurants/" + restaurant.Id + "/branches", CreateBranchRequest{}},
		{"referral without code", "/api/restaurants/" + restaurant.Id + "/referrals", CreateReferralRequest{DownlineId: "u1"}},
		{"checkout without customer", "/api/checkouts", CheckoutRequest{BranchId: branch.Id, BillAmount: decimal.NewFromInt(10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := s.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "invalid_input", decode[ErrorResponse](t, resp).Code)
		})
	}
}

func TestOversizedBodyRejected(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/users", CreateUserRequest{
		Email:    "big@example.com",
		FullName: strings.Repeat("x", maxBodyBytes+1),
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "body_too_large", decode[ErrorResponse](t, resp).Code)
}

func TestAnonymizeUser_RecordsActor(t *testing.T) {
	s := newTestServer(t)
	dave := s.createUser(t, "dave")

	resp := s.do(t, http.MethodDelete, "/api/users/"+dave.Id, AnonymizeRequest{Reason: "gdpr request"}, ActorHeader, "admin-7")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[UserDTO](t, resp)
	assert.True(t, user.IsDeleted)
	assert.Equal(t, ledger.AnonymizedEmail(dave.Id), user.Email)

	resp = s.do(t, http.MethodDelete, "/api/users/"+dave.Id, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestReconcileEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodPost, "/api/admin/reconcile", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[ledger.ReconcileReport](t, resp)
	assert.True(t, report.Clean())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"busy", fmt.Errorf("%w: lock", store.ErrBusy), http.StatusServiceUnavailable, "busy"},
		{"cap", &store.RedemptionCapError{Cap: decimal.NewFromInt(20), Requested: decimal.NewFromInt(30)}, http.StatusUnprocessableEntity, "redemption_cap_exceeded"},
		{"cycle", store.ErrReferralCycle, http.StatusBadRequest, "referral_cycle"},
		{"duplicate chain", store.ErrDuplicateChain, http.StatusConflict, "duplicate_chain"},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestBusyResponseSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	writeServiceError(rec, req, store.ErrBusy)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
