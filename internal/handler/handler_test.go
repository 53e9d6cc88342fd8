package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/middleware"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
	"github.com/mmeshcher/fundvault/internal/service"
)

const testTxHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

type stubService struct {
	user    *model.User
	userErr error

	gotRegister service.RegisterRequest
	gotLogin    service.LoginRequest

	dashboard *model.Dashboard

	investment    *model.Investment
	investmentErr error
	gotInvestment service.InvestmentRequest

	withdrawal    *model.Withdrawal
	withdrawalErr error
	gotWithdrawal service.WithdrawalRequest

	investments []model.Investment
	gotStatus   string

	result      service.Result
	resultErr   error
	gotTarget   string
	gotReason   string
	gotID       uuid.UUID
	gotActor    uuid.UUID
	statusErr   error
	settings    model.PlatformSettings
	settingsErr error
	gotSettings model.PlatformSettings

	quote    service.PriceQuote
	quoteErr error

	distribution service.DistributionResult
	draw         service.DrawResult
	gotLimit     int
	clearErr     error
}

func (s *stubService) Register(ctx context.Context, req service.RegisterRequest) (*model.User, error) {
	s.gotRegister = req
	return s.user, s.userErr
}

func (s *stubService) Authenticate(ctx context.Context, req service.LoginRequest) (*model.User, error) {
	s.gotLogin = req
	return s.user, s.userErr
}

func (s *stubService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	if s.userErr != nil {
		return nil, s.userErr
	}
	u := *s.user
	u.Name = name
	return &u, nil
}

func (s *stubService) GetDashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error) {
	return s.dashboard, nil
}

func (s *stubService) ListTransactions(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error) {
	return nil, nil
}

func (s *stubService) ListCommissions(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error) {
	return nil, nil
}

func (s *stubService) Price(ctx context.Context, fund model.Fund) (service.PriceQuote, error) {
	return s.quote, s.quoteErr
}

func (s *stubService) SubmitInvestment(ctx context.Context, req service.InvestmentRequest) (*model.Investment, error) {
	s.gotInvestment = req
	return s.investment, s.investmentErr
}

func (s *stubService) GetInvestment(ctx context.Context, userID, id uuid.UUID) (*model.Investment, error) {
	if s.investment == nil || s.investment.ID != id || s.investment.UserID != userID {
		return nil, repository.ErrInvestmentNotFound
	}
	return s.investment, nil
}

func (s *stubService) ListUserInvestments(ctx context.Context, userID uuid.UUID) ([]model.Investment, error) {
	return s.investments, nil
}

func (s *stubService) CreateWithdrawal(ctx context.Context, req service.WithdrawalRequest) (*model.Withdrawal, error) {
	s.gotWithdrawal = req
	return s.withdrawal, s.withdrawalErr
}

func (s *stubService) ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error) {
	return nil, nil
}

func (s *stubService) GetSettings(ctx context.Context) (model.PlatformSettings, error) {
	return s.settings, s.settingsErr
}

func (s *stubService) GetPublicSettings(ctx context.Context) (service.PublicSettings, error) {
	return service.PublicSettings{
		EntryFeePercent: s.settings.EntryFeePercent,
		WalletAddresses: s.settings.WalletAddresses,
	}, s.settingsErr
}

func (s *stubService) UpdateSettings(ctx context.Context, st model.PlatformSettings) (model.PlatformSettings, error) {
	s.gotSettings = st
	return st, s.settingsErr
}

func (s *stubService) Stats(ctx context.Context) (*model.PlatformStats, error) {
	return &model.PlatformStats{
		Users:             3,
		UndistributedFees: map[model.FeeType]decimal.Decimal{model.FeeTypeEntry: decimal.NewFromInt(30)},
	}, nil
}

func (s *stubService) ListUsers(ctx context.Context) ([]model.User, error) {
	return nil, nil
}

func (s *stubService) SetUserStatus(ctx context.Context, actorID, userID uuid.UUID, status model.UserStatus) error {
	s.gotActor = actorID
	s.gotID = userID
	s.gotStatus = string(status)
	return s.statusErr
}

func (s *stubService) ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error) {
	s.gotStatus = string(status)
	return s.investments, nil
}

func (s *stubService) TransitionInvestment(ctx context.Context, id uuid.UUID, target model.InvestmentStatus, reason string) (service.Result, error) {
	s.gotID = id
	s.gotTarget = string(target)
	s.gotReason = reason
	return s.result, s.resultErr
}

func (s *stubService) ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	s.gotStatus = string(status)
	return nil, nil
}

func (s *stubService) TransitionWithdrawal(ctx context.Context, id uuid.UUID, target model.WithdrawalStatus, reason string) (service.Result, error) {
	s.gotID = id
	s.gotTarget = string(target)
	s.gotReason = reason
	return s.result, s.resultErr
}

func (s *stubService) DistributeProfits(ctx context.Context) (service.DistributionResult, error) {
	return s.distribution, nil
}

func (s *stubService) UnlockBonuses(ctx context.Context) (service.UnlockResult, error) {
	return service.UnlockResult{Message: "no bonuses are eligible for unlocking"}, nil
}

func (s *stubService) RunLotteryDraw(ctx context.Context) (service.DrawResult, error) {
	return s.draw, nil
}

func (s *stubService) ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error) {
	s.gotLimit = limit
	return nil, nil
}

func (s *stubService) ClearTestData(ctx context.Context, adminID uuid.UUID) error {
	s.gotActor = adminID
	return s.clearErr
}

type testEnv struct {
	h      *Handler
	router http.Handler
	auth   *middleware.AuthMiddleware
}

func newTestEnv(t *testing.T, svc Service) *testEnv {
	t.Helper()

	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(svc, zap.NewNop(), auth, prometheus.NewRegistry())
	return &testEnv{h: h, router: h.SetupRouter(), auth: auth}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID uuid.UUID, role model.Role) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != uuid.Nil {
		token, err := e.auth.IssueToken(userID, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type testEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func testUser(role model.Role) *model.User {
	return &model.User{
		ID:        uuid.New(),
		Email:     "user@example.com",
		Name:      "User",
		Role:      role,
		Status:    model.UserStatusActive,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRegister_Success(t *testing.T) {
	svc := &stubService{user: testUser(model.RoleUser)}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email":         "user@example.com",
		"name":          "User",
		"password":      "long-password",
		"referral_code": uuid.NewString(),
	}, uuid.Nil, "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "user@example.com", svc.gotRegister.Email)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "auth_token", cookies[0].Name)

	var data authResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, svc.user.ID.String(), data.User.ID)
	assert.Equal(t, data.User.ID, data.User.ReferralCode)

	assert.Equal(t, data.Token, cookies[0].Value)

	id, role, err := env.auth.ParseToken(data.Token)
	require.NoError(t, err)
	assert.Equal(t, svc.user.ID, id)
	assert.Equal(t, model.RoleUser, role)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		body any
	}{
		{"malformed json", "{"},
		{"bad email", map[string]string{"email": "nope", "name": "U", "password": "long-password"}},
		{"short password", map[string]string{"email": "a@b.co", "name": "U", "password": "short"}},
		{"bad referral", map[string]string{"email": "a@b.co", "name": "U", "password": "long-password", "referral_code": "xyz"}},
		{"unknown field", map[string]string{"email": "a@b.co", "name": "U", "password": "long-password", "role": "admin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{user: testUser(model.RoleUser)}
			env := newTestEnv(t, svc)

			rec := env.do(t, http.MethodPost, "/api/auth/register", tt.body, uuid.Nil, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, decodeEnvelope(t, rec).Success)
			assert.Empty(t, svc.gotRegister.Email)
		})
	}
}

func TestRegister_Conflict(t *testing.T) {
	env := newTestEnv(t, &stubService{userErr: repository.ErrUserExists})

	rec := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "user@example.com", "name": "User", "password": "long-password",
	}, uuid.Nil, "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"bad credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"blocked", service.ErrUserBlocked, http.StatusForbidden},
		{"internal", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{user: testUser(model.RoleAdmin), userErr: tt.err}
			env := newTestEnv(t, svc)

			rec := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
				"email": "user@example.com", "password": "whatever",
			}, uuid.Nil, "")

			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, svc.gotLogin.IP)
			if tt.want == http.StatusInternalServerError {
				assert.Equal(t, http.StatusText(http.StatusInternalServerError), decodeEnvelope(t, rec).Message)
			}
		})
	}
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	rec := env.do(t, http.MethodPost, "/api/auth/logout", nil, uuid.Nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestUserRoutes_RequireAuth(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	for _, path := range []string{"/api/user/profile", "/api/user/dashboard", "/api/user/investments"} {
		rec := env.do(t, http.MethodGet, path, nil, uuid.Nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.False(t, decodeEnvelope(t, rec).Success, path)
	}
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	rec := env.do(t, http.MethodGet, "/api/admin/stats", nil, uuid.New(), model.RoleUser)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusForbidden), decodeEnvelope(t, rec).Message)

	rec = env.do(t, http.MethodGet, "/api/admin/stats", nil, uuid.New(), model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats statsResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &stats))
	assert.Equal(t, int64(3), stats.Users)
	assert.True(t, decimal.NewFromInt(30).Equal(stats.UndistributedFees["entry_fee"]))
}

func TestSubmitInvestment(t *testing.T) {
	userID := uuid.New()
	inv := &model.Investment{
		ID:     uuid.New(),
		UserID: userID,
		FundID: model.FundGold,
		Amount: decimal.NewFromInt(1),
		Status: model.InvestmentStatusPending,
	}
	svc := &stubService{investment: inv}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodPost, "/api/user/investments",
		`{"fund":"gold","amount":"1.5","transaction_hash":"`+testTxHash+`"}`, userID, model.RoleUser)

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, userID, svc.gotInvestment.UserID)
	assert.Equal(t, model.FundGold, svc.gotInvestment.Fund)
	assert.Equal(t, "1.5", svc.gotInvestment.Amount.String())

	var data investmentResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "pending", data.Status)
}

func TestGetInvestment_OwnerOnly(t *testing.T) {
	owner := uuid.New()
	inv := &model.Investment{ID: uuid.New(), UserID: owner, FundID: model.FundDollar, Status: model.InvestmentStatusActive}
	env := newTestEnv(t, &stubService{investment: inv})

	rec := env.do(t, http.MethodGet, "/api/user/investments/"+inv.ID.String(), nil, owner, model.RoleUser)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/user/investments/"+inv.ID.String(), nil, uuid.New(), model.RoleUser)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubmitInvestment_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"unknown fund", `{"fund":"platinum","amount":1,"transaction_hash":"` + testTxHash + `"}`, nil, http.StatusBadRequest},
		{"zero amount", `{"fund":"gold","amount":0,"transaction_hash":"` + testTxHash + `"}`, nil, http.StatusBadRequest},
		{"bad hash", `{"fund":"gold","amount":1,"transaction_hash":"abc"}`, nil, http.StatusBadRequest},
		{"maintenance", `{"fund":"gold","amount":1,"transaction_hash":"` + testTxHash + `"}`, service.ErrMaintenance, http.StatusServiceUnavailable},
		{"price", `{"fund":"bitcoin","amount":1,"transaction_hash":"` + testTxHash + `"}`,
			fmt.Errorf("get bitcoin price: %w: %w", service.ErrPriceUnavailable, errors.New("timeout")), http.StatusBadGateway},
		{"net not positive", `{"fund":"gold","amount":1,"transaction_hash":"` + testTxHash + `"}`, service.ErrNonPositiveNet, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubService{investmentErr: tt.err})

			rec := env.do(t, http.MethodPost, "/api/user/investments", tt.body, uuid.New(), model.RoleUser)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreateWithdrawal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusAccepted},
		{"two factor", service.ErrInvalidTwoFactor, http.StatusForbidden},
		{"below minimum", fmt.Errorf("%w: minimum is 10", service.ErrBelowMinimum), http.StatusUnprocessableEntity},
		{"pending exists", service.ErrPendingWithdrawalExists, http.StatusConflict},
		{"insufficient", service.ErrInsufficientBalance, http.StatusPaymentRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID := uuid.New()
			svc := &stubService{
				withdrawal:    &model.Withdrawal{ID: uuid.New(), UserID: userID, Status: model.WithdrawalStatusPending},
				withdrawalErr: tt.err,
			}
			env := newTestEnv(t, svc)

			rec := env.do(t, http.MethodPost, "/api/user/withdrawals", map[string]any{
				"amount":          "100",
				"wallet_address":  "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh",
				"two_factor_code": "123456",
			}, userID, model.RoleUser)

			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Equal(t, userID, svc.gotWithdrawal.UserID)
			assert.Equal(t, "123456", svc.gotWithdrawal.TwoFactorCode)
		})
	}
}

func TestCreateWithdrawal_InvalidWallet(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodPost, "/api/user/withdrawals", map[string]any{
		"amount": "100", "wallet_address": "short", "two_factor_code": "123456",
	}, uuid.New(), model.RoleUser)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "wallet_address")
	assert.Equal(t, uuid.Nil, svc.gotWithdrawal.UserID)
}

func TestListInvestments_EmptyIsArray(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	rec := env.do(t, http.MethodGet, "/api/user/investments", nil, uuid.New(), model.RoleUser)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, rec).Data))
}

func TestTransitionInvestment(t *testing.T) {
	id := uuid.New()
	svc := &stubService{result: service.Result{Changed: true, Message: "investment rejected"}}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodPost, "/api/admin/investments/"+id.String()+"/status", map[string]string{
		"status": "rejected", "reason": "hash not found",
	}, uuid.New(), model.RoleAdmin)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, svc.gotID)
	assert.Equal(t, "rejected", svc.gotTarget)
	assert.Equal(t, "hash not found", svc.gotReason)

	env2 := decodeEnvelope(t, rec)
	assert.Equal(t, "investment rejected", env2.Message)
	assert.JSONEq(t, `{"changed":true}`, string(env2.Data))
}

func TestTransition_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"bad id", "/api/admin/investments/not-a-uuid/status", nil, http.StatusBadRequest},
		{"not found", "/api/admin/investments/" + uuid.NewString() + "/status", repository.ErrInvestmentNotFound, http.StatusNotFound},
		{"invalid transition", "/api/admin/withdrawals/" + uuid.NewString() + "/status", service.ErrInvalidTransition, http.StatusConflict},
		{"reason required", "/api/admin/withdrawals/" + uuid.NewString() + "/status", service.ErrRejectionReasonRequired, http.StatusBadRequest},
		{"withdrawal not found", "/api/admin/withdrawals/" + uuid.NewString() + "/status", repository.ErrWithdrawalNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubService{resultErr: tt.err})

			rec := env.do(t, http.MethodPost, tt.path, map[string]string{"status": "rejected"}, uuid.New(), model.RoleAdmin)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestListByStatus_DefaultsToPending(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodGet, "/api/admin/investments", nil, uuid.New(), model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pending", svc.gotStatus)

	rec = env.do(t, http.MethodGet, "/api/admin/withdrawals?status=approved", nil, uuid.New(), model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", svc.gotStatus)
}

func TestSetUserStatus_PassesActor(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)
	adminID, target := uuid.New(), uuid.New()

	rec := env.do(t, http.MethodPost, "/api/admin/users/"+target.String()+"/status",
		map[string]string{"status": "blocked"}, adminID, model.RoleAdmin)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, adminID, svc.gotActor)
	assert.Equal(t, target, svc.gotID)
	assert.Equal(t, "blocked", svc.gotStatus)

	rec = env.do(t, http.MethodPost, "/api/admin/users/"+target.String()+"/status",
		map[string]string{"status": "deleted"}, adminID, model.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateSettings(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodPut, "/api/admin/settings", `{
		"entry_fee_percent": "3", "lottery_fee_percent": 2, "platform_fee_percent": 1,
		"exit_fee_percent": 2, "network_fee": 1, "min_withdrawal_amount": 10,
		"withdrawal_day": "Saturday", "maintenance": true,
		"bonus_amount": 10, "bonus_cap": 100, "bonus_unlock_target": 100,
		"wallet_addresses": {"bitcoin": "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh"}
	}`, uuid.New(), model.RoleAdmin)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, svc.gotSettings.Maintenance)
	assert.Equal(t, "3", svc.gotSettings.EntryFeePercent.String())
	assert.Equal(t, int64(100), svc.gotSettings.BonusCap)
	assert.Equal(t, "bc1qxy2kgdygjrsqtzq2n0yrf2493p83kkfjhx0wlh", svc.gotSettings.WalletAddresses[model.FundBitcoin])
}

func TestUpdateSettings_Rejects(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	rec := env.do(t, http.MethodPut, "/api/admin/settings", `{
		"entry_fee_percent": 120, "withdrawal_day": "saturday"
	}`, uuid.New(), model.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env = newTestEnv(t, &stubService{settingsErr: fmt.Errorf("%w: investment fees must total less than 100", service.ErrInvalidSettings)})
	rec = env.do(t, http.MethodPut, "/api/admin/settings", `{"withdrawal_day": "friday"}`, uuid.New(), model.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Message, "less than 100")
}

func TestPublicSettings_NoAuth(t *testing.T) {
	svc := &stubService{settings: model.DefaultSettings()}
	svc.settings.WalletAddresses = map[model.Fund]string{model.FundGold: "0xabcabcabcabcabcabcabcabcabcabcabcabcabca"}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodGet, "/api/settings/public", nil, uuid.Nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var data map[string]any
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.NotContains(t, data, "bonus_cap")
	assert.Contains(t, data, "wallet_addresses")
}

func TestGetPrice(t *testing.T) {
	svc := &stubService{quote: service.PriceQuote{Fund: model.FundGold, USD: decimal.NewFromInt(2300)}}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodGet, "/api/prices/gold", nil, uuid.Nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"fund":"gold","usd":"2300"}`, string(decodeEnvelope(t, rec).Data))

	env = newTestEnv(t, &stubService{quoteErr: service.ErrInvalidFund})
	rec = env.do(t, http.MethodGet, "/api/prices/platinum", nil, uuid.Nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBatchEndpoints(t *testing.T) {
	winner := &model.LotteryWinner{ID: uuid.New(), UserID: uuid.New(), Prize: decimal.NewFromInt(22), Tickets: 3, TotalTickets: 103}
	svc := &stubService{
		distribution: service.DistributionResult{Distributed: true, Pool: decimal.NewFromInt(30), Base: decimal.NewFromInt(970), Investors: 1, Message: "distributed $30.00 among 1 investors"},
		draw:         service.DrawResult{Drawn: true, Winner: winner, Message: "lottery won"},
	}
	env := newTestEnv(t, svc)
	admin := uuid.New()

	rec := env.do(t, http.MethodPost, "/api/admin/profits/distribute", nil, admin, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "distributed $30.00 among 1 investors", decodeEnvelope(t, rec).Message)

	rec = env.do(t, http.MethodPost, "/api/admin/bonuses/unlock", nil, admin, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no bonuses are eligible for unlocking", decodeEnvelope(t, rec).Message)

	rec = env.do(t, http.MethodPost, "/api/admin/lottery/draw", nil, admin, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	var draw struct {
		Drawn  bool           `json:"drawn"`
		Winner winnerResponse `json:"winner"`
	}
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &draw))
	assert.True(t, draw.Drawn)
	assert.Equal(t, int64(103), draw.Winner.TotalTickets)

	rec = env.do(t, http.MethodGet, "/api/admin/lottery/winners?limit=5", nil, admin, model.RoleAdmin)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.gotLimit)

	rec = env.do(t, http.MethodGet, "/api/admin/lottery/winners?limit=abc", nil, admin, model.RoleAdmin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClearTestData(t *testing.T) {
	svc := &stubService{}
	env := newTestEnv(t, svc)
	admin := uuid.New()

	rec := env.do(t, http.MethodPost, "/api/admin/test-data/clear", nil, admin, model.RoleAdmin)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, admin, svc.gotActor)
}

func TestDashboard(t *testing.T) {
	unlocked := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := &stubService{dashboard: &model.Dashboard{
		Balance: model.Balance{
			Withdrawable:     decimal.NewFromInt(20),
			ActiveInvestment: decimal.NewFromInt(940),
			Total:            decimal.NewFromInt(960),
		},
		Tickets: 94,
		Bonus: &model.Bonus{
			Amount: decimal.NewFromInt(10), Status: model.BonusStatusUnlocked,
			AwardedAt: unlocked, UnlockedAt: &unlocked,
		},
	}}
	env := newTestEnv(t, svc)

	rec := env.do(t, http.MethodGet, "/api/user/dashboard", nil, uuid.New(), model.RoleUser)

	require.Equal(t, http.StatusOK, rec.Code)
	var data dashboardResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, int64(94), data.Tickets)
	assert.True(t, decimal.NewFromInt(960).Equal(data.Balance.Total))
	require.NotNil(t, data.Bonus)
	assert.Equal(t, "unlocked", data.Bonus.Status)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	env.do(t, http.MethodGet, "/api/settings/public", nil, uuid.Nil, "")
	rec := env.do(t, http.MethodGet, "/metrics", nil, uuid.Nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fundvault_http_requests_total{method="GET",route="/api/settings/public",status="200"} 1`)
}

func TestNotFound_Envelope(t *testing.T) {
	env := newTestEnv(t, &stubService{})

	rec := env.do(t, http.MethodGet, "/api/nope", nil, uuid.Nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decodeEnvelope(t, rec).Success)
}

func TestCORS_AllowsConfiguredOriginsOnly(t *testing.T) {
	auth := middleware.NewAuthMiddleware("test-secret")
	h := NewHandler(&stubService{}, zap.NewNop(), auth, prometheus.NewRegistry(),
		WithAllowedOrigins([]string{"https://app.fundvault.io"}))
	router := h.SetupRouter()

	preflight := func(r http.Handler, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/user/dashboard", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(router, "https://app.fundvault.io")
	assert.Equal(t, "https://app.fundvault.io", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight(router, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = preflight(newTestEnv(t, &stubService{}).router, "https://app.fundvault.io")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
