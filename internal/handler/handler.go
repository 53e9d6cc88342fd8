// Package handler содержит HTTP-обработчики API платформы fundvault.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/middleware"
	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
	"github.com/mmeshcher/fundvault/internal/service"
	"github.com/mmeshcher/fundvault/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, req service.RegisterRequest) (*model.User, error)
	Authenticate(ctx context.Context, req service.LoginRequest) (*model.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*model.User, error)

	GetDashboard(ctx context.Context, userID uuid.UUID) (*model.Dashboard, error)
	ListTransactions(ctx context.Context, userID uuid.UUID) ([]model.Transaction, error)
	ListCommissions(ctx context.Context, referrerID uuid.UUID) ([]model.Commission, error)
	Price(ctx context.Context, fund model.Fund) (service.PriceQuote, error)

	SubmitInvestment(ctx context.Context, req service.InvestmentRequest) (*model.Investment, error)
	GetInvestment(ctx context.Context, userID, id uuid.UUID) (*model.Investment, error)
	ListUserInvestments(ctx context.Context, userID uuid.UUID) ([]model.Investment, error)
	CreateWithdrawal(ctx context.Context, req service.WithdrawalRequest) (*model.Withdrawal, error)
	ListUserWithdrawals(ctx context.Context, userID uuid.UUID) ([]model.Withdrawal, error)

	GetSettings(ctx context.Context) (model.PlatformSettings, error)
	GetPublicSettings(ctx context.Context) (service.PublicSettings, error)
	UpdateSettings(ctx context.Context, st model.PlatformSettings) (model.PlatformSettings, error)

	Stats(ctx context.Context) (*model.PlatformStats, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	SetUserStatus(ctx context.Context, actorID, userID uuid.UUID, status model.UserStatus) error
	ListInvestmentsByStatus(ctx context.Context, status model.InvestmentStatus) ([]model.Investment, error)
	TransitionInvestment(ctx context.Context, id uuid.UUID, target model.InvestmentStatus, reason string) (service.Result, error)
	ListWithdrawalsByStatus(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error)
	TransitionWithdrawal(ctx context.Context, id uuid.UUID, target model.WithdrawalStatus, reason string) (service.Result, error)
	DistributeProfits(ctx context.Context) (service.DistributionResult, error)
	UnlockBonuses(ctx context.Context) (service.UnlockResult, error)
	RunLotteryDraw(ctx context.Context) (service.DrawResult, error)
	ListLotteryWinners(ctx context.Context, limit int) ([]model.LotteryWinner, error)
	ClearTestData(ctx context.Context, adminID uuid.UUID) error
}

// Handler реализует HTTP-обработчики API платформы.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	validator      *validation.Validator
	registry       *prometheus.Registry
	metrics        *middleware.Metrics
	allowedOrigins []string
}

// Option настраивает Handler.
type Option func(*Handler)

// WithAllowedOrigins разрешает кросс-доменные запросы с cookie из перечисленных источников.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.allowedOrigins = origins }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// Метрики запросов регистрируются в reg; при nil создаётся собственный реестр.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, reg *prometheus.Registry, opts ...Option) *Handler {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		validator:      validation.New(),
		registry:       reg,
		metrics:        middleware.NewMetrics(reg),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: status < http.StatusBadRequest, Message: message, Data: data}); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeFail(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, message, nil)
}

// writeError переводит ошибку сервиса в HTTP-статус. Неизвестные ошибки пишутся в журнал
// и скрываются от клиента.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(op+" error", zap.Error(err))
		h.writeFail(w, status, http.StatusText(status))
		return
	}
	if status == http.StatusBadGateway {
		h.logger.Warn(op+" price error", zap.Error(err))
	}
	h.writeFail(w, status, err.Error())
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrInvalidFund, http.StatusBadRequest},
	{service.ErrInvalidTxHash, http.StatusBadRequest},
	{service.ErrInvalidWallet, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidSettings, http.StatusBadRequest},
	{service.ErrRejectionReasonRequired, http.StatusBadRequest},
	{service.ErrWeakPassword, http.StatusBadRequest},
	{service.ErrUnknownReferrer, http.StatusBadRequest},
	{service.ErrBelowMinimum, http.StatusUnprocessableEntity},
	{service.ErrNonPositiveNet, http.StatusUnprocessableEntity},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrUserBlocked, http.StatusForbidden},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrInvalidTwoFactor, http.StatusForbidden},
	{service.ErrInsufficientBalance, http.StatusPaymentRequired},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrPendingWithdrawalExists, http.StatusConflict},
	{repository.ErrUserExists, http.StatusConflict},
	{repository.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrInvestmentNotFound, http.StatusNotFound},
	{repository.ErrWithdrawalNotFound, http.StatusNotFound},
	{service.ErrMaintenance, http.StatusServiceUnavailable},
	{service.ErrPriceUnavailable, http.StatusBadGateway},
}

func statusFor(err error) int {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// decodeAndValidate читает JSON-тело запроса и проверяет его тегами validate.
// При ошибке ответ уже записан.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeFail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.writeFail(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeFail(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return uuid.Nil, false
	}
	return userID, true
}
