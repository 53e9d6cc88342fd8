package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/service"
)

// GetPrice возвращает текущую цену фонда в долларах.
func (h *Handler) GetPrice(w http.ResponseWriter, r *http.Request) {
	fund := model.Fund(strings.ToLower(chi.URLParam(r, "fund")))

	quote, err := h.service.Price(r.Context(), fund)
	if err != nil {
		h.writeError(w, "get price", err)
		return
	}

	h.writeJSON(w, http.StatusOK, "", map[string]any{
		"fund": quote.Fund,
		"usd":  quote.USD,
	})
}

// GetPublicSettings возвращает комиссии и адреса кошельков для пополнения.
func (h *Handler) GetPublicSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.GetPublicSettings(r.Context())
	if err != nil {
		h.writeError(w, "get public settings", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newPublicSettingsResponse(st))
}

// GetProfile возвращает профиль текущего пользователя.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get profile", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newUserResponse(user))
}

// UpdateProfile меняет имя текущего пользователя.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, req.Name)
	if err != nil {
		h.writeError(w, "update profile", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "profile updated", newUserResponse(user))
}

// GetDashboard возвращает сводку личного кабинета.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	d, err := h.service.GetDashboard(r.Context(), userID)
	if err != nil {
		h.writeError(w, "get dashboard", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newDashboardResponse(d))
}

// SubmitInvestment принимает заявку на вложение в фонд.
func (h *Handler) SubmitInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req investmentRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	inv, err := h.service.SubmitInvestment(r.Context(), service.InvestmentRequest{
		UserID:          userID,
		Fund:            model.Fund(req.Fund),
		Amount:          req.Amount,
		TransactionHash: req.TransactionHash,
	})
	if err != nil {
		h.writeError(w, "submit investment", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, "investment submitted for review", newInvestmentResponse(inv))
}

// ListInvestments возвращает вложения текущего пользователя.
func (h *Handler) ListInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListUserInvestments(r.Context(), userID)
	if err != nil {
		h.writeError(w, "list investments", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newInvestmentList(items))
}

// GetInvestment возвращает одну инвестицию текущего пользователя.
func (h *Handler) GetInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetInvestment(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, "get investment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newInvestmentResponse(inv))
}

// ListTransactions возвращает журнал текущего пользователя.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, "list transactions", err)
		return
	}

	resp := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		tr := transactionResponse{
			ID:          t.ID.String(),
			Type:        string(t.Type),
			Amount:      t.Amount,
			Status:      t.Status,
			Description: t.Description,
			CreatedAt:   t.CreatedAt.Format(time.RFC3339),
		}
		if t.ReferenceID != nil {
			tr.ReferenceID = t.ReferenceID.String()
		}
		resp = append(resp, tr)
	}
	h.writeJSON(w, http.StatusOK, "", resp)
}

// CreateWithdrawal принимает заявку на вывод средств.
func (h *Handler) CreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req withdrawalRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	wd, err := h.service.CreateWithdrawal(r.Context(), service.WithdrawalRequest{
		UserID:        userID,
		Amount:        req.Amount,
		WalletAddress: req.WalletAddress,
		TwoFactorCode: req.TwoFactorCode,
	})
	if err != nil {
		h.writeError(w, "create withdrawal", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, "withdrawal requested", newWithdrawalResponse(wd))
}

// ListWithdrawals возвращает заявки на вывод текущего пользователя.
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListUserWithdrawals(r.Context(), userID)
	if err != nil {
		h.writeError(w, "list withdrawals", err)
		return
	}
	h.writeJSON(w, http.StatusOK, "", newWithdrawalList(items))
}

// ListCommissions возвращает реферальные начисления текущего пользователя.
func (h *Handler) ListCommissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListCommissions(r.Context(), userID)
	if err != nil {
		h.writeError(w, "list commissions", err)
		return
	}

	resp := make([]commissionResponse, 0, len(items))
	for _, c := range items {
		resp = append(resp, commissionResponse{
			ID:               c.ID.String(),
			ReferredUserID:   c.ReferredUserID.String(),
			InvestmentID:     c.InvestmentID.String(),
			InvestmentAmount: c.InvestmentAmount,
			CommissionAmount: c.CommissionAmount,
			CreatedAt:        c.CreatedAt.Format(time.RFC3339),
		})
	}
	h.writeJSON(w, http.StatusOK, "", resp)
}
