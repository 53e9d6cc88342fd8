package handler

import (
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/service"
)

// Register обрабатывает регистрацию нового пользователя и сразу открывает сессию.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterRequest{
		Email:        req.Email,
		Name:         req.Name,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
	})
	if err != nil {
		h.writeError(w, "register user", err)
		return
	}

	h.startSession(w, user, http.StatusCreated, "registration successful")
}

// Login выполняет аутентификацию пользователя и устанавливает cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.service.Authenticate(r.Context(), service.LoginRequest{
		Email:     req.Email,
		Password:  req.Password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.writeError(w, "login user", err)
		return
	}

	h.startSession(w, user, http.StatusOK, "login successful")
}

// Logout удаляет cookie сессии.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authMiddleware.ClearAuthCookie(w)
	h.writeJSON(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) startSession(w http.ResponseWriter, user *model.User, status int, message string) {
	token, err := h.authMiddleware.IssueToken(user.ID, user.Role)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err), zap.String("userID", user.ID.String()))
		h.writeFail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	h.authMiddleware.SetAuthCookie(w, token)

	h.writeJSON(w, status, message, authResponse{User: newUserResponse(user), Token: token})
}

// clientIP возвращает адрес клиента без порта. RealIP в маршрутизаторе уже подставил X-Forwarded-For.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
