package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/repository"
)

const minPasswordLength = 8

// RegisterRequest содержит данные регистрации. ReferralCode равен идентификатору пригласившего пользователя.
type RegisterRequest struct {
	Email        string
	Name         string
	Password     string
	ReferralCode string
}

// LoginRequest содержит данные входа и сведения о клиенте для истории входов.
type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register регистрирует пользователя и возвращает его.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if len(req.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	email := normalizeEmail(req.Email)

	var referredBy *uuid.UUID
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		id, err := uuid.Parse(code)
		if err != nil {
			return nil, ErrUnknownReferrer
		}
		if _, err := s.repo.GetUserByID(ctx, id); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return nil, ErrUnknownReferrer
			}
			return nil, fmt.Errorf("get referrer: %w", err)
		}
		referredBy = &id
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleUser
	if s.adminEmail != "" && email == s.adminEmail {
		role = model.RoleAdmin
	}

	u := &model.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		Status:       model.UserStatusActive,
		ReferredBy:   referredBy,
		CreatedAt:    s.clock(),
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("userID", u.ID.String()), zap.String("role", string(role)))
	return u, nil
}

// Authenticate проверяет учётные данные и записывает вход в историю.
func (s *Service) Authenticate(ctx context.Context, req LoginRequest) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status == model.UserStatusBlocked {
		return nil, ErrUserBlocked
	}

	rec := model.LoginRecord{
		UserID:    u.ID,
		IP:        req.IP,
		UserAgent: req.UserAgent,
		CreatedAt: s.clock(),
	}
	if err := s.repo.AddLoginRecord(ctx, rec); err != nil {
		s.logger.Warn("failed to save login record", zap.Error(err), zap.String("userID", u.ID.String()))
	}

	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// UpdateProfile меняет отображаемое имя пользователя.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*model.User, error) {
	if err := s.repo.UpdateUserName(ctx, id, strings.TrimSpace(name)); err != nil {
		return nil, err
	}
	return s.repo.GetUserByID(ctx, id)
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// SetUserStatus блокирует или разблокирует пользователя. Администратор не может менять свой статус.
func (s *Service) SetUserStatus(ctx context.Context, actorID, userID uuid.UUID, status model.UserStatus) error {
	if status != model.UserStatusActive && status != model.UserStatusBlocked {
		return ErrInvalidStatus
	}
	if actorID == userID {
		return ErrForbidden
	}
	if err := s.repo.UpdateUserStatus(ctx, userID, status); err != nil {
		return err
	}

	s.logger.Info("user status changed",
		zap.String("userID", userID.String()),
		zap.String("status", string(status)),
		zap.String("by", actorID.String()),
	)
	return nil
}

// ensureActiveUser возвращает ошибку, если пользователь заблокирован.
func ensureActiveUser(ctx context.Context, q repository.Querier, id uuid.UUID) (*model.User, error) {
	u, err := q.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status == model.UserStatusBlocked {
		return nil, ErrUserBlocked
	}
	return u, nil
}
