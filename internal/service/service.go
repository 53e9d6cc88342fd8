// Package service реализует бизнес-логику платформы: жизненные циклы инвестиций и выводов,
// распределение прибыли, бонусы, реферальные начисления и лотерею.
package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/model"
	"github.com/mmeshcher/fundvault/internal/notify"
	"github.com/mmeshcher/fundvault/internal/repository"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	repository.Querier
	WithinTx(ctx context.Context, fn func(q repository.Querier) error) error
	Close() error
}

// PriceSource возвращает цену единицы фонда в долларах.
type PriceSource interface {
	USDPrice(ctx context.Context, fund model.Fund) (decimal.Decimal, error)
}

// Result содержит итог административной операции: изменилось ли что-то и сообщение для интерфейса.
type Result struct {
	Changed bool
	Message string
}

// Service содержит бизнес-логику платформы.
type Service struct {
	repo          Repository
	prices        PriceSource
	publisher     notify.Publisher
	logger        *zap.Logger
	twoFactorCode string
	adminEmail    string
	now           func() time.Time
	pick          func(n int64) int64
}

// Option настраивает Service.
type Option func(*Service)

// WithTwoFactorCode задаёт код подтверждения вывода средств.
func WithTwoFactorCode(code string) Option {
	return func(s *Service) { s.twoFactorCode = code }
}

// WithAdminEmail задаёт email учётной записи, которая при регистрации получает роль администратора.
func WithAdminEmail(email string) Option {
	return func(s *Service) { s.adminEmail = normalizeEmail(email) }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPicker подменяет источник случайности для розыгрыша лотереи.
func WithPicker(pick func(n int64) int64) Option {
	return func(s *Service) { s.pick = pick }
}

// NewService создаёт новый сервис с указанным репозиторием, ценовым оракулом и публикатором уведомлений.
func NewService(repo Repository, prices PriceSource, publisher notify.Publisher, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = notify.NewLogPublisher(logger)
	}

	s := &Service{
		repo:      repo,
		prices:    prices,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
		pick:      rand.Int64N,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	var errs []error
	if s.publisher != nil {
		errs = append(errs, s.publisher.Close())
	}
	if s.repo != nil {
		errs = append(errs, s.repo.Close())
	}
	return errors.Join(errs...)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// loadSettings читает настройки через q; до первого сохранения действуют значения по умолчанию.
func loadSettings(ctx context.Context, q repository.Querier) (model.PlatformSettings, error) {
	st, err := q.GetSettings(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return model.DefaultSettings(), nil
		}
		return model.PlatformSettings{}, err
	}
	return *st, nil
}

// notifyAll публикует уведомления после фиксации транзакции. Ошибки только логируются.
func (s *Service) notifyAll(ctx context.Context, ns []model.Notification) {
	for _, n := range ns {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("publish notification failed",
				zap.Error(err),
				zap.String("userID", n.UserID.String()),
				zap.String("kind", n.Kind),
			)
		}
	}
}
