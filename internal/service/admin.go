package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/repository"
)

// ClearTestData удаляет все бизнес-данные и всех пользователей, кроме вызывающего администратора.
func (s *Service) ClearTestData(ctx context.Context, adminID uuid.UUID) error {
	admin, err := s.repo.GetUserByID(ctx, adminID)
	if err != nil {
		return err
	}
	if !admin.IsAdmin() {
		return ErrForbidden
	}

	err = s.repo.WithinTx(ctx, func(q repository.Querier) error {
		return q.ClearTestData(ctx, adminID)
	})
	if err != nil {
		return err
	}

	s.logger.Warn("test data cleared", zap.String("by", adminID.String()))
	return nil
}
