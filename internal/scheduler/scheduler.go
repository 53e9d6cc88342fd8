// Package scheduler запускает фоновые задания платформы по cron-расписанию.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/fundvault/internal/service"
)

const defaultJobTimeout = 5 * time.Minute

// Distributor выполняет распределение прибыли.
type Distributor interface {
	DistributeProfits(ctx context.Context) (service.DistributionResult, error)
}

// Scheduler управляет cron-заданиями.
type Scheduler struct {
	cron        *cron.Cron
	distributor Distributor
	logger      *zap.Logger
	timeout     time.Duration
}

// New создаёт планировщик и регистрирует распределение прибыли по расписанию schedule.
func New(d Distributor, logger *zap.Logger, schedule string) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))

	s := &Scheduler{
		cron:        cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		distributor: d,
		logger:      logger,
		timeout:     defaultJobTimeout,
	}

	if _, err := s.cron.AddFunc(schedule, s.runDistribution); err != nil {
		return nil, fmt.Errorf("schedule profit distribution %q: %w", schedule, err)
	}
	logger.Info("scheduled profit distribution job", zap.String("schedule", schedule))
	return s, nil
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик. Возвращённый контекст завершается, когда выполняющиеся задания закончены.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runDistribution() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.distributor.DistributeProfits(ctx)
	if err != nil {
		s.logger.Error("scheduled profit distribution failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled profit distribution finished",
		zap.Bool("distributed", res.Distributed),
		zap.String("message", res.Message),
	)
}
