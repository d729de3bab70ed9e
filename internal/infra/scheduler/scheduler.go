package scheduler

import (
	"context"
	"time"

	"giveaway_payout_service/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// payoutJobTimeout bounds one scheduled execution pass, including all
// sequential transfer calls of a batch.
const payoutJobTimeout = 10 * time.Minute

// PayoutRunner triggers one payout execution pass.
type PayoutRunner interface {
	Execute(ctx context.Context, dryRun bool) (*app.PayoutSummary, error)
}

// PayoutScheduler fires the payout executor on a cron spec. Overlapping
// firings (and overlapping manual triggers) are harmless: the store's claim
// compare-and-set is the sole duplicate-payout guard, not caller discipline.
type PayoutScheduler struct {
	cronEngine     *cron.Cron
	payoutRunner   PayoutRunner
	logger         *logrus.Logger
	cronSpecPayout string
}

func NewPayoutScheduler(payoutRunner PayoutRunner, logger *logrus.Logger, cronSpecPayout string) *PayoutScheduler {
	return &PayoutScheduler{
		cronEngine:     cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		payoutRunner:   payoutRunner,
		logger:         logger,
		cronSpecPayout: cronSpecPayout,
	}
}

func (s *PayoutScheduler) Start() error {
	s.logger.Info("Starting payout scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpecPayout, func() {
		s.logger.Debug("Cron job triggered for payout execution.")
		ctx, cancel := context.WithTimeout(context.Background(), payoutJobTimeout)
		defer cancel()

		summary, err := s.payoutRunner.Execute(ctx, false)
		if err != nil {
			s.logger.Errorf("Error during scheduled payout execution: %v", err)
			return
		}
		s.logger.Infof("Scheduled payout execution finished: %s", summary.Message)
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Infof("Payout scheduler started with spec %q.", s.cronSpecPayout)
	return nil
}

func (s *PayoutScheduler) Stop() {
	s.logger.Info("Stopping payout scheduler...")
	ctx := s.cronEngine.Stop() // Stops new firings, waits for running jobs.
	<-ctx.Done()               // Wait for graceful shutdown
	s.logger.Info("Payout scheduler gracefully stopped.")
}
