package services

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AnshRaj112/moodjournal-backend/pkg/logger"
)

// StartRiskSchedule runs the scorer on a cron expression (standard five fields or
// descriptors such as "@daily"). The returned stop func waits for a running
// pass to finish.
func StartRiskSchedule(ctx context.Context, schedule string, scorer *RiskScorer) (func(), error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Hour)
		defer cancel()
		if _, err := scorer.Run(runCtx, "schedule"); err != nil && !errors.Is(err, ErrBatchInProgress) {
			logger.L().Error("scheduled depression risk batch failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	logger.L().Info("✅ Depression risk schedule started", "schedule", schedule)

	return func() {
		<-c.Stop().Done()
	}, nil
}
