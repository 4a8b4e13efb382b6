package workers

import (
	"context"
	"log/slog"
	"sync"

	application "profitshare/contexts/finance-core/distribution-engine/application"
	"profitshare/contexts/finance-core/distribution-engine/application/commands"
	"profitshare/contexts/finance-core/distribution-engine/domain/entities"
	"profitshare/contexts/finance-core/distribution-engine/ports"
)

// DistributionScheduler triggers the daily run once per UTC day. A run that
// reported subject errors is attempted again on later ticks, up to MaxAttempts
// per period. Re-runs only credit subjects that were not credited yet.
type DistributionScheduler struct {
	Run         commands.RunDistributionUseCase
	Clock       ports.Clock
	MaxAttempts int
	Logger      *slog.Logger

	mu        sync.Mutex
	completed string
	period    string
	attempts  int
}

func (s *DistributionScheduler) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	periodKey := entities.PeriodKeyFor(application.Now(s.Clock))

	s.mu.Lock()
	if s.period != periodKey {
		s.period = periodKey
		s.attempts = 0
	}
	if s.completed == periodKey || s.attempts >= s.maxAttempts() {
		s.mu.Unlock()
		return nil
	}
	s.attempts++
	attempt := s.attempts
	s.mu.Unlock()

	result, err := s.Run.Execute(ctx, commands.RunDistributionCommand{
		PeriodKey: periodKey,
		ActorID:   entities.SystemActor,
	})
	if err != nil {
		logger.Error("scheduled distribution failed",
			"event", "distribution_scheduler_cycle_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"period_key", periodKey,
			"attempt", attempt,
			"error", err.Error(),
		)
		return err
	}
	if !result.Enabled {
		s.mu.Lock()
		s.attempts--
		s.mu.Unlock()
		return nil
	}
	if len(result.Errors) > 0 || result.Cancelled {
		logger.Warn("scheduled distribution incomplete",
			"event", "distribution_scheduler_cycle_incomplete",
			"module", application.ModuleName,
			"layer", "worker",
			"period_key", periodKey,
			"attempt", attempt,
			"errors", len(result.Errors),
			"cancelled", result.Cancelled,
		)
		return nil
	}

	s.mu.Lock()
	s.completed = periodKey
	s.mu.Unlock()
	logger.Info("scheduled distribution completed",
		"event", "distribution_scheduler_cycle_succeeded",
		"module", application.ModuleName,
		"layer", "worker",
		"period_key", periodKey,
		"run_id", result.RunID,
		"users_processed", result.UsersProcessed,
	)
	return nil
}

func (s *DistributionScheduler) maxAttempts() int {
	if s.MaxAttempts <= 0 {
		return 3
	}
	return s.MaxAttempts
}
