package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/coachbook/pkg/observability"
)

// HealthChecker degrades the process when events pile up: dead-lettered
// messages exist, or the oldest pending message is older than maxLag.
// A zero maxLag disables the lag rule.
func HealthChecker(repo Repository, maxLag time.Duration) observability.HealthChecker {
	return func(ctx context.Context) observability.HealthCheckResult {
		backlog, err := repo.Backlog(ctx)
		if err != nil {
			return observability.HealthCheckResult{
				Status:  observability.HealthStatusDegraded,
				Message: "outbox backlog unavailable: " + err.Error(),
			}
		}

		result := observability.HealthCheckResult{
			Status:  observability.HealthStatusHealthy,
			Message: fmt.Sprintf("%d pending, %d dead", backlog.Pending, backlog.Dead),
			Details: map[string]any{
				"pending": backlog.Pending,
				"dead":    backlog.Dead,
			},
		}
		lag := backlog.Lag(time.Now())
		if backlog.OldestPendingAt != nil {
			result.Details["lag_seconds"] = lag.Seconds()
		}

		if backlog.Dead > 0 || (maxLag > 0 && lag > maxLag) {
			result.Status = observability.HealthStatusDegraded
		}
		return result
	}
}
