package incidents

import (
	"context"
	"log/slog"
)

// RunRetentionSweep removes incidents whose terminal closedAt is older
// than the configured retention window, along with their investigations
// and evidence via registered hooks. Called from the background
// scheduler; must not run concurrently with the escalation sweep over
// the same incident, which the per-incident lock guarantees.
func (s *Service) RunRetentionSweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.config.RetentionWindow)
	expired, err := s.repo.List(ctx, Filters{ClosedBefore: &cutoff})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, inc := range expired {
		mu := s.lockFor(inc.ID)
		mu.Lock()
		err := s.repo.Delete(ctx, inc.ID)
		mu.Unlock()
		if err != nil {
			slog.Error("retention delete failed", "incident_id", inc.ID, "error", err)
			continue
		}
		s.locks.Delete(inc.ID)

		for _, h := range s.hooks {
			h.RemoveByIncident(inc.ID)
		}
		removed++
	}

	if removed > 0 {
		slog.Info("retention sweep removed incidents", "count", removed)
	}
	return removed, nil
}
