package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skincare-backend/internal/shared/metrics"
	"skincare-backend/internal/shared/telemetry"
)

// SweepStats summarizes one maintenance pass.
type SweepStats struct {
	Deleted  int64
	TimedOut int
}

// Sweep performs the periodic ledger maintenance: terminal requests
// older than the cutoff are purged, and requests stuck in
// pending/processing past the cutoff are force-failed through the same
// MarkFailed guard the worker uses, so a genuine late completion and
// the sweep cannot both win.
func (s *Service) Sweep(ctx context.Context, olderThan time.Duration) (SweepStats, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	deleted, err := s.Repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return SweepStats{}, fmt.Errorf("delete terminal: %w", err)
	}

	stuck, err := s.Repo.ListStuckBefore(ctx, cutoff)
	if err != nil {
		return SweepStats{Deleted: deleted}, fmt.Errorf("list stuck: %w", err)
	}

	stats := SweepStats{Deleted: deleted}
	reason := fmt.Sprintf("%s analysis request exceeded the %s processing window", TimeoutReasonPrefix, olderThan)
	for _, req := range stuck {
		if err := s.Repo.MarkFailed(ctx, req.ID, reason); err != nil {
			if errors.Is(err, ErrStale) {
				// A worker finished between the scan and this write.
				continue
			}
			return stats, fmt.Errorf("mark failed %s: %w", req.ID, err)
		}
		stats.TimedOut++
		metrics.IncAnalysisTimedOut()
		telemetry.Info("analysis.request.status", map[string]any{
			"user_id":             req.UserID,
			"photo_id":            req.PhotoID,
			"analysis_request_id": req.ID,
			"status":              string(StatusFailed),
			"status_transition":   string(req.Status) + "->failed",
			"error":               reason,
		})
	}

	telemetry.Info("analysis.sweep.done", map[string]any{
		"cutoff":    cutoff.Format(time.RFC3339),
		"deleted":   stats.Deleted,
		"timed_out": stats.TimedOut,
	})
	return stats, nil
}
