package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"skincare-backend/internal/photos"
	"skincare-backend/internal/shared/metrics"
	"skincare-backend/internal/shared/telemetry"
)

// Dispatcher schedules the processing step for a request onto a worker,
// asynchronously from the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID string) error
}

// Recommender derives product suggestions from a completed analysis.
type Recommender interface {
	GenerateForAnalysis(ctx context.Context, analysis Analysis) error
}

// Service contains business logic for analysis requests.
type Service struct {
	Repo        Repo
	Photos      photos.Repo
	Engine      Engine
	Dispatcher  Dispatcher
	Recommender Recommender
}

// Create registers an analysis request for a photo and dispatches it.
// A photo with a completed result short-circuits to that result; an
// active request for the same photo is returned instead of a new one.
func (s *Service) Create(ctx context.Context, userID, photoID string, additional map[string]any) (CreateOutcome, error) {
	if userID == "" || photoID == "" {
		return CreateOutcome{}, errors.New("userID and photoID are required")
	}

	photo, err := s.Photos.GetByID(ctx, userID, photoID)
	if err != nil {
		if errors.Is(err, photos.ErrNotFound) {
			return CreateOutcome{}, ErrNotFound
		}
		return CreateOutcome{}, err
	}

	// A declared skin profile on the request refreshes the photo's
	// metadata before the engine reads it.
	if meta, changed := mergeDeclaredProfile(photo.Metadata, additional); changed {
		if err := s.Photos.UpdateMetadata(ctx, userID, photoID, meta); err != nil {
			return CreateOutcome{}, err
		}
	}

	req := AnalysisRequest{
		ID:             uuid.NewString(),
		UserID:         userID,
		PhotoID:        photoID,
		Status:         StatusPending,
		AdditionalData: additional,
		CreatedAt:      time.Now().UTC(),
	}

	outcome, err := s.Repo.GetOrCreateForPhoto(ctx, req)
	if err != nil {
		return CreateOutcome{}, err
	}
	if !outcome.Created {
		return outcome, nil
	}

	metrics.IncAnalysisRequested()
	telemetry.Info("analysis.request.created", map[string]any{
		"request_id":          requestIDFromContext(ctx),
		"user_id":             userID,
		"photo_id":            photoID,
		"analysis_request_id": outcome.Request.ID,
		"status":              string(StatusPending),
	})

	if err := s.Dispatcher.Dispatch(ctx, outcome.Request.ID); err != nil {
		reason := fmt.Sprintf("dispatch: %s", sanitizeReason(err))
		if failErr := s.Repo.MarkFailed(context.Background(), outcome.Request.ID, reason); failErr != nil && !errors.Is(failErr, ErrStale) {
			telemetry.Error("analysis.request.fail_write", map[string]any{
				"analysis_request_id": outcome.Request.ID,
				"error":               failErr.Error(),
			})
		}
		return CreateOutcome{}, err
	}

	return outcome, nil
}

// StatusView is the poll response for one request.
type StatusView struct {
	RequestID    string
	Status       Status
	AnalysisID   string
	Result       *Result
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Status returns the current state of a request scoped to its owner.
// The stored result is embedded once the request completes.
func (s *Service) Status(ctx context.Context, userID, requestID string) (StatusView, error) {
	if userID == "" || requestID == "" {
		return StatusView{}, errors.New("userID and requestID are required")
	}

	req, err := s.Repo.GetRequest(ctx, userID, requestID)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{
		RequestID:    req.ID,
		Status:       req.Status,
		AnalysisID:   req.AnalysisID,
		ErrorMessage: req.ErrorMessage,
		CreatedAt:    req.CreatedAt,
		CompletedAt:  req.CompletedAt,
	}
	if req.Status == StatusCompleted && req.AnalysisID != "" {
		analysis, err := s.Repo.GetAnalysis(ctx, userID, req.AnalysisID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return StatusView{}, err
		}
		if err == nil {
			view.Result = &analysis.Result
		}
	}
	return view, nil
}

// GetAnalysis returns a stored result scoped to its owner.
func (s *Service) GetAnalysis(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if userID == "" || analysisID == "" {
		return Analysis{}, errors.New("userID and analysisID are required")
	}
	return s.Repo.GetAnalysis(ctx, userID, analysisID)
}

// ListAnalyses returns a user's stored results newest-first.
func (s *Service) ListAnalyses(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListAnalysesByUser(ctx, userID, limit, offset)
}

// Process runs one analysis request to a terminal state. It is the
// worker entry point: MarkProcessing gates concurrent pickup, the
// engine runs, and the outcome lands in the ledger before Process
// returns. A nil return means the message may be acknowledged.
func (s *Service) Process(ctx context.Context, requestID string) error {
	if requestID == "" {
		return errors.New("requestID is required")
	}

	startedAt := time.Now().UTC()

	if err := s.Repo.MarkProcessing(ctx, requestID); err != nil {
		if errors.Is(err, ErrStale) || errors.Is(err, ErrNotFound) {
			// Already picked up, swept, or purged. Nothing to do.
			telemetry.Info("analysis.request.skip", map[string]any{
				"analysis_request_id": requestID,
				"reason":              err.Error(),
			})
			return nil
		}
		return fmt.Errorf("mark processing: %w", err)
	}

	req, err := s.Repo.GetRequestByID(ctx, requestID)
	if err != nil {
		s.fail(ctx, requestID, "", "", fmt.Errorf("request lookup: %w", err), startedAt)
		return nil
	}

	metrics.IncAnalysisStarted()
	telemetry.Info("analysis.request.status", map[string]any{
		"request_id":          requestIDFromContext(ctx),
		"user_id":             req.UserID,
		"photo_id":            req.PhotoID,
		"analysis_request_id": req.ID,
		"status":              string(StatusProcessing),
		"status_transition":   "pending->processing",
	})

	photo, err := s.Photos.GetByID(ctx, req.UserID, req.PhotoID)
	if err != nil {
		s.fail(ctx, requestID, req.UserID, req.PhotoID, fmt.Errorf("photo lookup id=%s: %w", req.PhotoID, err), startedAt)
		return nil
	}

	result, err := s.Engine.Analyze(ctx, photo)
	if err != nil {
		s.fail(ctx, requestID, req.UserID, req.PhotoID, err, startedAt)
		return nil
	}

	analysis := Analysis{
		ID:        uuid.NewString(),
		PhotoID:   req.PhotoID,
		UserID:    req.UserID,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.SaveAnalysis(ctx, analysis); err != nil {
		s.fail(ctx, requestID, req.UserID, req.PhotoID, fmt.Errorf("save analysis: %w", err), startedAt)
		return nil
	}

	if err := s.Repo.MarkCompleted(ctx, requestID, analysis.ID); err != nil {
		if errors.Is(err, ErrStale) {
			// Swept to failed while the engine ran. The terminal record wins.
			telemetry.Info("analysis.request.skip", map[string]any{
				"analysis_request_id": requestID,
				"reason":              "completed after terminal transition",
			})
			return nil
		}
		s.fail(ctx, requestID, req.UserID, req.PhotoID, fmt.Errorf("mark completed: %w", err), startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("analysis.request.status", map[string]any{
		"request_id":          requestIDFromContext(ctx),
		"user_id":             req.UserID,
		"photo_id":            req.PhotoID,
		"analysis_request_id": req.ID,
		"analysis_id":         analysis.ID,
		"status":              string(StatusCompleted),
		"status_transition":   "processing->completed",
		"duration_ms":         completedAt.Sub(startedAt).Milliseconds(),
	})

	if s.Recommender != nil {
		if err := s.Recommender.GenerateForAnalysis(ctx, analysis); err != nil {
			telemetry.Error("analysis.recommendation.failed", map[string]any{
				"user_id":     req.UserID,
				"analysis_id": analysis.ID,
				"error":       err.Error(),
			})
		}
	}

	return nil
}

// fail records a terminal failure. The write uses a fresh context so a
// canceled job context cannot keep the request stuck in processing.
func (s *Service) fail(ctx context.Context, requestID, userID, photoID string, cause error, startedAt time.Time) {
	reason := sanitizeReason(cause)
	if err := s.Repo.MarkFailed(backgroundWithRequestID(ctx), requestID, reason); err != nil && !errors.Is(err, ErrStale) {
		telemetry.Error("analysis.request.fail_write", map[string]any{
			"analysis_request_id": requestID,
			"error":               err.Error(),
			"cause":               reason,
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncAnalysisFailed()
	metrics.ObserveAnalysisDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("analysis.request.status", map[string]any{
		"request_id":          requestIDFromContext(ctx),
		"user_id":             userID,
		"photo_id":            photoID,
		"analysis_request_id": requestID,
		"status":              string(StatusFailed),
		"status_transition":   "processing->failed",
		"error":               reason,
		"duration_ms":         completedAt.Sub(startedAt).Milliseconds(),
	})
}

func mergeDeclaredProfile(meta photos.Metadata, additional map[string]any) (photos.Metadata, bool) {
	changed := false
	if v, ok := additional["skin_type"].(string); ok && v != "" && v != meta.SkinType {
		meta.SkinType = v
		changed = true
	}
	if v, ok := additional["skin_concerns"].([]string); ok && len(v) > 0 {
		meta.SkinConcerns = v
		changed = true
	}
	return meta, changed
}

func sanitizeReason(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
