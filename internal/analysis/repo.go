package analysis

import (
	"context"
	"time"
)

// CreateOutcome is the result of the check-and-create on the request
// ledger. Exactly one of the three shapes holds: Created is true and
// Request is the new pending record; Created is false and Request is an
// existing active record (duplicate suppression); or ExistingAnalysisID
// is set because the photo already has a completed result.
type CreateOutcome struct {
	Request            AnalysisRequest
	Created            bool
	ExistingAnalysisID string
}

// Repo defines persistence operations for the request ledger and stored
// analysis results.
type Repo interface {
	// GetOrCreateForPhoto atomically checks for a completed analysis and
	// an active request before inserting req. The check and the insert
	// form one critical section per photo.
	GetOrCreateForPhoto(ctx context.Context, req AnalysisRequest) (CreateOutcome, error)

	// GetRequest is ownership scoped; unknown or foreign ids are ErrNotFound.
	GetRequest(ctx context.Context, userID, requestID string) (AnalysisRequest, error)
	// GetRequestByID is the worker-side unscoped read.
	GetRequestByID(ctx context.Context, requestID string) (AnalysisRequest, error)
	ListRequestsByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisRequest, error)

	// MarkProcessing moves pending to processing. ErrStale when the
	// request is no longer pending.
	MarkProcessing(ctx context.Context, requestID string) error
	// MarkCompleted moves processing to completed and records the result
	// reference. ErrStale when the request is not processing.
	MarkCompleted(ctx context.Context, requestID, analysisID string) error
	// MarkFailed moves pending or processing to failed with a reason.
	// ErrStale when the request is already terminal.
	MarkFailed(ctx context.Context, requestID, reason string) error

	SaveAnalysis(ctx context.Context, analysis Analysis) error
	GetAnalysis(ctx context.Context, userID, analysisID string) (Analysis, error)
	ListAnalysesByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	// GetAnalysesByIDs returns the user's analyses for the given ids in
	// no particular order; ids that do not resolve are simply absent.
	GetAnalysesByIDs(ctx context.Context, userID string, analysisIDs []string) ([]Analysis, error)

	// DeleteTerminalBefore purges completed/failed requests created
	// before the cutoff. Returns the number of rows removed.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// ListStuckBefore returns active requests created before the cutoff.
	ListStuckBefore(ctx context.Context, cutoff time.Time) ([]AnalysisRequest, error)
}
