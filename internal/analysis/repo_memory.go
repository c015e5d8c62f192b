package analysis

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps the ledger in memory. The mutex doubles as the
// per-photo critical section for check-and-create.
type MemoryRepo struct {
	mu         sync.Mutex
	requests   map[string]AnalysisRequest
	analyses   map[string]Analysis
	byPhoto    map[string][]string // photo id -> analysis ids
	requestIDs []string            // insertion order
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		requests: make(map[string]AnalysisRequest),
		analyses: make(map[string]Analysis),
		byPhoto:  make(map[string][]string),
	}
}

var _ Repo = (*MemoryRepo)(nil)

// GetOrCreateForPhoto checks for a completed analysis and an active
// request before inserting, all under one lock.
func (r *MemoryRepo) GetOrCreateForPhoto(ctx context.Context, req AnalysisRequest) (CreateOutcome, error) {
	if err := ctx.Err(); err != nil {
		return CreateOutcome{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if ids := r.byPhoto[req.PhotoID]; len(ids) > 0 {
		return CreateOutcome{ExistingAnalysisID: ids[len(ids)-1]}, nil
	}

	for i := len(r.requestIDs) - 1; i >= 0; i-- {
		existing := r.requests[r.requestIDs[i]]
		if existing.PhotoID == req.PhotoID && existing.UserID == req.UserID && existing.Status.Active() {
			return CreateOutcome{Request: existing, Created: false}, nil
		}
	}

	req.Status = StatusPending
	r.requests[req.ID] = req
	r.requestIDs = append(r.requestIDs, req.ID)
	return CreateOutcome{Request: req, Created: true}, nil
}

// GetRequest returns a request owned by the given user.
func (r *MemoryRepo) GetRequest(ctx context.Context, userID, requestID string) (AnalysisRequest, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRequest{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.UserID != userID {
		return AnalysisRequest{}, ErrNotFound
	}
	return req, nil
}

// GetRequestByID returns a request regardless of owner.
func (r *MemoryRepo) GetRequestByID(ctx context.Context, requestID string) (AnalysisRequest, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRequest{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok {
		return AnalysisRequest{}, ErrNotFound
	}
	return req, nil
}

// ListRequestsByUser lists requests newest-first.
func (r *MemoryRepo) ListRequestsByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.Lock()
	var owned []AnalysisRequest
	for _, req := range r.requests {
		if req.UserID == userID {
			owned = append(owned, req)
		}
	}
	r.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	return pageRequests(owned, limit, offset), nil
}

// MarkProcessing moves pending to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, requestID string) error {
	return r.transition(ctx, requestID, func(req *AnalysisRequest) bool {
		if req.Status != StatusPending {
			return false
		}
		req.Status = StatusProcessing
		return true
	})
}

// MarkCompleted moves processing to completed.
func (r *MemoryRepo) MarkCompleted(ctx context.Context, requestID, analysisID string) error {
	return r.transition(ctx, requestID, func(req *AnalysisRequest) bool {
		if req.Status != StatusProcessing {
			return false
		}
		now := time.Now().UTC()
		req.Status = StatusCompleted
		req.AnalysisID = analysisID
		req.CompletedAt = &now
		return true
	})
}

// MarkFailed moves pending or processing to failed.
func (r *MemoryRepo) MarkFailed(ctx context.Context, requestID, reason string) error {
	return r.transition(ctx, requestID, func(req *AnalysisRequest) bool {
		if !req.Status.Active() {
			return false
		}
		now := time.Now().UTC()
		req.Status = StatusFailed
		req.ErrorMessage = reason
		req.CompletedAt = &now
		return true
	})
}

func (r *MemoryRepo) transition(ctx context.Context, requestID string, apply func(*AnalysisRequest) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok {
		return ErrNotFound
	}
	if !apply(&req) {
		return ErrStale
	}
	req.UpdatedAt = time.Now().UTC()
	r.requests[requestID] = req
	return nil
}

// SaveAnalysis stores an engine result.
func (r *MemoryRepo) SaveAnalysis(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses[analysis.ID] = analysis
	r.byPhoto[analysis.PhotoID] = append(r.byPhoto[analysis.PhotoID], analysis.ID)
	return nil
}

// GetAnalysis returns a stored result owned by the given user.
func (r *MemoryRepo) GetAnalysis(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[analysisID]
	if !ok || a.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// ListAnalysesByUser lists stored results newest-first.
func (r *MemoryRepo) ListAnalysesByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.Lock()
	var owned []Analysis
	for _, a := range r.analyses {
		if a.UserID == userID {
			owned = append(owned, a)
		}
	}
	r.mu.Unlock()

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if offset >= len(owned) {
		return []Analysis{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

// GetAnalysesByIDs returns the user's analyses for the given ids.
func (r *MemoryRepo) GetAnalysesByIDs(ctx context.Context, userID string, analysisIDs []string) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Analysis
	for _, id := range analysisIDs {
		if a, ok := r.analyses[id]; ok && a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteTerminalBefore purges old completed/failed requests.
func (r *MemoryRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	kept := r.requestIDs[:0]
	for _, id := range r.requestIDs {
		req := r.requests[id]
		if req.Status.Terminal() && req.CreatedAt.Before(cutoff) {
			delete(r.requests, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	r.requestIDs = kept
	return deleted, nil
}

// ListStuckBefore returns active requests older than the cutoff.
func (r *MemoryRepo) ListStuckBefore(ctx context.Context, cutoff time.Time) ([]AnalysisRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []AnalysisRequest
	for _, id := range r.requestIDs {
		req := r.requests[id]
		if req.Status.Active() && req.CreatedAt.Before(cutoff) {
			out = append(out, req)
		}
	}
	return out, nil
}

func pageRequests(list []AnalysisRequest, limit, offset int) []AnalysisRequest {
	if offset >= len(list) {
		return []AnalysisRequest{}
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}
