package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"skincare-backend/internal/photos"
)

// syncDispatcher runs the job inline so tests observe terminal states
// without polling.
type syncDispatcher struct {
	svc *Service
}

func (d *syncDispatcher) Dispatch(ctx context.Context, requestID string) error {
	return d.svc.Process(context.Background(), requestID)
}

// idleDispatcher accepts the job and never runs it.
type idleDispatcher struct{}

func (idleDispatcher) Dispatch(ctx context.Context, requestID string) error { return nil }

type failingEngine struct{}

func (failingEngine) Analyze(ctx context.Context, photo photos.Photo) (Result, error) {
	return Result{}, &EngineError{PhotoID: photo.ID, Err: errors.New("synthetic model unavailable")}
}

func seedPhoto(t *testing.T, repo photos.Repo, userID, photoID, skinType string) {
	t.Helper()
	err := repo.Create(context.Background(), photos.Photo{
		ID:        photoID,
		UserID:    userID,
		FilePath:  "u/" + photoID + ".png",
		MimeType:  "image/png",
		TakenAt:   time.Now().UTC(),
		Metadata:  photos.Metadata{SkinType: skinType},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed photo: %v", err)
	}
}

func newService(t *testing.T) (*Service, *MemoryRepo, photos.Repo) {
	t.Helper()
	repo := NewMemoryRepo()
	photoRepo := photos.NewMemoryRepo()
	svc := &Service{
		Repo:   repo,
		Photos: photoRepo,
		Engine: MockEngine{},
	}
	svc.Dispatcher = &syncDispatcher{svc: svc}
	return svc, repo, photoRepo
}

func TestCreateRunsToCompletion(t *testing.T) {
	svc, _, photoRepo := newService(t)
	seedPhoto(t, photoRepo, "user-1", "photo-1", "dry")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !outcome.Created {
		t.Fatalf("expected a new request, got %+v", outcome)
	}

	view, err := svc.Status(context.Background(), "user-1", outcome.Request.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", view.Status)
	}
	if view.AnalysisID == "" || view.Result == nil {
		t.Fatalf("expected result attached, got %+v", view)
	}
	if view.Result.SkinCondition[ConditionHydration] > 60 {
		t.Fatalf("expected dry-skin bias, got %v", view.Result.SkinCondition)
	}
}

func TestCreateSuppressesDuplicateActiveRequest(t *testing.T) {
	svc, _, photoRepo := newService(t)
	svc.Dispatcher = idleDispatcher{}
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	first, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !first.Created {
		t.Fatalf("expected created, got %+v", first)
	}

	second, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.Created {
		t.Fatal("expected duplicate suppression, got a new request")
	}
	if second.Request.ID != first.Request.ID {
		t.Fatalf("expected existing request %s, got %s", first.Request.ID, second.Request.ID)
	}
}

func TestCreateReturnsExistingAnalysis(t *testing.T) {
	svc, _, photoRepo := newService(t)
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	first, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.Status(context.Background(), "user-1", first.Request.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}

	again, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if again.Created {
		t.Fatal("expected no new record for an analyzed photo")
	}
	if again.ExistingAnalysisID != view.AnalysisID {
		t.Fatalf("expected existing analysis %s, got %s", view.AnalysisID, again.ExistingAnalysisID)
	}
}

func TestCreateUnknownPhotoIsNotFound(t *testing.T) {
	svc, _, _ := newService(t)

	if _, err := svc.Create(context.Background(), "user-1", "missing", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEngineFailureMarksRequestFailed(t *testing.T) {
	svc, _, photoRepo := newService(t)
	svc.Engine = failingEngine{}
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.Status(context.Background(), "user-1", outcome.Request.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if view.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", view.Status)
	}
	if view.ErrorMessage == "" {
		t.Fatal("expected a failure reason")
	}
	if IsTimeoutFailure(view.ErrorMessage) {
		t.Fatalf("engine fault misclassified as timeout: %s", view.ErrorMessage)
	}
}

func TestMarkProcessingRequiresPending(t *testing.T) {
	svc, repo, photoRepo := newService(t)
	svc.Dispatcher = idleDispatcher{}
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	requestID := outcome.Request.ID

	if err := repo.MarkProcessing(context.Background(), requestID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.MarkProcessing(context.Background(), requestID); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale on second pickup, got %v", err)
	}
}

func TestTerminalTransitionsAreIdempotent(t *testing.T) {
	svc, repo, photoRepo := newService(t)
	svc.Dispatcher = idleDispatcher{}
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	requestID := outcome.Request.ID

	if err := repo.MarkProcessing(context.Background(), requestID); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.MarkCompleted(context.Background(), requestID, "an-1"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := repo.MarkCompleted(context.Background(), requestID, "an-2"); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale on second completion, got %v", err)
	}
	if err := repo.MarkFailed(context.Background(), requestID, "late failure"); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale on fail-after-complete, got %v", err)
	}

	req, err := repo.GetRequestByID(context.Background(), requestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if req.AnalysisID != "an-1" || req.Status != StatusCompleted {
		t.Fatalf("terminal record overwritten: %+v", req)
	}
}

func TestProcessSkipsSweptRequest(t *testing.T) {
	svc, repo, photoRepo := newService(t)
	svc.Dispatcher = idleDispatcher{}
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	requestID := outcome.Request.ID

	if err := repo.MarkFailed(context.Background(), requestID, TimeoutReasonPrefix+" swept"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := svc.Process(context.Background(), requestID); err != nil {
		t.Fatalf("process should ack a swept request, got %v", err)
	}

	req, err := repo.GetRequestByID(context.Background(), requestID)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if req.Status != StatusFailed {
		t.Fatalf("swept request mutated: %+v", req)
	}
}

func TestStatusIsOwnershipScoped(t *testing.T) {
	svc, _, photoRepo := newService(t)
	seedPhoto(t, photoRepo, "user-1", "photo-1", "")

	outcome, err := svc.Create(context.Background(), "user-1", "photo-1", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Status(context.Background(), "user-2", outcome.Request.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
}
