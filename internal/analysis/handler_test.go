package analysis_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"skincare-backend/internal/analysis"
	"skincare-backend/internal/photos"
	"skincare-backend/internal/shared/server/middleware"
)

type inlineDispatcher struct {
	svc *analysis.Service
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, requestID string) error {
	return d.svc.Process(context.Background(), requestID)
}

func newAnalysisRouter(t *testing.T) (*gin.Engine, photos.Repo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	photoRepo := photos.NewMemoryRepo()
	svc := &analysis.Service{
		Repo:   analysis.NewMemoryRepo(),
		Photos: photoRepo,
		Engine: analysis.MockEngine{},
	}
	svc.Dispatcher = &inlineDispatcher{svc: svc}

	router := gin.New()
	group := router.Group("/api/v1")
	group.Use(middleware.Auth("dev"))
	handler := analysis.NewHandler(svc)
	handler.RegisterRoutes(group)
	handler.RegisterPollingRoutes(group)
	return router, photoRepo
}

func seedPhoto(t *testing.T, repo photos.Repo, photoID string) {
	t.Helper()
	err := repo.Create(context.Background(), photos.Photo{
		ID:        photoID,
		UserID:    "guest:test-guest",
		FilePath:  "test-guest/" + photoID + ".png",
		MimeType:  "image/png",
		TakenAt:   time.Now().UTC(),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed photo: %v", err)
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestStartAnalysisAccepted(t *testing.T) {
	router, photoRepo := newAnalysisRouter(t)
	seedPhoto(t, photoRepo, "photo-1")

	resp := doJSON(t, router, http.MethodPost, "/api/v1/skin-photos/photo-1/analyze", `{"skinType":"dry"}`)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.Code, resp.Body.String())
	}

	var accepted struct {
		RequestID string `json:"requestId"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if accepted.RequestID == "" || accepted.Status != "pending" {
		t.Fatalf("unexpected accept payload: %+v", accepted)
	}

	// The inline dispatcher already ran the job to completion.
	poll := doJSON(t, router, http.MethodGet, "/api/v1/analysis-requests/"+accepted.RequestID+"/status", "")
	if poll.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", poll.Code, poll.Body.String())
	}

	var status struct {
		RequestID  string          `json:"requestId"`
		Status     string          `json:"status"`
		AnalysisID string          `json:"analysisId"`
		Result     json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(poll.Body).Decode(&status); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	if status.Status != "completed" || status.AnalysisID == "" || len(status.Result) == 0 {
		t.Fatalf("expected completed result, got %+v", status)
	}
}

func TestStartAnalysisUnknownPhoto(t *testing.T) {
	router, _ := newAnalysisRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/skin-photos/missing/analyze", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestStartAnalysisAlreadyAnalyzed(t *testing.T) {
	router, photoRepo := newAnalysisRouter(t)
	seedPhoto(t, photoRepo, "photo-1")

	first := doJSON(t, router, http.MethodPost, "/api/v1/skin-photos/photo-1/analyze", "")
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", first.Code, first.Body.String())
	}

	second := doJSON(t, router, http.MethodPost, "/api/v1/skin-photos/photo-1/analyze", "")
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", second.Code, second.Body.String())
	}

	var repeat struct {
		Status     string `json:"status"`
		AnalysisID string `json:"analysisId"`
		Message    string `json:"message"`
	}
	if err := json.NewDecoder(second.Body).Decode(&repeat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if repeat.Status != "completed" || repeat.AnalysisID == "" {
		t.Fatalf("expected completed short-circuit, got %+v", repeat)
	}
}

func TestListAndGetAnalyses(t *testing.T) {
	router, photoRepo := newAnalysisRouter(t)
	seedPhoto(t, photoRepo, "photo-1")

	if resp := doJSON(t, router, http.MethodPost, "/api/v1/skin-photos/photo-1/analyze", ""); resp.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.Code)
	}

	list := doJSON(t, router, http.MethodGet, "/api/v1/skin-analyses", "")
	if list.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", list.Code, list.Body.String())
	}

	var listed []struct {
		AnalysisID string `json:"analysisId"`
		PhotoID    string `json:"photoId"`
	}
	if err := json.NewDecoder(list.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 || listed[0].PhotoID != "photo-1" {
		t.Fatalf("unexpected list: %+v", listed)
	}

	get := doJSON(t, router, http.MethodGet, "/api/v1/skin-analyses/"+listed[0].AnalysisID, "")
	if get.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", get.Code, get.Body.String())
	}
}

func TestRequestStatusUnknownID(t *testing.T) {
	router, _ := newAnalysisRouter(t)

	resp := doJSON(t, router, http.MethodGet, "/api/v1/analysis-requests/nope/status", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", resp.Code, resp.Body.String())
	}
}
