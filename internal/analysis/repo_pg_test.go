package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestGetOrCreateForPhotoInsertsPending(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM skin_photos WHERE id = \$1 AND user_id = \$2 FOR UPDATE`).
		WithArgs("photo-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("photo-1"))
	mock.ExpectQuery(`SELECT id FROM skin_analyses WHERE photo_id = \$1`).
		WithArgs("photo-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT .+ FROM analysis_requests\s+WHERE photo_id = \$1 AND user_id = \$2 AND status IN`).
		WithArgs("photo-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "photo_id", "status", "analysis_id", "error_message",
			"additional_data", "completed_at", "created_at", "updated_at",
		}))
	mock.ExpectExec(`INSERT INTO analysis_requests`).
		WithArgs("req-1", "user-1", "photo-1", "pending", nil, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := repo.GetOrCreateForPhoto(context.Background(), AnalysisRequest{
		ID:        "req-1",
		UserID:    "user-1",
		PhotoID:   "photo-1",
		Status:    StatusPending,
		CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !outcome.Created || outcome.Request.ID != "req-1" {
		t.Fatalf("expected new pending request, got %+v", outcome)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateForPhotoReturnsExistingAnalysis(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM skin_photos`).
		WithArgs("photo-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("photo-1"))
	mock.ExpectQuery(`SELECT id FROM skin_analyses`).
		WithArgs("photo-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("an-9"))
	mock.ExpectCommit()

	outcome, err := repo.GetOrCreateForPhoto(context.Background(), AnalysisRequest{
		ID:      "req-1",
		UserID:  "user-1",
		PhotoID: "photo-1",
	})
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if outcome.Created || outcome.ExistingAnalysisID != "an-9" {
		t.Fatalf("expected existing analysis short-circuit, got %+v", outcome)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetOrCreateForPhotoUnknownPhoto(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM skin_photos`).
		WithArgs("missing", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.GetOrCreateForPhoto(context.Background(), AnalysisRequest{
		UserID:  "user-1",
		PhotoID: "missing",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkProcessingStaleWhenNotPending(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE analysis_requests\s+SET status = 'processing'`).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.MarkProcessing(context.Background(), "req-1"); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
}

func TestMarkCompletedGuardsOnProcessing(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(`UPDATE analysis_requests\s+SET status = 'completed'`).
		WithArgs("req-1", "an-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkCompleted(context.Background(), "req-1", "an-1"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteTerminalBeforeReportsCount(t *testing.T) {
	repo, mock := newMock(t)
	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM analysis_requests`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteTerminalBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted, got %d", n)
	}
}
