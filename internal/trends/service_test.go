package trends

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"skincare-backend/internal/analysis"
)

func storedAnalysis(t *testing.T, repo *analysis.MemoryRepo, id string, createdAt time.Time, metrics map[string]float64, issues []string) {
	t.Helper()
	a := analysis.Analysis{
		ID:        id,
		PhotoID:   "photo-" + id,
		UserID:    "user-1",
		CreatedAt: createdAt,
	}
	for name, value := range metrics {
		a.Result.Metrics = append(a.Result.Metrics, analysis.Metric{
			Name: name, Value: value, MaxValue: 100, Unit: "%",
		})
	}
	a.Result.Issues = issues
	if err := repo.SaveAnalysis(context.Background(), a); err != nil {
		t.Fatalf("save analysis: %v", err)
	}
}

func TestCompareOrderInvariantAndRounding(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricHydration: 50}, nil)
	storedAnalysis(t, repo, "b", base.AddDate(0, 0, 14), map[string]float64{analysis.MetricHydration: 60}, nil)

	svc := &Service{Repo: repo}

	forward, err := svc.Compare(context.Background(), "user-1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	reversed, err := svc.Compare(context.Background(), "user-1", []string{"b", "a"})
	if err != nil {
		t.Fatalf("compare reversed: %v", err)
	}
	if !reflect.DeepEqual(forward, reversed) {
		t.Fatalf("expected order-invariant comparison:\n%+v\nvs\n%+v", forward, reversed)
	}

	entry := forward.Metrics[analysis.MetricHydration]
	if entry.ChangePercentage == nil || *entry.ChangePercentage != 20.0 {
		t.Fatalf("expected changePercentage 20.0, got %v", entry.ChangePercentage)
	}
	if entry.Trend != TrendImproving {
		t.Fatalf("expected improving, got %s", entry.Trend)
	}
	if len(entry.Values) != 2 || entry.Values[0].AnalysisID != "a" {
		t.Fatalf("expected chronological values starting at a, got %+v", entry.Values)
	}
}

func TestComparePolarityForOiliness(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricOiliness: 50}, nil)
	storedAnalysis(t, repo, "b", base.AddDate(0, 0, 14), map[string]float64{analysis.MetricOiliness: 60}, nil)

	svc := &Service{Repo: repo}

	comparison, err := svc.Compare(context.Background(), "user-1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	entry := comparison.Metrics[analysis.MetricOiliness]
	if entry.Trend != TrendWorsening {
		t.Fatalf("expected worsening for rising oiliness, got %s", entry.Trend)
	}
}

func TestCompareStableBelowThreshold(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricHydration: 100}, nil)
	storedAnalysis(t, repo, "b", base.AddDate(0, 0, 7), map[string]float64{analysis.MetricHydration: 104}, nil)

	svc := &Service{Repo: repo}

	comparison, err := svc.Compare(context.Background(), "user-1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if got := comparison.Metrics[analysis.MetricHydration].Trend; got != TrendStable {
		t.Fatalf("expected stable, got %s", got)
	}
}

func TestCompareIssueSets(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricHydration: 50}, []string{"Dryness", "Acne"})
	storedAnalysis(t, repo, "b", base.AddDate(0, 1, 0), map[string]float64{analysis.MetricHydration: 60}, []string{"Acne", "Redness"})

	svc := &Service{Repo: repo}

	comparison, err := svc.Compare(context.Background(), "user-1", []string{"b", "a"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}

	issues := comparison.Issues
	if !reflect.DeepEqual(issues.Resolved, []string{"Dryness"}) {
		t.Fatalf("expected resolved [Dryness], got %v", issues.Resolved)
	}
	if !reflect.DeepEqual(issues.New, []string{"Redness"}) {
		t.Fatalf("expected new [Redness], got %v", issues.New)
	}
	if !reflect.DeepEqual(issues.Unchanged, []string{"Acne"}) {
		t.Fatalf("expected unchanged [Acne], got %v", issues.Unchanged)
	}
	if len(issues.Improved) != 0 {
		t.Fatalf("expected improved empty, got %v", issues.Improved)
	}
}

func TestCompareUnknownIDIsNotFound(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricHydration: 50}, nil)

	svc := &Service{Repo: repo}

	if _, err := svc.Compare(context.Background(), "user-1", []string{"a", "missing"}); !errors.Is(err, analysis.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompareUndefinedChangeWhenFirstIsZero(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "a", base, map[string]float64{analysis.MetricSensitivity: 0}, nil)
	storedAnalysis(t, repo, "b", base.AddDate(0, 0, 3), map[string]float64{analysis.MetricSensitivity: 40}, nil)

	svc := &Service{Repo: repo}

	comparison, err := svc.Compare(context.Background(), "user-1", []string{"a", "b"})
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	entry := comparison.Metrics[analysis.MetricSensitivity]
	if entry.ChangePercentage != nil {
		t.Fatalf("expected undefined change, got %v", *entry.ChangePercentage)
	}
	if entry.Trend != "" {
		t.Fatalf("expected no trend, got %s", entry.Trend)
	}
}

func TestTimelineGroupsByMonthNewestFirst(t *testing.T) {
	repo := analysis.NewMemoryRepo()
	march := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	storedAnalysis(t, repo, "m1", march, map[string]float64{analysis.MetricHydration: 40}, nil)
	storedAnalysis(t, repo, "m2", march.AddDate(0, 0, 10), map[string]float64{analysis.MetricHydration: 55}, nil)
	storedAnalysis(t, repo, "m3", march.AddDate(0, 0, 20), map[string]float64{analysis.MetricHydration: 70}, nil)
	storedAnalysis(t, repo, "apr", march.AddDate(0, 1, 0), map[string]float64{analysis.MetricHydration: 72}, nil)

	svc := &Service{Repo: repo}

	periods, err := svc.Timeline(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}

	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if periods[0].Label != "April 2026" {
		t.Fatalf("expected newest period first, got %s", periods[0].Label)
	}
	if periods[1].Label != "March 2026" {
		t.Fatalf("expected March 2026 second, got %s", periods[1].Label)
	}

	points := periods[1].Metrics[analysis.MetricHydration]
	if len(points) != 3 {
		t.Fatalf("expected 3 points in March, got %d", len(points))
	}
	want := []float64{40, 55, 70}
	for i, point := range points {
		if point.Value != want[i] {
			t.Fatalf("expected chronological values %v, got %+v", want, points)
		}
	}
}
