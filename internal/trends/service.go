package trends

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"skincare-backend/internal/analysis"
)

// Trend classifies the change between the first and last value of a
// compared metric.
type Trend string

const (
	TrendStable    Trend = "stable"
	TrendImproving Trend = "improving"
	TrendWorsening Trend = "worsening"
)

// Polarity says which direction of change is desirable for a metric.
type Polarity int

const (
	IncreaseIsGood Polarity = iota
	DecreaseIsGood
)

// DefaultPolarity is the shipped metric polarity table. Metrics absent
// from the table default to increase-is-good.
var DefaultPolarity = map[string]Polarity{
	analysis.MetricOiliness: DecreaseIsGood,
}

const stableThreshold = 5.0

// ErrTooFewIDs rejects comparisons with fewer than two distinct ids.
var ErrTooFewIDs = errors.New("at least two distinct analysis ids are required")

// MetricPoint is one observation of a metric.
type MetricPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimelinePeriod groups one calendar month of observations.
type TimelinePeriod struct {
	Label   string                   `json:"period"`
	Metrics map[string][]MetricPoint `json:"metrics"`
}

// ComparisonPoint is one observation inside a comparison.
type ComparisonPoint struct {
	AnalysisID string    `json:"analysisId"`
	Date       time.Time `json:"date"`
	Value      float64   `json:"value"`
}

// MetricComparison covers one metric across the compared analyses.
// ChangePercentage is nil when the first value is zero.
type MetricComparison struct {
	Values           []ComparisonPoint `json:"values"`
	ChangePercentage *float64          `json:"changePercentage,omitempty"`
	Trend            Trend             `json:"trend,omitempty"`
}

// IssuesComparison is the issue-set delta between the earliest and
// latest compared analysis. Improved is reserved for multi-point trend
// detection and stays empty for now.
type IssuesComparison struct {
	Resolved  []string `json:"resolved"`
	New       []string `json:"new"`
	Unchanged []string `json:"unchanged"`
	Improved  []string `json:"improved"`
}

// Comparison is the full compare output.
type Comparison struct {
	Metrics map[string]MetricComparison `json:"metricsComparison"`
	Issues  IssuesComparison            `json:"issuesComparison"`
}

// Service aggregates historical analyses. Both operations are
// read-only.
type Service struct {
	Repo     analysis.Repo
	Polarity map[string]Polarity
}

// Timeline groups a user's analyses by calendar month, newest group
// first. Values within a metric run oldest to newest.
func (s *Service) Timeline(ctx context.Context, userID string) ([]TimelinePeriod, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}

	all, err := s.loadAll(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	groups := make(map[string][]analysis.Analysis)
	var keys []string
	for _, a := range all {
		key := a.CreatedAt.Format("2006-01")
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], a)
	}

	// Newest month first.
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	out := make([]TimelinePeriod, 0, len(keys))
	for _, key := range keys {
		members := groups[key]
		period := TimelinePeriod{
			Label:   members[0].CreatedAt.Format("January 2006"),
			Metrics: make(map[string][]MetricPoint),
		}
		for _, a := range members {
			for _, metric := range a.Result.Metrics {
				period.Metrics[metric.Name] = append(period.Metrics[metric.Name], MetricPoint{
					Date:  a.CreatedAt,
					Value: metric.Value,
				})
			}
		}
		out = append(out, period)
	}
	return out, nil
}

// Compare evaluates per-metric change and the issue-set delta across
// the given analyses. Input order is irrelevant: analyses are reordered
// chronologically first. Any id that does not resolve to one of the
// user's analyses is NotFound.
func (s *Service) Compare(ctx context.Context, userID string, analysisIDs []string) (Comparison, error) {
	if userID == "" {
		return Comparison{}, errors.New("userID is required")
	}
	unique := dedupe(analysisIDs)
	if len(unique) < 2 {
		return Comparison{}, ErrTooFewIDs
	}

	selected, err := s.Repo.GetAnalysesByIDs(ctx, userID, unique)
	if err != nil {
		return Comparison{}, err
	}
	if len(selected) != len(unique) {
		return Comparison{}, analysis.ErrNotFound
	}

	sort.Slice(selected, func(i, j int) bool {
		return selected[i].CreatedAt.Before(selected[j].CreatedAt)
	})

	metrics := make(map[string]MetricComparison)
	for _, a := range selected {
		for _, metric := range a.Result.Metrics {
			entry := metrics[metric.Name]
			entry.Values = append(entry.Values, ComparisonPoint{
				AnalysisID: a.ID,
				Date:       a.CreatedAt,
				Value:      metric.Value,
			})
			metrics[metric.Name] = entry
		}
	}

	for name, entry := range metrics {
		first := entry.Values[0].Value
		last := entry.Values[len(entry.Values)-1].Value
		if first != 0 {
			change := round1((last - first) / first * 100)
			entry.ChangePercentage = &change
			entry.Trend = s.classify(name, change)
		}
		metrics[name] = entry
	}

	earliest := issueSet(selected[0].Result.Issues)
	latest := issueSet(selected[len(selected)-1].Result.Issues)

	issues := IssuesComparison{
		Resolved:  []string{},
		New:       []string{},
		Unchanged: []string{},
		Improved:  []string{},
	}
	for _, issue := range selected[0].Result.Issues {
		if latest[issue] {
			issues.Unchanged = append(issues.Unchanged, issue)
		} else {
			issues.Resolved = append(issues.Resolved, issue)
		}
	}
	for _, issue := range selected[len(selected)-1].Result.Issues {
		if !earliest[issue] {
			issues.New = append(issues.New, issue)
		}
	}

	return Comparison{Metrics: metrics, Issues: issues}, nil
}

func (s *Service) classify(metricName string, change float64) Trend {
	if math.Abs(change) < stableThreshold {
		return TrendStable
	}
	polarity := IncreaseIsGood
	table := s.Polarity
	if table == nil {
		table = DefaultPolarity
	}
	if p, ok := table[metricName]; ok {
		polarity = p
	}
	increased := change > 0
	if polarity == DecreaseIsGood {
		increased = !increased
	}
	if increased {
		return TrendImproving
	}
	return TrendWorsening
}

func (s *Service) loadAll(ctx context.Context, userID string) ([]analysis.Analysis, error) {
	const pageSize = 100
	var all []analysis.Analysis
	for offset := 0; ; offset += pageSize {
		page, err := s.Repo.ListAnalysesByUser(ctx, userID, pageSize, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func issueSet(issues []string) map[string]bool {
	set := make(map[string]bool, len(issues))
	for _, issue := range issues {
		set[issue] = true
	}
	return set
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
