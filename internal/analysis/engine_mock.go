package analysis

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"

	"skincare-backend/internal/photos"
)

// MockEngine synthesizes plausible skin readings without calling a real
// model. Output is a pure function of the photo id and its declared
// metadata, so re-analyzing the same photo agrees with the first run.
type MockEngine struct{}

var _ Engine = (*MockEngine)(nil)

// Analyze builds a synthetic result biased by the declared skin type.
func (MockEngine) Analyze(ctx context.Context, photo photos.Photo) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, &EngineError{PhotoID: photo.ID, Err: err}
	}

	rng := rand.New(rand.NewSource(seedFor(photo)))

	hydration := randRange(rng, 40, 95)
	oil := randRange(rng, 30, 90)
	switch strings.ToLower(photo.Metadata.SkinType) {
	case "dry":
		hydration = randRange(rng, 30, 60)
		oil = randRange(rng, 20, 40)
	case "oily":
		hydration = randRange(rng, 60, 90)
		oil = randRange(rng, 70, 95)
	case "combination":
		hydration = randRange(rng, 50, 75)
		oil = randRange(rng, 50, 80)
	}
	sensitivity := randRange(rng, 20, 80)
	confidence := randRange(rng, 75, 98) / 100

	issues := pickIssues(rng, photo.Metadata.SkinConcerns)

	return Result{
		SkinCondition: map[string]float64{
			ConditionHydration:   clampPercent(hydration),
			ConditionOil:         clampPercent(oil),
			ConditionSensitivity: clampPercent(sensitivity),
			ConditionConfidence:  confidence,
		},
		Metrics: []Metric{
			{Name: MetricHydration, Value: clampPercent(hydration), MaxValue: 100, Unit: "%"},
			{Name: MetricOiliness, Value: clampPercent(oil), MaxValue: 100, Unit: "%"},
			{Name: MetricSensitivity, Value: clampPercent(sensitivity), MaxValue: 100, Unit: "%"},
		},
		Issues: issues,
	}, nil
}

// pickIssues keeps declared concerns that belong to the vocabulary,
// then tops the list up to three with at most two synthetic picks.
func pickIssues(rng *rand.Rand, concerns []string) []string {
	var issues []string
	seen := make(map[string]bool)
	for _, concern := range concerns {
		canonical, ok := InVocabulary(concern)
		if ok && !seen[canonical] {
			issues = append(issues, canonical)
			seen[canonical] = true
		}
	}

	extra := 3 - len(issues)
	if extra > 2 {
		extra = 2
	}
	if extra <= 0 {
		return issues
	}

	var remaining []string
	for _, label := range IssueVocabulary {
		if !seen[label] {
			remaining = append(remaining, label)
		}
	}
	rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	if extra > len(remaining) {
		extra = len(remaining)
	}
	return append(issues, remaining[:extra]...)
}

func seedFor(photo photos.Photo) int64 {
	h := fnv.New64a()
	h.Write([]byte(photo.ID))
	h.Write([]byte{'|'})
	h.Write([]byte(strings.ToLower(photo.Metadata.SkinType)))
	for _, concern := range photo.Metadata.SkinConcerns {
		h.Write([]byte{'|'})
		h.Write([]byte(strings.ToLower(concern)))
	}
	return int64(h.Sum64())
}

func randRange(rng *rand.Rand, min, max int) float64 {
	return float64(min + rng.Intn(max-min+1))
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
