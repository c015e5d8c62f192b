package analysis

import (
	"context"
	"reflect"
	"testing"

	"skincare-backend/internal/photos"
)

func TestMockEngineDeterministicPerPhoto(t *testing.T) {
	engine := MockEngine{}
	photo := photos.Photo{
		ID: "photo-1",
		Metadata: photos.Metadata{
			SkinType:     "dry",
			SkinConcerns: []string{"Acne"},
		},
	}

	first, err := engine.Analyze(context.Background(), photo)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	second, err := engine.Analyze(context.Background(), photo)
	if err != nil {
		t.Fatalf("analyze again: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical results for identical photo, got\n%v\nvs\n%v", first, second)
	}
}

func TestMockEngineDrySkinBiasesLevels(t *testing.T) {
	engine := MockEngine{}

	for i := 0; i < 20; i++ {
		photo := photos.Photo{
			ID:       "photo-" + string(rune('a'+i)),
			Metadata: photos.Metadata{SkinType: "dry"},
		}
		result, err := engine.Analyze(context.Background(), photo)
		if err != nil {
			t.Fatalf("analyze: %v", err)
		}

		hydration := result.SkinCondition[ConditionHydration]
		if hydration < 30 || hydration > 60 {
			t.Fatalf("dry skin hydration out of range: %v", hydration)
		}
		oil := result.SkinCondition[ConditionOil]
		if oil < 20 || oil > 40 {
			t.Fatalf("dry skin oil out of range: %v", oil)
		}
	}
}

func TestMockEngineBoundsAndVocabulary(t *testing.T) {
	engine := MockEngine{}
	photo := photos.Photo{
		ID: "photo-b",
		Metadata: photos.Metadata{
			SkinConcerns: []string{"dryness", "not-a-real-issue"},
		},
	}

	result, err := engine.Analyze(context.Background(), photo)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	for key, value := range result.SkinCondition {
		if key == ConditionConfidence {
			if value < 0.75 || value > 0.98 {
				t.Fatalf("confidence out of range: %v", value)
			}
			continue
		}
		if value < 0 || value > 100 {
			t.Fatalf("%s out of bounds: %v", key, value)
		}
	}

	if len(result.Issues) != 3 {
		t.Fatalf("expected issues topped up to 3, got %v", result.Issues)
	}
	if result.Issues[0] != "Dryness" {
		t.Fatalf("expected declared concern canonicalized first, got %v", result.Issues)
	}
	for _, issue := range result.Issues {
		if _, ok := InVocabulary(issue); !ok {
			t.Fatalf("issue outside vocabulary: %s", issue)
		}
	}

	if len(result.Metrics) != 3 {
		t.Fatalf("expected 3 metrics, got %d", len(result.Metrics))
	}
	for _, metric := range result.Metrics {
		if metric.MaxValue != 100 || metric.Unit != "%" {
			t.Fatalf("unexpected metric shape: %+v", metric)
		}
	}
}
