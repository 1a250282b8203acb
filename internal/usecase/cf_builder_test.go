package usecase

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/outletiq/reco-backend/pkg/e"
)

func TestBuildInsufficientData(t *testing.T) {
	interactions := &fakeInteractionRepo{}
	cache := newFakeSimilarityRepo()
	builder := NewCFBuilder(interactions, cache, nopLogger{})

	_, err := builder.Build(context.Background(), 30, 2)
	if !errors.Is(err, e.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData on empty log, got %v", err)
	}
	if len(cache.upserts) != 0 {
		t.Fatalf("no entries should be written, got %d", len(cache.upserts))
	}
}

func TestBuildMinInteractionsFilter(t *testing.T) {
	// rare виден только одной сессией и не должен получить запись
	interactions := &fakeInteractionRepo{matrix: &InteractionMatrix{
		Weights: map[string]map[string]float64{
			"s1": {"a": 1.0, "b": 1.0, "rare": 3.0},
			"s2": {"a": 1.0, "b": 1.0},
		},
		Events: 5,
	}}
	cache := newFakeSimilarityRepo()
	builder := NewCFBuilder(interactions, cache, nopLogger{})

	stats, err := builder.Build(context.Background(), 30, 2)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, ok := cache.entries["rare"]; ok {
		t.Fatal("product with a single session must not be cached")
	}
	if stats.CachedProducts != 2 {
		t.Fatalf("expected 2 cached products, got %d", stats.CachedProducts)
	}
	for _, entry := range cache.upserts {
		for _, n := range entry.Neighbors {
			if n.ProductID == "rare" {
				t.Fatalf("rare leaked into neighbors of %s", entry.ProductID)
			}
		}
	}
}

func TestBuildCosineNeighbors(t *testing.T) {
	// a и b идентичны по сессиям s1/s2, c живёт в непересекающихся сессиях
	interactions := &fakeInteractionRepo{matrix: &InteractionMatrix{
		Weights: map[string]map[string]float64{
			"s1": {"a": 1.0, "b": 1.0},
			"s2": {"a": 2.0, "b": 2.0},
			"s3": {"c": 1.0},
			"s4": {"c": 1.0},
		},
		Events: 6,
	}}
	cache := newFakeSimilarityRepo()
	builder := NewCFBuilder(interactions, cache, nopLogger{})

	if _, err := builder.Build(context.Background(), 30, 2); err != nil {
		t.Fatalf("build: %v", err)
	}

	entry := cache.entries["a"]
	if entry == nil {
		t.Fatal("expected cache entry for a")
	}
	if len(entry.Neighbors) != 1 {
		t.Fatalf("expected exactly one neighbor for a, got %+v", entry.Neighbors)
	}
	n := entry.Neighbors[0]
	if n.ProductID != "b" {
		t.Fatalf("expected b as neighbor, got %s", n.ProductID)
	}
	if math.Abs(n.Score-1.0) > 1e-9 {
		t.Fatalf("identical columns must give cosine 1.0, got %f", n.Score)
	}

	// c ортогонален a и b: ниже порога, записи без соседей не пишутся
	if _, ok := cache.entries["c"]; ok {
		t.Fatal("orthogonal product must not get an entry")
	}
}

func TestBuildThresholdIsStrict(t *testing.T) {
	// Нормы столбцов подобраны так, что косинус a/b равен ровно 0.1:
	// |a| = 1, |b| = sqrt(1+49+49+1) = 10, скалярное произведение 1.
	// Порог строгий, пара на границе отбрасывается.
	interactions := &fakeInteractionRepo{matrix: &InteractionMatrix{
		Weights: map[string]map[string]float64{
			"s1": {"a": 1.0, "b": 1.0},
			"s2": {"b": 7.0},
			"s3": {"b": 7.0},
			"s4": {"b": 1.0},
		},
		Events: 5,
	}}
	cache := newFakeSimilarityRepo()
	builder := NewCFBuilder(interactions, cache, nopLogger{})

	if _, err := builder.Build(context.Background(), 30, 1); err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(cache.upserts) != 0 {
		t.Fatalf("neighbors at exactly the threshold must be dropped, got %d entries", len(cache.upserts))
	}
}

func TestBuildIdempotent(t *testing.T) {
	matrix := &InteractionMatrix{
		Weights: map[string]map[string]float64{
			"s1": {"a": 0.5, "b": 1.0},
			"s2": {"a": 1.0, "b": 3.0},
			"s3": {"b": 1.0, "c": 1.0},
			"s4": {"a": 1.0, "c": 0.5},
		},
		Events: 8,
	}
	interactions := &fakeInteractionRepo{matrix: matrix}
	cache := newFakeSimilarityRepo()
	builder := NewCFBuilder(interactions, cache, nopLogger{})

	first, err := builder.Build(context.Background(), 30, 2)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	snapshot := make(map[string][]string)
	for id, entry := range cache.entries {
		var ids []string
		for _, n := range entry.Neighbors {
			ids = append(ids, n.ProductID)
		}
		snapshot[id] = ids
	}

	second, err := builder.Build(context.Background(), 30, 2)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}

	if first.CachedProducts != second.CachedProducts {
		t.Fatalf("cached products differ between runs: %d vs %d", first.CachedProducts, second.CachedProducts)
	}
	for id, entry := range cache.entries {
		want := snapshot[id]
		if len(entry.Neighbors) != len(want) {
			t.Fatalf("neighbor count for %s changed between runs", id)
		}
		for n, neighbor := range entry.Neighbors {
			if neighbor.ProductID != want[n] {
				t.Fatalf("neighbor order for %s changed between runs", id)
			}
		}
	}
}
