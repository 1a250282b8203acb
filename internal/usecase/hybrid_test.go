package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
)

func testHybrid(t *testing.T, similarity *fakeSimilarityRepo, interactions *fakeInteractionRepo, catalog *fakeCatalogRepo) *HybridRecommender {
	t.Helper()

	resolver := NewCatalogResolver(catalog, newFakeCacheRepo(), nopLogger{})
	popularity := NewPopularityRecommender(interactions, catalog, resolver, nopLogger{})
	h, err := NewHybridRecommender(similarity, interactions, popularity, resolver, DefaultHybridWeights(), nopLogger{})
	if err != nil {
		t.Fatalf("new recommender: %v", err)
	}
	return h
}

func TestNewHybridRecommenderInvalidWeights(t *testing.T) {
	_, err := NewHybridRecommender(
		newFakeSimilarityRepo(),
		&fakeInteractionRepo{},
		nil,
		nil,
		HybridWeights{CF: -1, Popular: 0.5},
		nopLogger{},
	)
	if !errors.Is(err, e.ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}

	_, err = NewHybridRecommender(
		newFakeSimilarityRepo(),
		&fakeInteractionRepo{},
		nil,
		nil,
		HybridWeights{},
		nopLogger{},
	)
	if !errors.Is(err, e.ErrInvalidWeights) {
		t.Fatalf("zero weights must be rejected, got %v", err)
	}
}

func TestByProductUnknownAlgorithm(t *testing.T) {
	h := testHybrid(t, newFakeSimilarityRepo(), &fakeInteractionRepo{}, &fakeCatalogRepo{})

	_, err := h.ByProduct(context.Background(), &RecommendReq{ProductID: "p1", Limit: 5, Algorithm: "magic"})
	if !errors.Is(err, e.ErrInvalidAlgorithm) {
		t.Fatalf("expected ErrInvalidAlgorithm, got %v", err)
	}
}

func TestHybridWeightedMerge(t *testing.T) {
	similarity := newFakeSimilarityRepo()
	similarity.entries["p1"] = domain.NewSimilarityCacheEntry("p1", []domain.Neighbor{
		{ProductID: "n1", Score: 0.8},
	}, domain.AlgorithmCF, 30)

	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "n1", Score: 10},
		{ProductID: "n2", Score: 5},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"n1": inStock("n1", "shoes", "acme"),
		"n2": inStock("n2", "shoes", "acme"),
	}}
	h := testHybrid(t, similarity, interactions, catalog)

	results, err := h.ByProduct(context.Background(), &RecommendReq{ProductID: "p1", Limit: 10})
	if err != nil {
		t.Fatalf("hybrid: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	// n1 встречается в обоих источниках: 0.7*0.8 + 0.3*10, популярность
	// входит в сумму сырой, без нормализации
	if results[0].Product.ID != "n1" {
		t.Fatalf("expected n1 first, got %s", results[0].Product.ID)
	}
	if math.Abs(results[0].Score-(0.7*0.8+0.3*10)) > 1e-9 {
		t.Fatalf("wrong hybrid score for n1: got %f, want %f", results[0].Score, 0.7*0.8+0.3*10)
	}
	if results[0].Reason != ReasonHybrid {
		t.Fatalf("expected hybrid reason for n1, got %s", results[0].Reason)
	}

	// n2 только из популярности: 0.3*5
	if results[1].Product.ID != "n2" {
		t.Fatalf("expected n2 second, got %s", results[1].Product.ID)
	}
	if math.Abs(results[1].Score-0.3*5) > 1e-9 {
		t.Fatalf("wrong popularity-only score for n2: got %f, want %f", results[1].Score, 0.3*5)
	}
	if results[1].Reason != ReasonPopular {
		t.Fatalf("expected popular reason for n2, got %s", results[1].Reason)
	}
}

func TestCFOnlyWithoutCacheEntryFallsBackToPopular(t *testing.T) {
	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "hot", Score: 12},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"hot": inStock("hot", "shoes", "acme"),
	}}
	h := testHybrid(t, newFakeSimilarityRepo(), interactions, catalog)

	results, err := h.ByProduct(context.Background(), &RecommendReq{
		ProductID: "unknown",
		Limit:     5,
		Algorithm: domain.AlgorithmCF,
	})
	if err != nil {
		t.Fatalf("cf without entry must not fail: %v", err)
	}
	if len(results) != 1 || results[0].Product.ID != "hot" {
		t.Fatalf("expected popularity fallback, got %+v", results)
	}
	if results[0].Reason != ReasonPopular {
		t.Fatalf("expected popular reason on fallback, got %s", results[0].Reason)
	}
}

func TestCFShortListBackfilledWithPopular(t *testing.T) {
	similarity := newFakeSimilarityRepo()
	similarity.entries["p1"] = domain.NewSimilarityCacheEntry("p1", []domain.Neighbor{
		{ProductID: "n1", Score: 0.9},
	}, domain.AlgorithmCF, 30)

	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "n1", Score: 8},
		{ProductID: "n2", Score: 5},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"n1": inStock("n1", "shoes", "acme"),
		"n2": inStock("n2", "shoes", "acme"),
	}}
	h := testHybrid(t, similarity, interactions, catalog)

	results, err := h.ByProduct(context.Background(), &RecommendReq{
		ProductID: "p1",
		Limit:     2,
		Algorithm: domain.AlgorithmCF,
	})
	if err != nil {
		t.Fatalf("cf: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected backfilled result of 2, got %d", len(results))
	}
	if results[0].Product.ID != "n1" || results[0].Reason != ReasonCF {
		t.Fatalf("expected cf candidate n1 first, got %+v", results[0])
	}
	// Уже выданный n1 не дублируется при добивке
	if results[1].Product.ID != "n2" || results[1].Reason != ReasonPopular {
		t.Fatalf("expected popular backfill n2, got %+v", results[1])
	}
}

func TestPersonalizedColdStartEqualsPopular(t *testing.T) {
	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "top", Score: 7},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"top": inStock("top", "bags", "acme"),
	}}
	h := testHybrid(t, newFakeSimilarityRepo(), interactions, catalog)

	results, err := h.Personalized(context.Background(), &PersonalizedReq{SessionID: "fresh", Limit: 5})
	if err != nil {
		t.Fatalf("personalized: %v", err)
	}
	if len(results) != 1 || results[0].Product.ID != "top" {
		t.Fatalf("cold start must fall back to popular, got %+v", results)
	}
	if results[0].Reason != ReasonPopular {
		t.Fatalf("expected popular reason on cold start, got %s", results[0].Reason)
	}
}

func TestPersonalizedWeightsHybridScores(t *testing.T) {
	similarity := newFakeSimilarityRepo()
	similarity.entries["seen"] = domain.NewSimilarityCacheEntry("seen", []domain.Neighbor{
		{ProductID: "rec", Score: 0.5},
		{ProductID: "seen", Score: 1.0},
	}, domain.AlgorithmCF, 30)

	interactions := &fakeInteractionRepo{
		weights: []WeightedScore{{ProductID: "rec", Score: 10}},
		recent: []domain.Interaction{
			{
				SessionID: "s1",
				ProductID: "seen",
				Kind:      domain.KindPurchase,
				Weight:    domain.KindPurchase.Weight(),
				CreatedAt: time.Now().UTC(),
			},
		},
	}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"rec":  inStock("rec", "shoes", "acme"),
		"seen": inStock("seen", "shoes", "acme"),
	}}
	h := testHybrid(t, similarity, interactions, catalog)

	results, err := h.Personalized(context.Background(), &PersonalizedReq{SessionID: "s1", Limit: 5})
	if err != nil {
		t.Fatalf("personalized: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected single recommendation, got %+v", results)
	}
	if results[0].Product.ID != "rec" {
		t.Fatalf("originating product must be excluded, got %s", results[0].Product.ID)
	}
	// Гибридная оценка кандидата (0.7*0.5 + 0.3*10) * 3.0 (вес покупки)
	want := (0.7*0.5 + 0.3*10) * domain.KindPurchase.Weight()
	if math.Abs(results[0].Score-want) > 1e-9 {
		t.Fatalf("expected score %f, got %f", want, results[0].Score)
	}
	if results[0].Reason != ReasonPersonalized {
		t.Fatalf("expected personalized reason, got %s", results[0].Reason)
	}
}

func TestPersonalizedKeepsOtherHistoryItems(t *testing.T) {
	similarity := newFakeSimilarityRepo()
	similarity.entries["a"] = domain.NewSimilarityCacheEntry("a", []domain.Neighbor{
		{ProductID: "b", Score: 0.9},
	}, domain.AlgorithmCF, 30)
	similarity.entries["b"] = domain.NewSimilarityCacheEntry("b", []domain.Neighbor{
		{ProductID: "c", Score: 0.8},
	}, domain.AlgorithmCF, 30)

	now := time.Now().UTC()
	interactions := &fakeInteractionRepo{recent: []domain.Interaction{
		{SessionID: "s1", ProductID: "a", Kind: domain.KindView, Weight: domain.KindView.Weight(), CreatedAt: now},
		{SessionID: "s1", ProductID: "b", Kind: domain.KindClick, Weight: domain.KindClick.Weight(), CreatedAt: now},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"a": inStock("a", "shoes", "acme"),
		"b": inStock("b", "shoes", "acme"),
		"c": inStock("c", "shoes", "acme"),
	}}
	h := testHybrid(t, similarity, interactions, catalog)

	results, err := h.Personalized(context.Background(), &PersonalizedReq{SessionID: "s1", Limit: 5})
	if err != nil {
		t.Fatalf("personalized: %v", err)
	}
	// b есть в истории, но остаётся кандидатом как сосед a; исключается
	// только исходный товар каждого обращения
	if len(results) != 2 {
		t.Fatalf("expected c and b, got %+v", results)
	}
	if results[0].Product.ID != "c" || math.Abs(results[0].Score-0.7*0.8*domain.KindClick.Weight()) > 1e-9 {
		t.Fatalf("expected c first with click-weighted score, got %+v", results[0])
	}
	if results[1].Product.ID != "b" || math.Abs(results[1].Score-0.7*0.9*domain.KindView.Weight()) > 1e-9 {
		t.Fatalf("expected history item b to stay recommendable, got %+v", results[1])
	}

	// Явные исключения вызывающего применяются поверх
	results, err = h.Personalized(context.Background(), &PersonalizedReq{
		SessionID:  "s1",
		Limit:      5,
		ExcludeIDs: []string{"c"},
	})
	if err != nil {
		t.Fatalf("personalized with exclude: %v", err)
	}
	if len(results) != 1 || results[0].Product.ID != "b" {
		t.Fatalf("expected only b after excluding c, got %+v", results)
	}
}
