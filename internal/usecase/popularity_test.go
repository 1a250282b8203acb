package usecase

import (
	"context"
	"math"
	"testing"
)

func testPopularity(catalog *fakeCatalogRepo, interactions *fakeInteractionRepo) *PopularityRecommender {
	resolver := NewCatalogResolver(catalog, newFakeCacheRepo(), nopLogger{})
	return NewPopularityRecommender(interactions, catalog, resolver, nopLogger{})
}

func TestPopularRanksAndExcludes(t *testing.T) {
	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "first", Score: 9},
		{ProductID: "skipped", Score: 8},
		{ProductID: "second", Score: 3},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"first":   inStock("first", "shoes", "acme"),
		"skipped": inStock("skipped", "shoes", "acme"),
		"second":  inStock("second", "shoes", "acme"),
	}}
	p := testPopularity(catalog, interactions)

	results, err := p.Popular(context.Background(), &PopularReq{Limit: 10, ExcludeIDs: []string{"skipped"}})
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Product.ID != "first" || results[1].Product.ID != "second" {
		t.Fatalf("wrong order: %s, %s", results[0].Product.ID, results[1].Product.ID)
	}
	for _, sp := range results {
		if sp.Reason != ReasonPopular {
			t.Fatalf("expected popular reason, got %s", sp.Reason)
		}
		if sp.PopularScore != sp.Score {
			t.Fatalf("popular score must equal total score, got %f vs %f", sp.PopularScore, sp.Score)
		}
	}
}

func TestPopularFiltersOutOfStock(t *testing.T) {
	interactions := &fakeInteractionRepo{weights: []WeightedScore{
		{ProductID: "gone", Score: 9},
		{ProductID: "here", Score: 3},
	}}
	gone := inStock("gone", "shoes", "acme")
	gone.InStock = false
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"gone": gone,
		"here": inStock("here", "shoes", "acme"),
	}}
	p := testPopularity(catalog, interactions)

	results, err := p.Popular(context.Background(), &PopularReq{Limit: 10})
	if err != nil {
		t.Fatalf("popular: %v", err)
	}
	if len(results) != 1 || results[0].Product.ID != "here" {
		t.Fatalf("out-of-stock product must be dropped, got %+v", results)
	}
}

func TestPopularDiscountFallback(t *testing.T) {
	deep := inStock("deep", "shoes", "acme")
	deep.DiscountRate = 0.6
	mild := inStock("mild", "shoes", "acme")
	mild.DiscountRate = 0.2

	interactions := &fakeInteractionRepo{}
	catalog := &fakeCatalogRepo{discounted: []ProductInfo{deep, mild}}
	p := testPopularity(catalog, interactions)

	results, err := p.Popular(context.Background(), &PopularReq{Limit: 10})
	if err != nil {
		t.Fatalf("popular fallback: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 fallback results, got %d", len(results))
	}
	if results[0].Reason != ReasonPopularDiscount {
		t.Fatalf("expected discount fallback reason, got %s", results[0].Reason)
	}
	if math.Abs(results[0].Score-0.6*discountScoreFactor) > 1e-9 {
		t.Fatalf("fallback score must scale discount rate, got %f", results[0].Score)
	}
}

func TestTrending(t *testing.T) {
	interactions := &fakeInteractionRepo{counts: []WeightedScore{
		{ProductID: "hot", Score: 42},
	}}
	catalog := &fakeCatalogRepo{products: map[string]ProductInfo{
		"hot": inStock("hot", "shoes", "acme"),
	}}
	p := testPopularity(catalog, interactions)

	results, err := p.Trending(context.Background(), &TrendingReq{Limit: 5})
	if err != nil {
		t.Fatalf("trending: %v", err)
	}
	if len(results) != 1 || results[0].Product.ID != "hot" {
		t.Fatalf("unexpected trending results: %+v", results)
	}
	if results[0].Reason != ReasonTrending {
		t.Fatalf("expected trending reason, got %s", results[0].Reason)
	}
	if results[0].Score != 42 {
		t.Fatalf("trending score must be the raw event count, got %f", results[0].Score)
	}
}
