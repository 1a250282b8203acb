package usecase

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

const (
	defaultPopularWindowDays   = 7
	defaultTrendingWindowHours = 24
	// discountScoreFactor переводит долю скидки в сопоставимую с весами шкалу.
	discountScoreFactor = 10
)

// PopularityRecommender — ранжирование без персонализации: cold start и fallback.
type PopularityRecommender struct {
	interactionRepo InteractionRepository
	catalogRepo     CatalogRepository
	resolver        *CatalogResolver
	logger          logger.Logger
}

func NewPopularityRecommender(
	interactionRepo InteractionRepository,
	catalogRepo CatalogRepository,
	resolver *CatalogResolver,
	logger logger.Logger,
) *PopularityRecommender {
	return &PopularityRecommender{
		interactionRepo: interactionRepo,
		catalogRepo:     catalogRepo,
		resolver:        resolver,
		logger:          logger,
	}
}

// Popular возвращает товары по суммарному весу взаимодействий за окно.
// Если за окно не было ни одного подходящего события, срабатывает каталожный
// fallback: сортировка по скидке и новизне.
func (p *PopularityRecommender) Popular(ctx context.Context, req *PopularReq) ([]ScoredProduct, error) {
	const op = "PopularityRecommender.Popular"

	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = defaultPopularWindowDays
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	scores, err := p.interactionRepo.ProductWeights(ctx, since, req.Category, req.Brand)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	excluded := toSet(req.ExcludeIDs)
	top := make([]WeightedScore, 0, req.Limit)
	for _, ws := range scores {
		if _, skip := excluded[ws.ProductID]; skip {
			continue
		}
		top = append(top, ws)
		if len(top) >= req.Limit {
			break
		}
	}

	if len(top) == 0 {
		return p.discountFallback(ctx, req)
	}

	ids := make([]string, 0, len(top))
	for _, ws := range top {
		ids = append(ids, ws.ProductID)
	}
	resolved, err := p.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := make([]ScoredProduct, 0, len(top))
	for _, ws := range top {
		info, ok := resolved[ws.ProductID]
		if !ok || !matchesFilters(info, req.Category, req.Brand) {
			continue
		}
		results = append(results, ScoredProduct{
			Product:      info,
			Score:        ws.Score,
			PopularScore: ws.Score,
			Reason:       ReasonPopular,
		})
	}

	return results, nil
}

// Trending считает сырое число событий за короткое окно: намеренно без весов,
// чтобы отражать скорость роста, а не накопленную популярность.
func (p *PopularityRecommender) Trending(ctx context.Context, req *TrendingReq) ([]ScoredProduct, error) {
	const op = "PopularityRecommender.Trending"

	windowHours := req.WindowHours
	if windowHours <= 0 {
		windowHours = defaultTrendingWindowHours
	}
	since := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	counts, err := p.interactionRepo.ProductEventCounts(ctx, since, req.Category, req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(counts) == 0 {
		return []ScoredProduct{}, nil
	}

	ids := make([]string, 0, len(counts))
	for _, ws := range counts {
		ids = append(ids, ws.ProductID)
	}
	resolved, err := p.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := make([]ScoredProduct, 0, len(counts))
	for _, ws := range counts {
		info, ok := resolved[ws.ProductID]
		if !ok || !matchesFilters(info, req.Category, "") {
			continue
		}
		results = append(results, ScoredProduct{
			Product:      info,
			Score:        ws.Score,
			PopularScore: ws.Score,
			Reason:       ReasonTrending,
		})
		if len(results) >= req.Limit {
			break
		}
	}

	return results, nil
}

// discountFallback ранжирует каталог по скидке и новизне, когда лог
// взаимодействий пуст для заданного окна.
func (p *PopularityRecommender) discountFallback(ctx context.Context, req *PopularReq) ([]ScoredProduct, error) {
	const op = "PopularityRecommender.discountFallback"

	products, err := p.catalogRepo.ListByDiscount(ctx, req.Category, req.Brand, req.Limit, req.ExcludeIDs)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := make([]ScoredProduct, 0, len(products))
	for _, info := range products {
		score := info.DiscountRate * discountScoreFactor
		results = append(results, ScoredProduct{
			Product:      info,
			Score:        score,
			PopularScore: score,
			Reason:       ReasonPopularDiscount,
		})
	}

	return results, nil
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
