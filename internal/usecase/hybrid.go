package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

const (
	defaultCFWeight      = 0.7
	defaultPopularWeight = 0.3

	// candidateFactor — во сколько раз больше кандидатов забирается из каждого
	// источника перед слиянием, чтобы фильтры каталога не съели выдачу.
	candidateFactor = 2

	defaultPersonalWindowDays = 7
	defaultMaxHistory         = 10
	neighborsPerHistoryItem   = 5
)

// HybridWeights — веса источников при слиянии. Сумма должна быть положительной.
type HybridWeights struct {
	CF      float64
	Popular float64
}

func DefaultHybridWeights() HybridWeights {
	return HybridWeights{CF: defaultCFWeight, Popular: defaultPopularWeight}
}

// HybridRecommender сливает CF-соседей и популярность во взвешенную выдачу.
// Итоговый Score — явная сумма weights.CF*cf + weights.Popular*pop, источники
// помечаются в Reason.
type HybridRecommender struct {
	similarityRepo  SimilarityCacheRepository
	interactionRepo InteractionRepository
	popularity      *PopularityRecommender
	resolver        *CatalogResolver
	weights         HybridWeights
	logger          logger.Logger
}

func NewHybridRecommender(
	similarityRepo SimilarityCacheRepository,
	interactionRepo InteractionRepository,
	popularity *PopularityRecommender,
	resolver *CatalogResolver,
	weights HybridWeights,
	logger logger.Logger,
) (*HybridRecommender, error) {
	if weights.CF < 0 || weights.Popular < 0 || weights.CF+weights.Popular <= 0 {
		return nil, e.Wrap("NewHybridRecommender", e.ErrInvalidWeights)
	}
	return &HybridRecommender{
		similarityRepo:  similarityRepo,
		interactionRepo: interactionRepo,
		popularity:      popularity,
		resolver:        resolver,
		weights:         weights,
		logger:          logger,
	}, nil
}

// ByProduct возвращает товары, похожие на заданный, по выбранному алгоритму.
// Отсутствие CF-записи для товара — штатная ситуация: и hybrid, и чистый cf
// в этом случае деградируют до популярности, короткая CF-выдача добивается
// популярными товарами.
func (h *HybridRecommender) ByProduct(ctx context.Context, req *RecommendReq) ([]ScoredProduct, error) {
	const op = "HybridRecommender.ByProduct"

	switch req.Algorithm {
	case domain.AlgorithmCF:
		results, err := h.cfCandidates(ctx, req, req.Limit)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if len(results) < req.Limit {
			exclude := make([]string, 0, len(results)+1)
			exclude = append(exclude, req.ProductID)
			for _, sp := range results {
				exclude = append(exclude, sp.Product.ID)
			}
			pop, err := h.popularity.Popular(ctx, &PopularReq{
				Category:   req.Category,
				Brand:      req.Brand,
				Limit:      req.Limit - len(results),
				ExcludeIDs: exclude,
			})
			if err != nil {
				return nil, e.Wrap(op, err)
			}
			results = append(results, pop...)
		}
		if len(results) > req.Limit {
			results = results[:req.Limit]
		}
		return results, nil

	case domain.AlgorithmPopularity:
		return h.popularity.Popular(ctx, &PopularReq{
			Category:   req.Category,
			Brand:      req.Brand,
			Limit:      req.Limit,
			ExcludeIDs: []string{req.ProductID},
		})

	case domain.AlgorithmHybrid, "":
		return h.hybrid(ctx, req)

	default:
		return nil, e.Wrap(op, e.ErrInvalidAlgorithm)
	}
}

func (h *HybridRecommender) hybrid(ctx context.Context, req *RecommendReq) ([]ScoredProduct, error) {
	const op = "HybridRecommender.hybrid"

	candidateLimit := req.Limit * candidateFactor

	cf, err := h.cfCandidates(ctx, req, candidateLimit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	pop, err := h.popularity.Popular(ctx, &PopularReq{
		Category:   req.Category,
		Brand:      req.Brand,
		Limit:      candidateLimit,
		ExcludeIDs: []string{req.ProductID},
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	merged := make(map[string]*ScoredProduct, len(cf)+len(pop))
	for n := range cf {
		sp := cf[n]
		merged[sp.Product.ID] = &ScoredProduct{
			Product: sp.Product,
			CFScore: sp.CFScore,
			Reason:  ReasonCF,
		}
	}
	// Вклад популярности входит в сумму как есть, без нормализации
	for n := range pop {
		sp := pop[n]
		if existing, ok := merged[sp.Product.ID]; ok {
			existing.PopularScore = sp.PopularScore
			existing.Reason = ReasonHybrid
		} else {
			merged[sp.Product.ID] = &ScoredProduct{
				Product:      sp.Product,
				PopularScore: sp.PopularScore,
				Reason:       ReasonPopular,
			}
		}
	}

	results := make([]ScoredProduct, 0, len(merged))
	for _, sp := range merged {
		sp.Score = h.weights.CF*sp.CFScore + h.weights.Popular*sp.PopularScore
		results = append(results, *sp)
	}
	sortScored(results)

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

// cfCandidates разворачивает кэшированных соседей в выдачу с атрибутами каталога.
func (h *HybridRecommender) cfCandidates(ctx context.Context, req *RecommendReq, limit int) ([]ScoredProduct, error) {
	const op = "HybridRecommender.cfCandidates"

	entry, err := h.similarityRepo.GetEntry(ctx, req.ProductID, domain.AlgorithmCF)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if entry == nil || len(entry.Neighbors) == 0 {
		return []ScoredProduct{}, nil
	}

	ids := make([]string, 0, len(entry.Neighbors))
	for _, n := range entry.Neighbors {
		if n.ProductID == req.ProductID {
			continue
		}
		ids = append(ids, n.ProductID)
	}
	resolved, err := h.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := make([]ScoredProduct, 0, limit)
	for _, n := range entry.Neighbors {
		info, ok := resolved[n.ProductID]
		if !ok || !matchesFilters(info, req.Category, req.Brand) {
			continue
		}
		results = append(results, ScoredProduct{
			Product: info,
			Score:   n.Score,
			CFScore: n.Score,
			Reason:  ReasonCF,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Personalized строит выдачу по недавней истории сессии: для каждого товара
// из истории берётся гибридная выдача (с исключением самого товара), её
// оценки умножаются на вес взаимодействия и складываются по кандидатам.
// Другие товары истории из кандидатов не выкидываются — исключаются только
// исходный товар каждого вызова и явные исключения вызывающего. Холодный
// старт (пустая история) отдаёт ровно то же, что Popular.
func (h *HybridRecommender) Personalized(ctx context.Context, req *PersonalizedReq) ([]ScoredProduct, error) {
	const op = "HybridRecommender.Personalized"

	windowDays := req.WindowDays
	if windowDays <= 0 {
		windowDays = defaultPersonalWindowDays
	}
	maxHistory := req.MaxHistory
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistory
	}
	since := time.Now().UTC().AddDate(0, 0, -windowDays)

	history, err := h.interactionRepo.RecentBySession(ctx, req.SessionID, since, maxHistory)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(history) == 0 {
		return h.popularity.Popular(ctx, &PopularReq{
			Category:   req.Category,
			Limit:      req.Limit,
			ExcludeIDs: req.ExcludeIDs,
		})
	}

	excluded := toSet(req.ExcludeIDs)

	scores := make(map[string]float64)
	infos := make(map[string]ProductInfo)
	for _, inter := range history {
		recs, err := h.hybrid(ctx, &RecommendReq{
			ProductID: inter.ProductID,
			Limit:     neighborsPerHistoryItem,
			Category:  req.Category,
		})
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		for _, sp := range recs {
			if _, skip := excluded[sp.Product.ID]; skip {
				continue
			}
			scores[sp.Product.ID] += sp.Score * inter.Weight
			infos[sp.Product.ID] = sp.Product
		}
	}

	if len(scores) == 0 {
		return h.popularity.Popular(ctx, &PopularReq{
			Category:   req.Category,
			Limit:      req.Limit,
			ExcludeIDs: req.ExcludeIDs,
		})
	}

	results := make([]ScoredProduct, 0, len(scores))
	for id, score := range scores {
		results = append(results, ScoredProduct{
			Product: infos[id],
			Score:   score,
			Reason:  ReasonPersonalized,
		})
	}
	sortScored(results)

	if len(results) > req.Limit {
		results = results[:req.Limit]
	}
	return results, nil
}

// sortScored сортирует по убыванию Score с детерминированным порядком при равенстве.
func sortScored(results []ScoredProduct) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Product.ID < results[j].Product.ID
	})
}
