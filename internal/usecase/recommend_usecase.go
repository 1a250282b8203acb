package usecase

import (
	"context"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/index"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

const (
	defaultLimit = 10
	maxLimit     = 50
)

// RecommendUsecase — фасад рекомендаций для API-слоя: гибридная выдача,
// персонализация, популярность и визуальный поиск по индексу эмбеддингов.
type RecommendUsecase struct {
	hybrid         *HybridRecommender
	popularity     *PopularityRecommender
	flatIndex      *index.FlatIndex
	embeddingStore EmbeddingStore
	catalogRepo    CatalogRepository
	vectorizer     VectorizerInfra
	resolver       *CatalogResolver
	logger         logger.Logger
}

func NewRecommendUsecase(
	hybrid *HybridRecommender,
	popularity *PopularityRecommender,
	flatIndex *index.FlatIndex,
	embeddingStore EmbeddingStore,
	catalogRepo CatalogRepository,
	vectorizer VectorizerInfra,
	resolver *CatalogResolver,
	logger logger.Logger,
) *RecommendUsecase {
	return &RecommendUsecase{
		hybrid:         hybrid,
		popularity:     popularity,
		flatIndex:      flatIndex,
		embeddingStore: embeddingStore,
		catalogRepo:    catalogRepo,
		vectorizer:     vectorizer,
		resolver:       resolver,
		logger:         logger,
	}
}

func (uc *RecommendUsecase) RecommendByProduct(ctx context.Context, req *RecommendReq) ([]ScoredProduct, error) {
	const op = "RecommendUsecase.RecommendByProduct"

	if req.ProductID == "" {
		return nil, e.Wrap(op, e.ErrProductIDRequired)
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Limit = limit

	return uc.hybrid.ByProduct(ctx, req)
}

func (uc *RecommendUsecase) RecommendPersonalized(ctx context.Context, req *PersonalizedReq) ([]ScoredProduct, error) {
	const op = "RecommendUsecase.RecommendPersonalized"

	if req.SessionID == "" {
		return nil, e.Wrap(op, e.ErrSessionIDRequired)
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Limit = limit

	return uc.hybrid.Personalized(ctx, req)
}

func (uc *RecommendUsecase) Popular(ctx context.Context, req *PopularReq) ([]ScoredProduct, error) {
	const op = "RecommendUsecase.Popular"

	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Limit = limit

	return uc.popularity.Popular(ctx, req)
}

func (uc *RecommendUsecase) Trending(ctx context.Context, req *TrendingReq) ([]ScoredProduct, error) {
	const op = "RecommendUsecase.Trending"

	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	req.Limit = limit

	return uc.popularity.Trending(ctx, req)
}

// SimilarByImage ищет визуально похожие товары по эмбеддингу заданного.
// Если эмбеддинга в хранилище нет, вектор извлекается на месте по картинке
// из каталога и сохраняется для следующих запросов.
func (uc *RecommendUsecase) SimilarByImage(ctx context.Context, req *SimilarImagesReq) ([]ScoredProduct, error) {
	const op = "RecommendUsecase.SimilarByImage"

	if req.ProductID == "" {
		return nil, e.Wrap(op, e.ErrProductIDRequired)
	}
	if req.MinSimilarity < 0 || req.MinSimilarity >= 1 {
		return nil, e.Wrap(op, e.ErrInvalidSimilarity)
	}
	limit, err := normalizeLimit(req.Limit)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	vector, err := uc.queryVector(ctx, req.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	matches, err := uc.flatIndex.Search(vector, limit, req.ProductID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.Similarity < req.MinSimilarity {
			continue
		}
		ids = append(ids, m.ProductID)
	}
	resolved, err := uc.resolver.Resolve(ctx, ids)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	results := make([]ScoredProduct, 0, len(ids))
	for _, m := range matches {
		info, ok := resolved[m.ProductID]
		if !ok || m.Similarity < req.MinSimilarity || !info.InStock {
			continue
		}
		results = append(results, ScoredProduct{
			Product: info,
			Score:   m.Similarity,
			Reason:  ReasonVisual,
		})
	}

	return results, nil
}

func (uc *RecommendUsecase) IndexStats(ctx context.Context) (*IndexStatsRes, error) {
	stats := uc.flatIndex.Stats()
	return &IndexStatsRes{
		VectorCount: stats.VectorCount,
		Dimension:   stats.Dimension,
		BuiltAt:     stats.BuiltAt,
	}, nil
}

// queryVector достаёт эмбеддинг товара из хранилища либо извлекает его на
// месте; извлечённый вектор сохраняется и добавляется в индекс best-effort.
func (uc *RecommendUsecase) queryVector(ctx context.Context, productID string) ([]float32, error) {
	const op = "RecommendUsecase.queryVector"

	emb, err := uc.embeddingStore.Get(ctx, productID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if emb != nil {
		return emb.Vector, nil
	}

	products, err := uc.catalogRepo.GetProducts(ctx, []string{productID})
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	info, ok := products[productID]
	if !ok {
		return nil, e.Wrap(op, e.ErrProductNotFound)
	}
	if info.ImageURL == "" {
		return nil, e.Wrap(op, e.ErrNoEmbedding)
	}

	res, err := uc.vectorizer.Vectorize(ctx, info.ImageURL)
	if err != nil {
		uc.logger.Warnf("Inline vectorize failed for product %s: %v", productID, err)
		return nil, e.Wrap(op, e.ErrNoEmbedding)
	}

	fresh := domain.NewEmbedding(productID, res.Vector, res.ModelVersion, info.ImageURL)
	if err := uc.embeddingStore.Upsert(ctx, fresh); err != nil {
		uc.logger.Warnf("Failed to persist inline embedding for product %s: %v", productID, err)
	}
	if err := uc.flatIndex.Add([][]float32{res.Vector}, []string{productID}); err != nil {
		uc.logger.Warnf("Failed to index inline embedding for product %s: %v", productID, err)
	}

	return res.Vector, nil
}

func normalizeLimit(limit int) (int, error) {
	switch {
	case limit < 0:
		return 0, e.ErrInvalidLimit
	case limit == 0:
		return defaultLimit, nil
	case limit > maxLimit:
		return maxLimit, nil
	}
	return limit, nil
}
