package usecase

import "context"

type RecommendUC interface {
	RecommendByProduct(ctx context.Context, req *RecommendReq) ([]ScoredProduct, error)
	RecommendPersonalized(ctx context.Context, req *PersonalizedReq) ([]ScoredProduct, error)
	Popular(ctx context.Context, req *PopularReq) ([]ScoredProduct, error)
	Trending(ctx context.Context, req *TrendingReq) ([]ScoredProduct, error)
	SimilarByImage(ctx context.Context, req *SimilarImagesReq) ([]ScoredProduct, error)
	IndexStats(ctx context.Context) (*IndexStatsRes, error)
}

type InteractionUC interface {
	Record(ctx context.Context, req *RecordInteractionReq) error
}

type IngestUC interface {
	RegisterProduct(ctx context.Context, req *RegisterProductReq) (*EmbeddingTask, error)
}

type BuilderUC interface {
	BuildSimilarityCache(ctx context.Context, days, minInteractions int) (*BuildStats, error)
	RebuildIndex(ctx context.Context) (*IndexBuildStats, error)
}
