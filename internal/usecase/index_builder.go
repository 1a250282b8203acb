package usecase

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/internal/index"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// BuilderUsecase — батч-построители: CF-кэш и полная перестройка векторного
// индекса из долговременного хранилища эмбеддингов.
type BuilderUsecase struct {
	cfBuilder      *CFBuilder
	embeddingStore EmbeddingStore
	flatIndex      *index.FlatIndex
	artifactStore  index.ArtifactStore
	logger         logger.Logger
}

func NewBuilderUsecase(
	cfBuilder *CFBuilder,
	embeddingStore EmbeddingStore,
	flatIndex *index.FlatIndex,
	artifactStore index.ArtifactStore,
	logger logger.Logger,
) *BuilderUsecase {
	return &BuilderUsecase{
		cfBuilder:      cfBuilder,
		embeddingStore: embeddingStore,
		flatIndex:      flatIndex,
		artifactStore:  artifactStore,
		logger:         logger,
	}
}

func (uc *BuilderUsecase) BuildSimilarityCache(ctx context.Context, days, minInteractions int) (*BuildStats, error) {
	return uc.cfBuilder.Build(ctx, days, minInteractions)
}

// RebuildIndex восстанавливает индекс из хранилища эмбеддингов и публикует
// новый снапшот атомарно: поиск продолжает работать по старому снапшоту до
// самой замены. Векторы с неверной размерностью пропускаются, а не роняют
// перестройку. После замены снапшот сохраняется в артефакты для быстрого
// старта.
func (uc *BuilderUsecase) RebuildIndex(ctx context.Context) (*IndexBuildStats, error) {
	const op = "BuilderUsecase.RebuildIndex"

	embeddings, err := uc.embeddingStore.FetchAll(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	dim := uc.flatIndex.Dimension()
	vectors := make([][]float32, 0, len(embeddings))
	ids := make([]string, 0, len(embeddings))
	skipped := 0
	for _, emb := range embeddings {
		if len(emb.Vector) != dim || emb.ProductID == "" {
			skipped++
			uc.logger.Warnf(
				"Skipping embedding for product %q: dim %d, expected %d",
				emb.ProductID, len(emb.Vector), dim,
			)
			continue
		}
		vectors = append(vectors, emb.Vector)
		ids = append(ids, emb.ProductID)
	}

	if err := uc.flatIndex.Replace(vectors, ids); err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := uc.flatIndex.Save(ctx, uc.artifactStore); err != nil {
		// Индекс уже обновлён в памяти, несохранённый снапшот догонит
		// следующая перестройка
		uc.logger.Errorf(err, "Failed to persist index snapshot")
	}

	stats := &IndexBuildStats{
		TotalEmbeddings: len(embeddings),
		Indexed:         len(ids),
		SkippedInvalid:  skipped,
		CompletedAt:     time.Now().UTC(),
	}

	uc.logger.Infof("Index rebuilt: %d indexed, %d skipped", stats.Indexed, stats.SkippedInvalid)
	return stats, nil
}

// WarmStart пытается поднять индекс из сохранённых артефактов при запуске.
// Отсутствие или несогласованность артефактов — не ошибка: индекс останется
// пустым до первой перестройки.
func (uc *BuilderUsecase) WarmStart(ctx context.Context) {
	if err := uc.flatIndex.Load(ctx, uc.artifactStore); err != nil {
		uc.logger.Warnf("Index warm start skipped: %v", err)
	}
}
