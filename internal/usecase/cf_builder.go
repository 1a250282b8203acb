package usecase

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

const (
	defaultCFWindowDays    = 30
	defaultMinInteractions = 2
	similarityThreshold    = 0.1
	neighborsPerProduct    = 20
)

// CFBuilder строит item-item кэш коллаборативной фильтрации по логу
// взаимодействий. Похожесть — косинус между столбцами разреженной матрицы
// сессия×товар; для каждого товара сохраняются топ-соседи.
//
// Построение идемпотентно: повторный запуск на тех же данных даёт тот же
// кэш, записи заменяются целиком.
type CFBuilder struct {
	interactionRepo InteractionRepository
	cacheRepo       SimilarityCacheRepository
	logger          logger.Logger
}

func NewCFBuilder(interactionRepo InteractionRepository, cacheRepo SimilarityCacheRepository, logger logger.Logger) *CFBuilder {
	return &CFBuilder{
		interactionRepo: interactionRepo,
		cacheRepo:       cacheRepo,
		logger:          logger,
	}
}

// Build перестраивает CF-кэш по событиям за окно days. Товары с числом
// различных сессий меньше minInteractions не получают записи: оценка
// похожести по единственной сессии вырождается в шум.
func (b *CFBuilder) Build(ctx context.Context, days, minInteractions int) (*BuildStats, error) {
	const op = "CFBuilder.Build"

	if days <= 0 {
		days = defaultCFWindowDays
	}
	if minInteractions <= 0 {
		minInteractions = defaultMinInteractions
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	matrix, err := b.interactionRepo.SessionProductWeights(ctx, since)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if matrix.Events == 0 || len(matrix.Weights) == 0 {
		return nil, e.Wrap(op, e.ErrInsufficientData)
	}

	// Транспонируем в столбцы товар→(сессия→вес) и считаем охват по сессиям
	columns := make(map[string]map[string]float64)
	sessionsPerProduct := make(map[string]map[string]struct{})
	for sessionID, products := range matrix.Weights {
		for productID, weight := range products {
			col, ok := columns[productID]
			if !ok {
				col = make(map[string]float64)
				columns[productID] = col
				sessionsPerProduct[productID] = make(map[string]struct{})
			}
			col[sessionID] += weight
			sessionsPerProduct[productID][sessionID] = struct{}{}
		}
	}

	eligible := make([]string, 0, len(columns))
	for productID, sessions := range sessionsPerProduct {
		if len(sessions) >= minInteractions {
			eligible = append(eligible, productID)
		}
	}
	sort.Strings(eligible)

	if len(eligible) < 2 {
		return nil, e.Wrap(op, e.ErrInsufficientData)
	}

	norms := make(map[string]float64, len(eligible))
	for _, productID := range eligible {
		var sum float64
		for _, w := range columns[productID] {
			sum += w * w
		}
		norms[productID] = math.Sqrt(sum)
	}

	stats := &BuildStats{
		TotalInteractions: matrix.Events,
		TotalUsers:        len(matrix.Weights),
		TotalProducts:     len(columns),
		WindowDays:        days,
	}

	var totalNeighbors int
	for _, productID := range eligible {
		neighbors := b.topNeighbors(productID, eligible, columns, norms)
		if len(neighbors) == 0 {
			continue
		}

		entry := domain.NewSimilarityCacheEntry(productID, neighbors, domain.AlgorithmCF, days)
		if err := b.cacheRepo.UpsertEntry(ctx, entry); err != nil {
			return nil, e.Wrap(op, err)
		}

		stats.CachedProducts++
		totalNeighbors += len(neighbors)
	}

	if stats.CachedProducts > 0 {
		stats.AvgNeighbors = float64(totalNeighbors) / float64(stats.CachedProducts)
	}
	stats.CompletedAt = time.Now().UTC()

	b.logger.Infof(
		"CF cache built: %d/%d products cached, avg %.1f neighbors, window %dd",
		stats.CachedProducts, stats.TotalProducts, stats.AvgNeighbors, days,
	)

	return stats, nil
}

// topNeighbors отбирает соседей товара с косинусом строго выше порога,
// отсортированных по убыванию, не больше neighborsPerProduct.
func (b *CFBuilder) topNeighbors(
	productID string,
	eligible []string,
	columns map[string]map[string]float64,
	norms map[string]float64,
) []domain.Neighbor {
	col := columns[productID]
	norm := norms[productID]
	if norm == 0 {
		return nil
	}

	var neighbors []domain.Neighbor
	for _, otherID := range eligible {
		if otherID == productID {
			continue
		}
		otherNorm := norms[otherID]
		if otherNorm == 0 {
			continue
		}

		var dot float64
		other := columns[otherID]
		// Итерируем по меньшему столбцу
		small, large := col, other
		if len(large) < len(small) {
			small, large = large, small
		}
		for sessionID, w := range small {
			if ow, ok := large[sessionID]; ok {
				dot += w * ow
			}
		}

		score := dot / (norm * otherNorm)
		if score <= similarityThreshold {
			continue
		}
		neighbors = append(neighbors, domain.Neighbor{ProductID: otherID, Score: score})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].ProductID < neighbors[j].ProductID
	})
	if len(neighbors) > neighborsPerProduct {
		neighbors = neighbors[:neighborsPerProduct]
	}
	return neighbors
}
