package usecase

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// CatalogResolver разрешает ID кандидатов в атрибуты каталога: сначала кэш,
// промахи добираются из БД и фоново докэшируются. Отсутствующие в каталоге
// товары молча выпадают из результата — устаревшие ссылки из кэша
// рекомендаций не считаются ошибкой.
type CatalogResolver struct {
	catalogRepo CatalogRepository
	cacheRepo   ProductCacheRepository
	logger      logger.Logger
}

func NewCatalogResolver(catalogRepo CatalogRepository, cacheRepo ProductCacheRepository, logger logger.Logger) *CatalogResolver {
	return &CatalogResolver{
		catalogRepo: catalogRepo,
		cacheRepo:   cacheRepo,
		logger:      logger,
	}
}

// Resolve возвращает атрибуты найденных товаров по ID.
func (r *CatalogResolver) Resolve(ctx context.Context, ids []string) (map[string]ProductInfo, error) {
	const op = "CatalogResolver.Resolve"

	if len(ids) == 0 {
		return map[string]ProductInfo{}, nil
	}

	// Поиск в кэше; при недоступности кэша все ID идут в БД
	cached, err := r.cacheRepo.GetProducts(ctx, ids)
	if err != nil {
		cached = map[string]ProductInfo{}
	}

	var missing []string
	for _, id := range ids {
		if _, ok := cached[id]; !ok {
			missing = append(missing, id)
		}
	}

	result := make(map[string]ProductInfo, len(ids))
	for id, info := range cached {
		result[id] = info
	}

	if len(missing) > 0 {
		fromDB, err := r.catalogRepo.GetProducts(ctx, missing)
		if err != nil {
			return nil, e.Wrap(op, err)
		}

		toCache := make([]ProductInfo, 0, len(fromDB))
		for id, info := range fromDB {
			result[id] = info
			toCache = append(toCache, info)
		}

		// Фоновое добавление товаров в кэш
		if len(toCache) > 0 {
			go func() {
				bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
				defer cancel()

				if err := r.cacheRepo.SetProducts(bgCtx, toCache); err != nil {
					r.logger.Warnf("Failed to cache products in background: %v", e.Wrap(op, err))
				}
			}()
		}
	}

	return result, nil
}

// matchesFilters проверяет кандидата по фильтрам каталога и наличию на складе.
func matchesFilters(info ProductInfo, category, brand string) bool {
	if !info.InStock {
		return false
	}
	if category != "" && info.Category != category {
		return false
	}
	if brand != "" && info.Brand != brand {
		return false
	}
	return true
}
