package pgdb

import (
	"context"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/repository/pgdb/converter"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// SimilarityCacheRepo хранит предвычисленных соседей в таблице
// recommendation_cache. Одна запись на пару (товар, алгоритм), соседи —
// JSONB-массив, заменяемый целиком.
type SimilarityCacheRepo struct {
	pool *pgxpool.Pool
	conv converter.SimilarityCacheConverter
}

func NewSimilarityCacheRepo(pool *pgxpool.Pool, conv converter.SimilarityCacheConverter) *SimilarityCacheRepo {
	return &SimilarityCacheRepo{
		pool: pool,
		conv: conv,
	}
}

// UpsertEntry атомарно заменяет запись: читатели видят либо старый список
// соседей, либо новый, но не смесь.
func (r *SimilarityCacheRepo) UpsertEntry(ctx context.Context, entry *domain.SimilarityCacheEntry) error {
	model, err := r.conv.ToModel(entry)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO recommendation_cache (product_id, algorithm, neighbors, window_days, built_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, algorithm)
		DO UPDATE SET
			neighbors = EXCLUDED.neighbors,
			window_days = EXCLUDED.window_days,
			built_at = EXCLUDED.built_at
	`

	_, err = r.pool.Exec(ctx, query,
		model.ProductID, model.Algorithm, model.Neighbors, model.WindowDays, model.BuiltAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// GetEntry возвращает (nil, nil), если записи нет.
func (r *SimilarityCacheRepo) GetEntry(ctx context.Context, productID string, algorithm domain.Algorithm) (*domain.SimilarityCacheEntry, error) {
	query := `
		SELECT product_id, algorithm, neighbors, window_days, built_at
		FROM recommendation_cache
		WHERE product_id = $1 AND algorithm = $2
	`

	var model converter.SimilarityCacheModel
	err := r.pool.QueryRow(ctx, query, productID, string(algorithm)).Scan(
		&model.ProductID, &model.Algorithm, &model.Neighbors, &model.WindowDays, &model.BuiltAt,
	)
	if err != nil {
		if noRowsReturned(err) {
			return nil, nil
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	entry, err := r.conv.ToEntity(&model)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return entry, nil
}
