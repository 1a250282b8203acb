package pgdb

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/repository/pgdb/converter"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// InteractionRepo реализует append-only лог взаимодействий поверх PostgreSQL.
type InteractionRepo struct {
	pool *pgxpool.Pool
	conv converter.InteractionConverter
}

func NewInteractionRepo(pool *pgxpool.Pool, conv converter.InteractionConverter) *InteractionRepo {
	return &InteractionRepo{
		pool: pool,
		conv: conv,
	}
}

func (r *InteractionRepo) Append(ctx context.Context, inter *domain.Interaction) error {
	query := `
		INSERT INTO interactions (session_id, user_email, product_id, category, brand, kind, weight, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	model := r.conv.ToModel(inter)
	_, err := r.pool.Exec(ctx, query,
		model.SessionID, model.UserEmail, model.ProductID,
		model.Category, model.Brand, model.Kind, model.Weight, model.CreatedAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// SessionProductWeights возвращает разреженную матрицу сессия→товар→суммарный
// вес по событиям начиная с since. Веса одной пары складываются на стороне БД.
func (r *InteractionRepo) SessionProductWeights(ctx context.Context, since time.Time) (*usecase.InteractionMatrix, error) {
	query := `
		SELECT session_id, product_id, SUM(weight), COUNT(*)
		FROM interactions
		WHERE created_at >= $1
		GROUP BY session_id, product_id
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	matrix := &usecase.InteractionMatrix{
		Weights: make(map[string]map[string]float64),
	}
	for rows.Next() {
		var sessionID, productID string
		var weight float64
		var events int
		if err := rows.Scan(&sessionID, &productID, &weight, &events); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		row, ok := matrix.Weights[sessionID]
		if !ok {
			row = make(map[string]float64)
			matrix.Weights[sessionID] = row
		}
		row[productID] = weight
		matrix.Events += events
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return matrix, nil
}

// ProductWeights возвращает суммарные веса по товарам за окно, по убыванию.
// Фильтры категории и бренда применяются к атрибутам, снятым на момент события.
func (r *InteractionRepo) ProductWeights(ctx context.Context, since time.Time, category, brand string) ([]usecase.WeightedScore, error) {
	query := `
		SELECT product_id, SUM(weight) AS score
		FROM interactions
		WHERE created_at >= $1
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR brand = $3)
		GROUP BY product_id
		ORDER BY score DESC
	`

	rows, err := r.pool.Query(ctx, query, since, category, brand)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	return scanWeightedScores(rows)
}

// ProductEventCounts возвращает сырое число событий по товарам за окно, по убыванию.
func (r *InteractionRepo) ProductEventCounts(ctx context.Context, since time.Time, category string, limit int) ([]usecase.WeightedScore, error) {
	query := `
		SELECT product_id, COUNT(*) AS score
		FROM interactions
		WHERE created_at >= $1
		  AND ($2 = '' OR category = $2)
		GROUP BY product_id
		ORDER BY score DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, since, category, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	return scanWeightedScores(rows)
}

// RecentBySession возвращает последние события сессии, новые первыми.
func (r *InteractionRepo) RecentBySession(ctx context.Context, sessionID string, since time.Time, limit int) ([]domain.Interaction, error) {
	query := `
		SELECT session_id, user_email, product_id, category, brand, kind, weight, created_at
		FROM interactions
		WHERE session_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, sessionID, since, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.Interaction, 0, limit)
	for rows.Next() {
		var model converter.InteractionModel
		if err := rows.Scan(
			&model.SessionID, &model.UserEmail, &model.ProductID,
			&model.Category, &model.Brand, &model.Kind, &model.Weight, &model.CreatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, *r.conv.ToEntity(&model))
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func scanWeightedScores(rows pgx.Rows) ([]usecase.WeightedScore, error) {
	result := make([]usecase.WeightedScore, 0)
	for rows.Next() {
		var ws usecase.WeightedScore
		if err := rows.Scan(&ws.ProductID, &ws.Score); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, ws)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	return result, nil
}
