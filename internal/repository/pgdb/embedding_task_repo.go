package pgdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/outletiq/reco-backend/internal/repository/pgdb/converter"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// EmbeddingTaskRepo — очередь задач векторизации в PostgreSQL (outbox).
// Задача создаётся в транзакции регистрации товара; воркеры конкурентно
// забирают батчи через FOR UPDATE SKIP LOCKED.
type EmbeddingTaskRepo struct {
	pool *pgxpool.Pool
	conv converter.EmbeddingTaskConverter
}

func NewEmbeddingTaskRepo(pool *pgxpool.Pool, conv converter.EmbeddingTaskConverter) *EmbeddingTaskRepo {
	return &EmbeddingTaskRepo{
		pool: pool,
		conv: conv,
	}
}

func (r *EmbeddingTaskRepo) Create(ctx context.Context, task *usecase.EmbeddingTask) (*usecase.EmbeddingTask, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model := r.conv.ToModel(task)
	query := `
		INSERT INTO embedding_tasks (
			task_id,
			product_id,
			image_url,
			status,
			created_at
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at;
	`

	if err := tx.QueryRow(ctx, query,
		model.TaskID,
		model.ProductID,
		model.ImageURL,
		model.Status,
		model.CreatedAt,
	).Scan(&model.ID, &model.CreatedAt); err != nil {
		if postgresDuplicate(err) {
			return nil, fmt.Errorf("%s: task with id %s already exists", whereami.WhereAmI(), task.TaskID)
		}

		return nil, fmt.Errorf("%s: failed to insert task: %w", whereami.WhereAmI(), err)
	}

	_, err = tx.Exec(ctx, "NOTIFY embedding_tasks_pending;")
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToEntity(model), nil
}

func (r *EmbeddingTaskRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*usecase.EmbeddingTask, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", whereami.WhereAmI(), err)
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	query := `
		UPDATE embedding_tasks
        SET status = $1, processing_started_at = now()
        WHERE id IN (
            SELECT id FROM embedding_tasks
            WHERE status = $2
            ORDER BY created_at
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, task_id, product_id, image_url, status, attempts, last_error, created_at, processed_at
	`

	rows, err := tx.Query(ctx, query, usecase.TaskProcessing, usecase.TaskPending, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to query pending tasks: %w", whereami.WhereAmI(), err)
	}
	defer rows.Close()

	var models []*converter.EmbeddingTaskModel
	for rows.Next() {
		var model converter.EmbeddingTaskModel
		var lastError sql.NullString
		var processedAt sql.NullTime

		err := rows.Scan(
			&model.ID,
			&model.TaskID,
			&model.ProductID,
			&model.ImageURL,
			&model.Status,
			&model.Attempts,
			&lastError,
			&model.CreatedAt,
			&processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to scan task: %w", whereami.WhereAmI(), err)
		}

		if lastError.Valid {
			model.LastError = lastError.String
		}
		if processedAt.Valid {
			model.ProcessedAt = &processedAt.Time
		}

		models = append(models, &model)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iterator error: %w", whereami.WhereAmI(), err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", whereami.WhereAmI(), err)
	}

	return r.conv.ToArrEntity(models), nil
}

func (r *EmbeddingTaskRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	query := `
		UPDATE embedding_tasks
		SET status = $1, processed_at = NOW()
		WHERE id = $2 AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, usecase.TaskProcessed, id, usecase.TaskProcessing)
	if err != nil {
		return fmt.Errorf("%s: failed to mark task %d as processed: %w", whereami.WhereAmI(), id, err)
	}

	// Нулевое число затронутых строк означает, что задачу уже закрыл другой
	// воркер; это не ошибка
	return nil
}

func (r *EmbeddingTaskRepo) MarkAsFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE embedding_tasks
		SET status = $1, attempts = attempts + 1, last_error = $2, processed_at = NOW()
		WHERE id = $3 AND status = $4
	`

	_, err := r.pool.Exec(ctx, query, usecase.TaskFailed, reason, id, usecase.TaskProcessing)
	if err != nil {
		return fmt.Errorf("%s: failed to mark task %d as failed: %w", whereami.WhereAmI(), id, err)
	}

	return nil
}
