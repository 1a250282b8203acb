package usecase

import (
	"context"
	"strings"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IngestUsecase регистрирует товары из фидов аутлетов: апсерт в каталог и
// постановка задачи векторизации в одной транзакции (outbox), затем
// инвалидация кэша атрибутов.
type IngestUsecase struct {
	catalogRepo CatalogRepository
	taskRepo    EmbeddingTaskRepository
	cacheRepo   ProductCacheRepository
	dbPool      transaction.Transactional
	logger      logger.Logger
}

func NewIngestUsecase(
	catalogRepo CatalogRepository,
	taskRepo EmbeddingTaskRepository,
	cacheRepo ProductCacheRepository,
	dbPool transaction.Transactional,
	logger logger.Logger,
) *IngestUsecase {
	return &IngestUsecase{
		catalogRepo: catalogRepo,
		taskRepo:    taskRepo,
		cacheRepo:   cacheRepo,
		dbPool:      dbPool,
		logger:      logger,
	}
}

// RegisterProduct идемпотентно создаёт или обновляет товар. Если у товара
// есть изображение, в той же транзакции создаётся задача векторизации: либо
// товар и задача попадают в БД вместе, либо ни то, ни другое.
func (uc *IngestUsecase) RegisterProduct(ctx context.Context, req *RegisterProductReq) (*EmbeddingTask, error) {
	const op = "IngestUsecase.RegisterProduct"

	var err error
	if err = uc.validate(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, uc.dbPool)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	defer func() {
		if err != nil && tx.IsActive() {
			tx.Rollback(ctx)
		}
	}()
	ctx = context.WithValue(ctx, "tx", tx.Transaction())

	product, err := uc.catalogRepo.Upsert(ctx, domain.NewProduct(
		req.ID, req.Title, req.Category, req.Brand, req.Price, req.OriginalPrice, req.ImageURL,
	))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	var task *EmbeddingTask
	if product.ImageURL != "" {
		task, err = uc.taskRepo.Create(ctx, NewEmbeddingTask(uuid.NewString(), product.ID, product.ImageURL))
		if err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, e.Wrap(op, err)
	}

	// Удаление из кэша старых атрибутов товара
	if err := uc.cacheRepo.DeleteProducts(ctx, []string{product.ID}); err != nil {
		uc.logger.Warnf("Failed to invalidate product cache: %v", e.Wrap(op, err))
	}

	return task, nil
}

func (uc *IngestUsecase) validate(req *RegisterProductReq) error {
	if strings.TrimSpace(req.ID) == "" {
		return e.ErrProductIDRequired
	}
	if strings.TrimSpace(req.Title) == "" {
		return e.ErrProductNameRequired
	}
	if req.Price <= 0 {
		return e.ErrPriceMustBePositive
	}
	if req.OriginalPrice > 0 && req.OriginalPrice < req.Price {
		return e.ErrInvalidPrice
	}
	return nil
}
