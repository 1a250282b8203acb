package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

// InteractionUsecase принимает события взаимодействий: валидация, обогащение
// атрибутами каталога, запись в лог и best-effort публикация в шину.
type InteractionUsecase struct {
	interactionRepo InteractionRepository
	catalogRepo     CatalogRepository
	producer        EventProducer
	logger          logger.Logger
}

func NewInteractionUsecase(
	interactionRepo InteractionRepository,
	catalogRepo CatalogRepository,
	producer EventProducer,
	logger logger.Logger,
) *InteractionUsecase {
	return &InteractionUsecase{
		interactionRepo: interactionRepo,
		catalogRepo:     catalogRepo,
		producer:        producer,
		logger:          logger,
	}
}

// Record валидирует и записывает событие. Категория и бренд снимаются с
// каталога на момент события: лог хранит исторические значения, даже если
// товар потом переехал в другую категорию.
//
// После валидации приём fire-and-forget: сбой записи в лог или обогащения
// логируется, но клиенту не возвращается.
func (uc *InteractionUsecase) Record(ctx context.Context, req *RecordInteractionReq) error {
	const op = "InteractionUsecase.Record"

	if strings.TrimSpace(req.SessionID) == "" {
		return e.Wrap(op, e.ErrSessionIDRequired)
	}
	if strings.TrimSpace(req.ProductID) == "" {
		return e.Wrap(op, e.ErrProductIDRequired)
	}
	kind := domain.InteractionKind(req.Kind)
	if !kind.Valid() {
		return e.Wrap(op, e.ErrInvalidKind)
	}

	var category, brand string
	products, err := uc.catalogRepo.GetProducts(ctx, []string{req.ProductID})
	if err != nil {
		uc.logger.Warnf("Failed to resolve catalog attributes for interaction: %v", e.Wrap(op, err))
	} else if info, ok := products[req.ProductID]; ok {
		category = info.Category
		brand = info.Brand
	}

	inter := domain.NewInteraction(req.SessionID, req.ProductID, category, brand, kind)
	inter.UserEmail = strings.TrimSpace(req.UserEmail)

	if err := uc.interactionRepo.Append(ctx, inter); err != nil {
		uc.logger.Warnf("Failed to append interaction to log: %v", e.Wrap(op, err))
		return nil
	}

	// Публикация в шину не влияет на ответ клиенту
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := uc.producer.PublishInteraction(bgCtx, inter); err != nil {
			uc.logger.Warnf("Failed to publish interaction event: %v", e.Wrap(op, err))
		}
	}()

	return nil
}
