package usecase

import (
	"context"

	"github.com/outletiq/reco-backend/internal/domain"
)

// VectorizerInfra — внешний экстрактор признаков изображений.
// Ненадёжная зависимость: ошибки не должны ронять батч-задачи.
type VectorizerInfra interface {
	Vectorize(ctx context.Context, imageURL string) (*VectorizeRes, error)
}

// EventProducer — best-effort публикация событий взаимодействий в шину.
type EventProducer interface {
	PublishInteraction(ctx context.Context, inter *domain.Interaction) error
}
