package converter

import (
	"encoding/json"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/usecase"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter struct{}

func (ProductConverter) ToModel(entity *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            entity.ID,
		Title:         entity.Title,
		Category:      entity.Category,
		Brand:         entity.Brand,
		Price:         entity.Price,
		OriginalPrice: entity.OriginalPrice,
		DiscountRate:  entity.DiscountRate,
		InStock:       entity.InStock,
		ImageURL:      entity.ImageURL,
		CreatedAt:     entity.CreatedAt,
		UpdatedAt:     entity.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(model *ProductModel) *domain.Product {
	return &domain.Product{
		ID:            model.ID,
		Title:         model.Title,
		Category:      model.Category,
		Brand:         model.Brand,
		Price:         model.Price,
		OriginalPrice: model.OriginalPrice,
		DiscountRate:  model.DiscountRate,
		InStock:       model.InStock,
		ImageURL:      model.ImageURL,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func (c ProductConverter) ToInfo(model *ProductModel) usecase.ProductInfo {
	return usecase.NewProductInfo(c.ToEntity(model))
}

// InteractionConverter преобразует сущности Interaction между domain и моделью PostgreSQL.
type InteractionConverter struct{}

func (InteractionConverter) ToModel(entity *domain.Interaction) *InteractionModel {
	return &InteractionModel{
		SessionID: entity.SessionID,
		UserEmail: entity.UserEmail,
		ProductID: entity.ProductID,
		Category:  entity.Category,
		Brand:     entity.Brand,
		Kind:      string(entity.Kind),
		Weight:    entity.Weight,
		CreatedAt: entity.CreatedAt,
	}
}

func (InteractionConverter) ToEntity(model *InteractionModel) *domain.Interaction {
	return &domain.Interaction{
		SessionID: model.SessionID,
		UserEmail: model.UserEmail,
		ProductID: model.ProductID,
		Category:  model.Category,
		Brand:     model.Brand,
		Kind:      domain.InteractionKind(model.Kind),
		Weight:    model.Weight,
		CreatedAt: model.CreatedAt,
	}
}

// SimilarityCacheConverter преобразует записи кэша соседей, включая
// JSONB-сериализацию списка соседей.
type SimilarityCacheConverter struct{}

func (SimilarityCacheConverter) ToModel(entity *domain.SimilarityCacheEntry) (*SimilarityCacheModel, error) {
	neighbors, err := json.Marshal(entity.Neighbors)
	if err != nil {
		return nil, err
	}
	return &SimilarityCacheModel{
		ProductID:  entity.ProductID,
		Algorithm:  string(entity.Algorithm),
		Neighbors:  neighbors,
		WindowDays: entity.WindowDays,
		BuiltAt:    entity.BuiltAt,
	}, nil
}

func (SimilarityCacheConverter) ToEntity(model *SimilarityCacheModel) (*domain.SimilarityCacheEntry, error) {
	var neighbors []domain.Neighbor
	if err := json.Unmarshal(model.Neighbors, &neighbors); err != nil {
		return nil, err
	}
	return &domain.SimilarityCacheEntry{
		ProductID:  model.ProductID,
		Neighbors:  neighbors,
		Algorithm:  domain.Algorithm(model.Algorithm),
		BuiltAt:    model.BuiltAt,
		WindowDays: model.WindowDays,
	}, nil
}

// EmbeddingTaskConverter преобразует задачи векторизации между usecase и моделью PostgreSQL.
type EmbeddingTaskConverter struct{}

func (EmbeddingTaskConverter) ToModel(entity *usecase.EmbeddingTask) *EmbeddingTaskModel {
	return &EmbeddingTaskModel{
		ID:          entity.ID,
		TaskID:      entity.TaskID,
		ProductID:   entity.ProductID,
		ImageURL:    entity.ImageURL,
		Status:      string(entity.Status),
		Attempts:    entity.Attempts,
		LastError:   entity.LastError,
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (EmbeddingTaskConverter) ToEntity(model *EmbeddingTaskModel) *usecase.EmbeddingTask {
	return &usecase.EmbeddingTask{
		ID:          model.ID,
		TaskID:      model.TaskID,
		ProductID:   model.ProductID,
		ImageURL:    model.ImageURL,
		Status:      usecase.TaskStatus(model.Status),
		Attempts:    model.Attempts,
		LastError:   model.LastError,
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c EmbeddingTaskConverter) ToArrEntity(models []*EmbeddingTaskModel) []*usecase.EmbeddingTask {
	result := make([]*usecase.EmbeddingTask, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToEntity(model))
	}
	return result
}
