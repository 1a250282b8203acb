package converter

import "github.com/outletiq/reco-backend/internal/usecase"

// ProductInfoConverter преобразует атрибуты товара между usecase и Redis-моделью.
type ProductInfoConverter struct{}

func (ProductInfoConverter) ToRedisModel(entity *usecase.ProductInfo) *ProductInfoRedisModel {
	return &ProductInfoRedisModel{
		ID:            entity.ID,
		Title:         entity.Title,
		Category:      entity.Category,
		Brand:         entity.Brand,
		Price:         entity.Price,
		OriginalPrice: entity.OriginalPrice,
		DiscountRate:  entity.DiscountRate,
		InStock:       entity.InStock,
		ImageURL:      entity.ImageURL,
	}
}

func (ProductInfoConverter) ToUseCase(model *ProductInfoRedisModel) *usecase.ProductInfo {
	return &usecase.ProductInfo{
		ID:            model.ID,
		Title:         model.Title,
		Category:      model.Category,
		Brand:         model.Brand,
		Price:         model.Price,
		OriginalPrice: model.OriginalPrice,
		DiscountRate:  model.DiscountRate,
		InStock:       model.InStock,
		ImageURL:      model.ImageURL,
	}
}

func (c ProductInfoConverter) ToArrRedisModel(entities []usecase.ProductInfo) []ProductInfoRedisModel {
	result := make([]ProductInfoRedisModel, 0, len(entities))
	for i := range entities {
		result = append(result, *c.ToRedisModel(&entities[i]))
	}
	return result
}
