package domain

import "time"

// Embedding представляет вектор изображения одного товара.
// Один товар — один вектор; повторная векторизация перезаписывает запись целиком.
type Embedding struct {
	ProductID    string
	Vector       []float32
	ModelVersion string
	ImageURL     string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

func NewEmbedding(productID string, vector []float32, modelVersion, imageURL string) *Embedding {
	return &Embedding{
		ProductID:    productID,
		Vector:       vector,
		ModelVersion: modelVersion,
		ImageURL:     imageURL,
		CreatedAt:    time.Now().UTC(),
	}
}
