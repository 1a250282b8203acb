package domain

import "time"

// Algorithm — источник рекомендаций для кэша.
type Algorithm string

const (
	AlgorithmCF         Algorithm = "cf"
	AlgorithmPopularity Algorithm = "popularity"
	AlgorithmHybrid     Algorithm = "hybrid"
)

// Neighbor — соседний товар с оценкой похожести.
type Neighbor struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
}

// SimilarityCacheEntry — кэшированный список соседей товара.
// Одна актуальная запись на пару (товар, алгоритм); перестройка заменяет запись атомарно.
type SimilarityCacheEntry struct {
	ProductID  string
	Neighbors  []Neighbor // отсортированы по убыванию score
	Algorithm  Algorithm
	BuiltAt    time.Time
	WindowDays int
}

func NewSimilarityCacheEntry(productID string, neighbors []Neighbor, algorithm Algorithm, windowDays int) *SimilarityCacheEntry {
	return &SimilarityCacheEntry{
		ProductID:  productID,
		Neighbors:  neighbors,
		Algorithm:  algorithm,
		BuiltAt:    time.Now().UTC(),
		WindowDays: windowDays,
	}
}
