package usecase

import (
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
)

// RECOMMEND USECASE

// Reason — помеченный источник рекомендации.
type Reason string

const (
	ReasonCF              Reason = "cf"
	ReasonPopular         Reason = "popular"
	ReasonPopularDiscount Reason = "popular_discount"
	ReasonTrending        Reason = "trending"
	ReasonHybrid          Reason = "hybrid"
	ReasonPersonalized    Reason = "personalized"
	ReasonVisual          Reason = "visual"
)

// ProductInfo — DTO с атрибутами товара каталога для внешнего использования.
type ProductInfo struct {
	ID            string
	Title         string
	Category      string
	Brand         string
	Price         int64
	OriginalPrice int64
	DiscountRate  float64
	InStock       bool
	ImageURL      string
}

// ScoredProduct — один кандидат рекомендации с типизированными вкладами источников.
// Итоговый Score — явная взвешенная сумма по закрытому набору источников,
// без скрытой нормализации.
type ScoredProduct struct {
	Product      ProductInfo
	Score        float64
	CFScore      float64
	PopularScore float64
	Reason       Reason
}

// RecommendReq — запрос рекомендаций по товару.
type RecommendReq struct {
	ProductID string
	Limit     int
	Category  string
	Brand     string
	Algorithm domain.Algorithm // cf | popularity | hybrid (по умолчанию hybrid)
}

// PersonalizedReq — запрос персональных рекомендаций по истории сессии.
type PersonalizedReq struct {
	SessionID  string
	Limit      int
	Category   string
	WindowDays int
	MaxHistory int
	ExcludeIDs []string
}

// PopularReq — запрос популярных товаров.
type PopularReq struct {
	Category   string
	Brand      string
	Limit      int
	WindowDays int
	ExcludeIDs []string
}

// TrendingReq — запрос быстрорастущих товаров за короткое окно.
type TrendingReq struct {
	Category    string
	Limit       int
	WindowHours int
}

// SimilarImagesReq — запрос визуально похожих товаров.
type SimilarImagesReq struct {
	ProductID     string
	Limit         int
	MinSimilarity float64
}

// IndexStatsRes — статистика векторного индекса.
type IndexStatsRes struct {
	VectorCount int
	Dimension   int
	BuiltAt     time.Time
}

// INTERACTION USECASE

// RecordInteractionReq — событие взаимодействия от API-слоя.
type RecordInteractionReq struct {
	SessionID string
	UserEmail string
	ProductID string
	Kind      string
}

// INGEST USECASE

// RegisterProductReq — запрос на регистрацию товара из краулера/фида.
type RegisterProductReq struct {
	ID            string
	Title         string
	Category      string
	Brand         string
	Price         int64
	OriginalPrice int64
	ImageURL      string
}

// BUILDERS

// BuildStats — статистика батч-построения CF-кэша.
type BuildStats struct {
	TotalInteractions int
	TotalUsers        int
	TotalProducts     int
	CachedProducts    int
	AvgNeighbors      float64
	WindowDays        int
	CompletedAt       time.Time
}

// IndexBuildStats — статистика перестройки векторного индекса.
type IndexBuildStats struct {
	TotalEmbeddings int
	Indexed         int
	SkippedInvalid  int
	CompletedAt     time.Time
}

// EMBEDDING TASKS

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskProcessed  TaskStatus = "processed"
	TaskFailed     TaskStatus = "failed"
)

// EmbeddingTask — задача векторизации изображения товара.
// Идемпотентна: повторная обработка просто перезаписывает эмбеддинг.
type EmbeddingTask struct {
	ID          int64
	TaskID      string
	ProductID   string
	ImageURL    string
	Status      TaskStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// EmbedBatchStats — итог обработки одного батча задач векторизации.
type EmbedBatchStats struct {
	Processed int
	Failed    int
}

// VectorizeRes — результат векторизации одного изображения.
type VectorizeRes struct {
	Vector       []float32
	ModelVersion string
}

// WeightedScore — пара (товар, суммарный вес) из лога взаимодействий.
type WeightedScore struct {
	ProductID string
	Score     float64
}

// InteractionMatrix — разреженная матрица сессия→товар→суммарный вес.
type InteractionMatrix struct {
	Weights map[string]map[string]float64
	Events  int
}

// MAPPERS

func NewVectorizeRes(vector []float32, modelVersion string) *VectorizeRes {
	return &VectorizeRes{
		Vector:       vector,
		ModelVersion: modelVersion,
	}
}

func NewEmbeddingTask(taskID, productID, imageURL string) *EmbeddingTask {
	return &EmbeddingTask{
		TaskID:    taskID,
		ProductID: productID,
		ImageURL:  imageURL,
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
}

func NewProductInfo(p *domain.Product) ProductInfo {
	return ProductInfo{
		ID:            p.ID,
		Title:         p.Title,
		Category:      p.Category,
		Brand:         p.Brand,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		DiscountRate:  p.DiscountRate,
		InStock:       p.InStock,
		ImageURL:      p.ImageURL,
	}
}
