package usecase

import (
	"context"
	"time"

	"github.com/outletiq/reco-backend/internal/domain"
)

// InteractionRepository — append-only лог взаимодействий и агрегаты над ним.
type InteractionRepository interface {
	Append(ctx context.Context, inter *domain.Interaction) error
	// SessionProductWeights возвращает разреженную матрицу сессия→товар→вес
	// по событиям начиная с since.
	SessionProductWeights(ctx context.Context, since time.Time) (*InteractionMatrix, error)
	// ProductWeights возвращает суммарные веса по товарам за окно,
	// отсортированные по убыванию.
	ProductWeights(ctx context.Context, since time.Time, category, brand string) ([]WeightedScore, error)
	// ProductEventCounts возвращает сырое число событий по товарам за окно
	// (без весов), отсортированное по убыванию.
	ProductEventCounts(ctx context.Context, since time.Time, category string, limit int) ([]WeightedScore, error)
	RecentBySession(ctx context.Context, sessionID string, since time.Time, limit int) ([]domain.Interaction, error)
}

// SimilarityCacheRepository — кэш соседей: одна актуальная запись на (товар, алгоритм).
type SimilarityCacheRepository interface {
	// UpsertEntry атомарно заменяет запись целиком.
	UpsertEntry(ctx context.Context, entry *domain.SimilarityCacheEntry) error
	// GetEntry возвращает (nil, nil), если записи нет: отсутствие CF-кэша —
	// штатная ситуация, не ошибка.
	GetEntry(ctx context.Context, productID string, algorithm domain.Algorithm) (*domain.SimilarityCacheEntry, error)
}

// CatalogRepository — каталог товаров.
type CatalogRepository interface {
	Upsert(ctx context.Context, product *domain.Product) (*domain.Product, error)
	// GetProducts возвращает найденные товары; отсутствующие ID просто
	// пропускаются (мягкая ссылка из кэша рекомендаций).
	GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error)
	// ListByDiscount — каталожный fallback: товары в наличии по убыванию
	// скидки, затем по новизне.
	ListByDiscount(ctx context.Context, category, brand string, limit int, excludeIDs []string) ([]ProductInfo, error)
}

// EmbeddingStore — долговременное хранилище product_id -> vector.
type EmbeddingStore interface {
	Upsert(ctx context.Context, emb *domain.Embedding) error
	// Get возвращает (nil, nil), если эмбеддинга для товара нет.
	Get(ctx context.Context, productID string) (*domain.Embedding, error)
	// FetchAll отдаёт все эмбеддинги для полной перестройки индекса.
	FetchAll(ctx context.Context) ([]domain.Embedding, error)
	Delete(ctx context.Context, productID string) error
}

// EmbeddingTaskRepository — очередь задач векторизации (outbox-паттерн).
type EmbeddingTaskRepository interface {
	Create(ctx context.Context, task *EmbeddingTask) (*EmbeddingTask, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*EmbeddingTask, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64, reason string) error
}

// ProductCacheRepository — кэш атрибутов товаров (Redis).
type ProductCacheRepository interface {
	GetProducts(ctx context.Context, ids []string) (map[string]ProductInfo, error)
	SetProducts(ctx context.Context, products []ProductInfo) error
	DeleteProducts(ctx context.Context, ids []string) error
}
