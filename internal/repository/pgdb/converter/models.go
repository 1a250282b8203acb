package converter

import "time"

// ProductModel представляет запись таблицы products в PostgreSQL.
type ProductModel struct {
	ID            string     `db:"id"`
	Title         string     `db:"title"`
	Category      string     `db:"category"`
	Brand         string     `db:"brand"`
	Price         int64      `db:"price"`
	OriginalPrice int64      `db:"original_price"`
	DiscountRate  float64    `db:"discount_rate"`
	InStock       bool       `db:"in_stock"`
	ImageURL      string     `db:"image_url"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
}

// InteractionModel представляет запись таблицы interactions в PostgreSQL.
type InteractionModel struct {
	ID        int64     `db:"id"`
	SessionID string    `db:"session_id"`
	UserEmail string    `db:"user_email"`
	ProductID string    `db:"product_id"`
	Category  string    `db:"category"`
	Brand     string    `db:"brand"`
	Kind      string    `db:"kind"`
	Weight    float64   `db:"weight"`
	CreatedAt time.Time `db:"created_at"`
}

// SimilarityCacheModel представляет запись таблицы recommendation_cache.
// Соседи хранятся одним JSONB-массивом: запись читается и заменяется целиком.
type SimilarityCacheModel struct {
	ProductID  string    `db:"product_id"`
	Algorithm  string    `db:"algorithm"`
	Neighbors  []byte    `db:"neighbors"`
	WindowDays int       `db:"window_days"`
	BuiltAt    time.Time `db:"built_at"`
}

// EmbeddingTaskModel представляет запись таблицы embedding_tasks в PostgreSQL.
type EmbeddingTaskModel struct {
	ID          int64      `db:"id"`
	TaskID      string     `db:"task_id"`
	ProductID   string     `db:"product_id"`
	ImageURL    string     `db:"image_url"`
	Status      string     `db:"status"`
	Attempts    int        `db:"attempts"`
	LastError   string     `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
}
