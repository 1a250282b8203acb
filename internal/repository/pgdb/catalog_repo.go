package pgdb

import (
	"context"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/repository/pgdb/converter"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// CatalogRepo реализует репозиторий каталога товаров поверх PostgreSQL.
type CatalogRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewCatalogRepo(pool *pgxpool.Pool, conv converter.ProductConverter) *CatalogRepo {
	return &CatalogRepo{
		pool: pool,
		conv: conv,
	}
}

// Upsert идемпотентно создаёт или обновляет товар по внешнему ID.
// Запись обновляется только при фактическом изменении атрибутов.
func (c *CatalogRepo) Upsert(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO products (id, title, category, brand, price, original_price, discount_rate, in_stock, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand,
			price = EXCLUDED.price,
			original_price = EXCLUDED.original_price,
			discount_rate = EXCLUDED.discount_rate,
			in_stock = EXCLUDED.in_stock,
			image_url = EXCLUDED.image_url,
			updated_at = NOW()
		WHERE
			products.title IS DISTINCT FROM EXCLUDED.title OR
			products.category IS DISTINCT FROM EXCLUDED.category OR
			products.brand IS DISTINCT FROM EXCLUDED.brand OR
			products.price IS DISTINCT FROM EXCLUDED.price OR
			products.original_price IS DISTINCT FROM EXCLUDED.original_price OR
			products.in_stock IS DISTINCT FROM EXCLUDED.in_stock OR
			products.image_url IS DISTINCT FROM EXCLUDED.image_url
		RETURNING id, title, category, brand, price, original_price, discount_rate, in_stock, image_url, created_at, updated_at;
	`

	var model converter.ProductModel
	err = tx.QueryRow(ctx, query,
		product.ID, product.Title, product.Category, product.Brand,
		product.Price, product.OriginalPrice, product.DiscountRate,
		product.InStock, product.ImageURL,
	).Scan(
		&model.ID, &model.Title, &model.Category, &model.Brand,
		&model.Price, &model.OriginalPrice, &model.DiscountRate,
		&model.InStock, &model.ImageURL, &model.CreatedAt, &model.UpdatedAt,
	)
	if err == nil {
		return c.conv.ToEntity(&model), nil
	}
	if !noRowsReturned(err) {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// Конфликт без изменений: RETURNING пуст, читаем текущую запись
	query = `
		SELECT id, title, category, brand, price, original_price, discount_rate, in_stock, image_url, created_at, updated_at
		FROM products
		WHERE id = $1;
	`
	err = tx.QueryRow(ctx, query, product.ID).Scan(
		&model.ID, &model.Title, &model.Category, &model.Brand,
		&model.Price, &model.OriginalPrice, &model.DiscountRate,
		&model.InStock, &model.ImageURL, &model.CreatedAt, &model.UpdatedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return c.conv.ToEntity(&model), nil
}

// GetProducts возвращает найденные товары по ID; отсутствующие пропускаются.
func (c *CatalogRepo) GetProducts(ctx context.Context, ids []string) (map[string]usecase.ProductInfo, error) {
	query := `
		SELECT id, title, category, brand, price, original_price, discount_rate, in_stock, image_url, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`

	rows, err := c.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make(map[string]usecase.ProductInfo, len(ids))
	for rows.Next() {
		var model converter.ProductModel
		if err := rows.Scan(
			&model.ID, &model.Title, &model.Category, &model.Brand,
			&model.Price, &model.OriginalPrice, &model.DiscountRate,
			&model.InStock, &model.ImageURL, &model.CreatedAt, &model.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result[model.ID] = c.conv.ToInfo(&model)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// ListByDiscount возвращает товары в наличии по убыванию скидки, затем по
// новизне. Используется как fallback, когда лог взаимодействий пуст.
func (c *CatalogRepo) ListByDiscount(ctx context.Context, category, brand string, limit int, excludeIDs []string) ([]usecase.ProductInfo, error) {
	query := `
		SELECT id, title, category, brand, price, original_price, discount_rate, in_stock, image_url, created_at, updated_at
		FROM products
		WHERE in_stock
		  AND ($1 = '' OR category = $1)
		  AND ($2 = '' OR brand = $2)
		  AND NOT (id = ANY($3))
		ORDER BY discount_rate DESC, created_at DESC
		LIMIT $4
	`

	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	rows, err := c.pool.Query(ctx, query, category, brand, excludeIDs, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]usecase.ProductInfo, 0, limit)
	for rows.Next() {
		var model converter.ProductModel
		if err := rows.Scan(
			&model.ID, &model.Title, &model.Category, &model.Brand,
			&model.Price, &model.OriginalPrice, &model.DiscountRate,
			&model.InStock, &model.ImageURL, &model.CreatedAt, &model.UpdatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		result = append(result, c.conv.ToInfo(&model))
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
