package domain

import "time"

// Product описывает товар каталога аутлет-агрегатора
type Product struct {
	ID            string
	Title         string
	Category      string
	Brand         string
	Price         int64 // цена хранится в центах
	OriginalPrice int64
	DiscountRate  float64
	InStock       bool
	ImageURL      string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

func NewProduct(id, title, category, brand string, price, originalPrice int64, imageURL string) *Product {
	p := &Product{
		ID:            id,
		Title:         title,
		Category:      category,
		Brand:         brand,
		Price:         price,
		OriginalPrice: originalPrice,
		InStock:       true,
		ImageURL:      imageURL,
	}
	if originalPrice > 0 && price <= originalPrice {
		p.DiscountRate = float64(originalPrice-price) / float64(originalPrice)
	}
	return p
}
