package converter

type ProductInfoRedisModel struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Category      string  `json:"category"`
	Brand         string  `json:"brand"`
	Price         int64   `json:"price"`
	OriginalPrice int64   `json:"original_price"`
	DiscountRate  float64 `json:"discount_rate"`
	InStock       bool    `json:"in_stock"`
	ImageURL      string  `json:"image_url"`
}
