package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrProductIDRequired):
		return http.StatusBadRequest, e.ErrProductIDRequired.Error()
	case errors.Is(err, e.ErrSessionIDRequired):
		return http.StatusBadRequest, e.ErrSessionIDRequired.Error()
	case errors.Is(err, e.ErrProductNameRequired):
		return http.StatusBadRequest, e.ErrProductNameRequired.Error()
	case errors.Is(err, e.ErrPriceMustBePositive):
		return http.StatusBadRequest, e.ErrPriceMustBePositive.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrPricePrecision):
		return http.StatusBadRequest, e.ErrPricePrecision.Error()
	case errors.Is(err, e.ErrInvalidKind):
		return http.StatusBadRequest, e.ErrInvalidKind.Error()
	case errors.Is(err, e.ErrInvalidLimit):
		return http.StatusBadRequest, e.ErrInvalidLimit.Error()
	case errors.Is(err, e.ErrInvalidSimilarity):
		return http.StatusBadRequest, e.ErrInvalidSimilarity.Error()
	case errors.Is(err, e.ErrInvalidAlgorithm):
		return http.StatusBadRequest, e.ErrInvalidAlgorithm.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrNoEmbedding):
		return http.StatusNotFound, e.ErrNoEmbedding.Error()
	case errors.Is(err, e.ErrIndexEmpty):
		return http.StatusServiceUnavailable, e.ErrIndexEmpty.Error()
	case errors.Is(err, e.ErrInsufficientData):
		return http.StatusConflict, e.ErrInsufficientData.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parsePriceToCents конвертирует строку вида "599.99" или "600" в центы.
func parsePriceToCents(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, e.ErrInvalidPrice
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, e.ErrInvalidPrice
	}

	if d.LessThan(decimal.Zero) {
		return 0, e.ErrInvalidPrice
	}

	maxPrice := decimal.NewFromInt(1_000_000_000).Mul(decimal.NewFromInt(100))
	if d.GreaterThan(maxPrice) {
		return 0, e.ErrInvalidPrice
	}

	if d.Exponent() < -2 {
		return 0, e.ErrPricePrecision
	}

	cents := d.Mul(decimal.NewFromInt(100)).Round(0)
	return cents.IntPart(), nil
}

// queryInt читает целочисленный query-параметр, 0 при отсутствии.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, e.Wrap(name, e.ErrStatusBadRequest)
	}
	return v, nil
}

// queryFloat читает дробный query-параметр, 0 при отсутствии.
func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, e.Wrap(name, e.ErrStatusBadRequest)
	}
	return v, nil
}

// RecommendationItem — один элемент выдачи рекомендаций в API-ответе.
type RecommendationItem struct {
	ProductID    string  `json:"product_id"`
	Title        string  `json:"title"`
	Category     string  `json:"category,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	Price        int64   `json:"price"`
	DiscountRate float64 `json:"discount_rate"`
	ImageURL     string  `json:"image_url,omitempty"`
	Score        float64 `json:"score"`
	Reason       string  `json:"reason"`
}

type RecommendationsResponse struct {
	Items []RecommendationItem `json:"items"`
	Count int                  `json:"count"`
}

func toRecommendationsResponse(scored []usecase.ScoredProduct) *RecommendationsResponse {
	items := make([]RecommendationItem, 0, len(scored))
	for _, sp := range scored {
		items = append(items, RecommendationItem{
			ProductID:    sp.Product.ID,
			Title:        sp.Product.Title,
			Category:     sp.Product.Category,
			Brand:        sp.Product.Brand,
			Price:        sp.Product.Price,
			DiscountRate: sp.Product.DiscountRate,
			ImageURL:     sp.Product.ImageURL,
			Score:        sp.Score,
			Reason:       string(sp.Reason),
		})
	}
	return &RecommendationsResponse{Items: items, Count: len(items)}
}
