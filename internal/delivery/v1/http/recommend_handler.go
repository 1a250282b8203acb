package http

import (
	"net/http"
	"strings"

	"github.com/outletiq/reco-backend/internal/domain"
	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

type RecommendHandler struct {
	recommendUsecase usecase.RecommendUC
	logger           logger.Logger
}

func NewRecommendHandler(recommendUsecase usecase.RecommendUC, logger logger.Logger) *RecommendHandler {
	return &RecommendHandler{recommendUsecase: recommendUsecase, logger: logger}
}

// byProduct
//
//	@Summary		Рекомендации по товару
//	@Description	Возвращает похожие товары по CF, популярности или гибридной схеме
//	@Tags			recommendations
//	@Produce		json
//	@Param			product_id	path		string	true	"ID товара"
//	@Param			limit		query		int		false	"Размер выдачи (по умолчанию 10)"
//	@Param			algorithm	query		string	false	"cf | popularity | hybrid"
//	@Param			category	query		string	false	"Фильтр по категории"
//	@Param			brand		query		string	false	"Фильтр по бренду"
//	@Success		200			{object}	RecommendationsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/recommendations/products/{product_id} [get]
func (h *RecommendHandler) byProduct(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	req := &usecase.RecommendReq{
		ProductID: chi.URLParam(r, "product_id"),
		Limit:     limit,
		Category:  r.URL.Query().Get("category"),
		Brand:     r.URL.Query().Get("brand"),
		Algorithm: domain.Algorithm(r.URL.Query().Get("algorithm")),
	}

	results, err := h.recommendUsecase.RecommendByProduct(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationsResponse(results))
}

// personalized
//
//	@Summary		Персональные рекомендации
//	@Description	Рекомендации по недавней истории сессии; без истории — популярные товары
//	@Tags			recommendations
//	@Produce		json
//	@Param			session_id	path		string	true	"ID сессии"
//	@Param			limit		query		int		false	"Размер выдачи"
//	@Param			category	query		string	false	"Фильтр по категории"
//	@Param			exclude		query		string	false	"ID товаров через запятую, исключаемые из выдачи"
//	@Success		200			{object}	RecommendationsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/recommendations/sessions/{session_id} [get]
func (h *RecommendHandler) personalized(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}

	var excludeIDs []string
	if raw := r.URL.Query().Get("exclude"); raw != "" {
		excludeIDs = strings.Split(raw, ",")
	}

	req := &usecase.PersonalizedReq{
		SessionID:  chi.URLParam(r, "session_id"),
		Limit:      limit,
		Category:   r.URL.Query().Get("category"),
		ExcludeIDs: excludeIDs,
	}

	results, err := h.recommendUsecase.RecommendPersonalized(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationsResponse(results))
}

// popular
//
//	@Summary		Популярные товары
//	@Description	Товары с наибольшим суммарным весом взаимодействий за окно
//	@Tags			recommendations
//	@Produce		json
//	@Param			limit		query		int		false	"Размер выдачи"
//	@Param			category	query		string	false	"Фильтр по категории"
//	@Param			brand		query		string	false	"Фильтр по бренду"
//	@Param			window_days	query		int		false	"Окно в днях (по умолчанию 7)"
//	@Success		200			{object}	RecommendationsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Router			/recommendations/popular [get]
func (h *RecommendHandler) popular(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	windowDays, err := queryInt(r, "window_days")
	if err != nil {
		WriteError(w, err)
		return
	}

	req := &usecase.PopularReq{
		Category:   r.URL.Query().Get("category"),
		Brand:      r.URL.Query().Get("brand"),
		Limit:      limit,
		WindowDays: windowDays,
	}

	results, err := h.recommendUsecase.Popular(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationsResponse(results))
}

// trending
//
//	@Summary		Быстрорастущие товары
//	@Description	Товары с наибольшим числом событий за короткое окно
//	@Tags			recommendations
//	@Produce		json
//	@Param			limit			query		int		false	"Размер выдачи"
//	@Param			category		query		string	false	"Фильтр по категории"
//	@Param			window_hours	query		int		false	"Окно в часах (по умолчанию 24)"
//	@Success		200				{object}	RecommendationsResponse
//	@Failure		400				{object}	ErrorResponse
//	@Router			/recommendations/trending [get]
func (h *RecommendHandler) trending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	windowHours, err := queryInt(r, "window_hours")
	if err != nil {
		WriteError(w, err)
		return
	}

	req := &usecase.TrendingReq{
		Category:    r.URL.Query().Get("category"),
		Limit:       limit,
		WindowHours: windowHours,
	}

	results, err := h.recommendUsecase.Trending(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationsResponse(results))
}

// similarImages
//
//	@Summary		Визуально похожие товары
//	@Description	Поиск по эмбеддингу изображения товара в точном векторном индексе
//	@Tags			recommendations
//	@Produce		json
//	@Param			product_id		path		string	true	"ID товара"
//	@Param			limit			query		int		false	"Размер выдачи"
//	@Param			min_similarity	query		number	false	"Порог похожести [0, 1)"
//	@Success		200				{object}	RecommendationsResponse
//	@Failure		400				{object}	ErrorResponse
//	@Failure		404				{object}	ErrorResponse	"Нет товара или эмбеддинга"
//	@Router			/recommendations/products/{product_id}/similar-images [get]
func (h *RecommendHandler) similarImages(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		WriteError(w, err)
		return
	}
	minSimilarity, err := queryFloat(r, "min_similarity")
	if err != nil {
		WriteError(w, err)
		return
	}

	req := &usecase.SimilarImagesReq{
		ProductID:     chi.URLParam(r, "product_id"),
		Limit:         limit,
		MinSimilarity: minSimilarity,
	}

	results, err := h.recommendUsecase.SimilarByImage(r.Context(), req)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, toRecommendationsResponse(results))
}

// indexStats
//
//	@Summary		Статистика векторного индекса
//	@Tags			recommendations
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/recommendations/index/stats [get]
func (h *RecommendHandler) indexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recommendUsecase.IndexStats(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"vector_count": stats.VectorCount,
		"dimension":    stats.Dimension,
		"built_at":     stats.BuiltAt,
	})
}
