package http

import (
	"net/http"

	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/logger"
)

type AdminHandler struct {
	builderUsecase usecase.BuilderUC
	logger         logger.Logger
}

func NewAdminHandler(builderUsecase usecase.BuilderUC, logger logger.Logger) *AdminHandler {
	return &AdminHandler{builderUsecase: builderUsecase, logger: logger}
}

// rebuildSimilarityCache
//
//	@Summary		Перестройка CF-кэша
//	@Description	Пересчитывает item-item соседей по логу взаимодействий
//	@Tags			admin
//	@Produce		json
//	@Param			days				query		int	false	"Окно в днях (по умолчанию 30)"
//	@Param			min_interactions	query		int	false	"Минимум различных сессий на товар (по умолчанию 2)"
//	@Success		200					{object}	map[string]interface{}
//	@Failure		409					{object}	ErrorResponse	"Недостаточно данных"
//	@Router			/admin/rebuild/similarity [post]
func (h *AdminHandler) rebuildSimilarityCache(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days")
	if err != nil {
		WriteError(w, err)
		return
	}
	minInteractions, err := queryInt(r, "min_interactions")
	if err != nil {
		WriteError(w, err)
		return
	}

	stats, err := h.builderUsecase.BuildSimilarityCache(r.Context(), days, minInteractions)
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"total_interactions": stats.TotalInteractions,
		"total_users":        stats.TotalUsers,
		"total_products":     stats.TotalProducts,
		"cached_products":    stats.CachedProducts,
		"avg_neighbors":      stats.AvgNeighbors,
		"window_days":        stats.WindowDays,
		"completed_at":       stats.CompletedAt,
	})
}

// rebuildIndex
//
//	@Summary		Перестройка векторного индекса
//	@Description	Восстанавливает индекс из хранилища эмбеддингов и сохраняет снапшот
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	map[string]interface{}
//	@Router			/admin/rebuild/index [post]
func (h *AdminHandler) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	stats, err := h.builderUsecase.RebuildIndex(r.Context())
	if err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, map[string]interface{}{
		"total_embeddings": stats.TotalEmbeddings,
		"indexed":          stats.Indexed,
		"skipped_invalid":  stats.SkippedInvalid,
		"completed_at":     stats.CompletedAt,
	})
}
