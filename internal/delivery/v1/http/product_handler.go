package http

import (
	"encoding/json"
	"net/http"

	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

type ProductHandler struct {
	ingestUsecase usecase.IngestUC
	logger        logger.Logger
}

func NewProductHandler(ingestUsecase usecase.IngestUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{ingestUsecase: ingestUsecase, logger: logger}
}

type registerProductRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Category      string `json:"category"`
	Brand         string `json:"brand"`
	Price         string `json:"price"`
	OriginalPrice string `json:"original_price"`
	ImageURL      string `json:"image_url"`
}

// registerProduct
//
//	@Summary		Регистрация товара из фида
//	@Description	Идемпотентно создаёт или обновляет товар; при наличии изображения ставит задачу векторизации
//	@Tags			products
//	@Accept			json
//	@Produce		json
//	@Param			request	body		registerProductRequest	true	"Товар"
//	@Success		201		{object}	map[string]interface{}	"Создана задача векторизации"
//	@Success		200		{object}	map[string]interface{}	"Товар обновлён без задачи"
//	@Failure		400		{object}	ErrorResponse
//	@Router			/products [post]
func (p *ProductHandler) registerProduct(w http.ResponseWriter, r *http.Request) {
	var body registerProductRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	price, err := parsePriceToCents(body.Price)
	if err != nil {
		p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	var originalPrice int64
	if body.OriginalPrice != "" {
		originalPrice, err = parsePriceToCents(body.OriginalPrice)
		if err != nil {
			p.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
			WriteError(w, err)
			return
		}
	}

	task, err := p.ingestUsecase.RegisterProduct(r.Context(), &usecase.RegisterProductReq{
		ID:            body.ID,
		Title:         body.Title,
		Category:      body.Category,
		Brand:         body.Brand,
		Price:         price,
		OriginalPrice: originalPrice,
		ImageURL:      body.ImageURL,
	})
	if err != nil {
		p.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	if task != nil {
		WriteSuccess(w, http.StatusCreated, map[string]interface{}{
			"task_id": task.TaskID,
		})
	} else {
		WriteSuccess(w, http.StatusOK, map[string]interface{}{
			"updated": true,
		})
	}
}
