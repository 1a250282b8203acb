package http

import (
	"encoding/json"
	"net/http"

	"github.com/outletiq/reco-backend/internal/usecase"
	"github.com/outletiq/reco-backend/pkg/e"
	"github.com/outletiq/reco-backend/pkg/logger"
)

type InteractionHandler struct {
	interactionUsecase usecase.InteractionUC
	logger             logger.Logger
}

func NewInteractionHandler(interactionUsecase usecase.InteractionUC, logger logger.Logger) *InteractionHandler {
	return &InteractionHandler{interactionUsecase: interactionUsecase, logger: logger}
}

type recordInteractionRequest struct {
	SessionID string `json:"session_id"`
	UserEmail string `json:"user_email"`
	ProductID string `json:"product_id"`
	Kind      string `json:"kind"`
}

// record
//
//	@Summary		Запись события взаимодействия
//	@Description	Принимает событие view/click/alert/purchase от витрины
//	@Tags			interactions
//	@Accept			json
//	@Produce		json
//	@Param			request	body		recordInteractionRequest	true	"Событие"
//	@Success		202		{object}	map[string]interface{}
//	@Failure		400		{object}	ErrorResponse
//	@Router			/interactions [post]
func (h *InteractionHandler) record(w http.ResponseWriter, r *http.Request) {
	var body recordInteractionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, e.ErrStatusBadRequest)
		return
	}

	req := &usecase.RecordInteractionReq{
		SessionID: body.SessionID,
		UserEmail: body.UserEmail,
		ProductID: body.ProductID,
		Kind:      body.Kind,
	}

	if err := h.interactionUsecase.Record(r.Context(), req); err != nil {
		h.logger.Warnf("%s", err.Error())
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
	})
}
