package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/middleware"
	"github.com/GregMSThompson/receipts-backend/internal/response"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

type PublishService interface {
	Publish(ctx context.Context, tenantID string, req dto.PublishRequest) (dto.PublishResult, error)
}

type publishHandlers struct {
	ResponseHandler response.ResponseHandler
	PublishSvc      PublishService
	ReceiptSvc      ReceiptService
}

func NewPublishHandlers(deps *Deps) *publishHandlers {
	return &publishHandlers{
		ResponseHandler: deps.ResponseHandler,
		PublishSvc:      deps.PublishSvc,
		ReceiptSvc:      deps.ReceiptSvc,
	}
}

func (h *publishHandlers) PublishRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Publish)
	return r
}

func (h *publishHandlers) Publish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		dto.PublishRequest
		ReceiptID string `json:"receiptId,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tenant := middleware.Tenant(r.Context())
	result, err := h.PublishSvc.Publish(r.Context(), tenant, body.PublishRequest)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	if body.ReceiptID != "" {
		if err := h.ReceiptSvc.MarkPublished(r.Context(), tenant, body.ReceiptID); err != nil {
			// The ledger write already happened; a bookkeeping miss on our
			// side must not turn the publish into an error.
			logger.FromContext(r.Context()).Warn("receipt status update failed",
				"receipt_id", body.ReceiptID, "error", err)
		}
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, result)
}
