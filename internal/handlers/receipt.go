package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/middleware"
	"github.com/GregMSThompson/receipts-backend/internal/response"
)

type ReceiptService interface {
	Extract(ctx context.Context, tenantID string, imageBytes []byte, contentType, imageURL string) (dto.ReceiptDraftResult, error)
	MarkPublished(ctx context.Context, tenantID, receiptID string) error
}

const maxUploadSize = 10 << 20

type receiptHandlers struct {
	ResponseHandler response.ResponseHandler
	ReceiptSvc      ReceiptService
}

func NewReceiptHandlers(deps *Deps) *receiptHandlers {
	return &receiptHandlers{
		ResponseHandler: deps.ResponseHandler,
		ReceiptSvc:      deps.ReceiptSvc,
	}
}

func (h *receiptHandlers) ReceiptRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/extract", h.Extract)
	return r
}

// Extract takes the raw image in the request body; the UI uploads the
// original to storage separately and passes its URL for later attachment.
func (h *receiptHandlers) Extract(w http.ResponseWriter, r *http.Request) {
	imageBytes, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	imageURL := r.URL.Query().Get("imageUrl")

	tenant := middleware.Tenant(r.Context())
	draft, err := h.ReceiptSvc.Extract(r.Context(), tenant, imageBytes, contentType, imageURL)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, draft)
}
