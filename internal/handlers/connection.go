package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/middleware"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/internal/response"
)

type ConnectionService interface {
	Connect(ctx context.Context, tenantID, authCode, realmID string) (*models.Connection, error)
	Health(ctx context.Context, tenantID string) (dto.ConnectionStatus, error)
	Disconnect(ctx context.Context, tenantID string) error
	RunBackgroundRefreshSweep(ctx context.Context) (dto.SweepResult, error)
}

type connectionHandlers struct {
	ResponseHandler response.ResponseHandler
	ConnectionSvc   ConnectionService
}

func NewConnectionHandlers(deps *Deps) *connectionHandlers {
	return &connectionHandlers{
		ResponseHandler: deps.ResponseHandler,
		ConnectionSvc:   deps.ConnectionSvc,
	}
}

func (h *connectionHandlers) ConnectionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Connect)
	r.Get("/status", h.Status)
	r.Delete("/", h.Disconnect)
	return r
}

// Connect completes the OAuth flow: the UI finishes the partner redirect
// and posts the code + realm here.
func (h *connectionHandlers) Connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code    string `json:"code"`
		RealmID string `json:"realmId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tenant := middleware.Tenant(r.Context())
	conn, err := h.ConnectionSvc.Connect(r.Context(), tenant, body.Code, body.RealmID)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, map[string]string{"realmId": conn.RealmID})
}

// Status is deliberately read-only: checking it can never trigger a
// refresh that could kill the connection.
func (h *connectionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())

	status, err := h.ConnectionSvc.Health(r.Context(), tenant)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, status)
}

func (h *connectionHandlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())

	if err := h.ConnectionSvc.Disconnect(r.Context(), tenant); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
