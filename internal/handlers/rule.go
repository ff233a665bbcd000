package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/receipts-backend/internal/middleware"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/internal/response"
)

type RuleService interface {
	CreateRule(ctx context.Context, tenantID string, rule *models.CategoryRule) (*models.CategoryRule, error)
	Deactivate(ctx context.Context, tenantID, ruleID string) error
	ListRules(ctx context.Context, tenantID string) ([]*models.CategoryRule, error)
	Match(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error)
}

type ruleHandlers struct {
	ResponseHandler response.ResponseHandler
	RuleSvc         RuleService
}

func NewRuleHandlers(deps *Deps) *ruleHandlers {
	return &ruleHandlers{
		ResponseHandler: deps.ResponseHandler,
		RuleSvc:         deps.RuleSvc,
	}
}

func (h *ruleHandlers) RuleRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateRule)
	r.Get("/", h.ListRules)
	r.Get("/match", h.Match)
	r.Delete("/{ruleId}", h.Deactivate)
	return r
}

func (h *ruleHandlers) CreateRule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VendorPattern    string `json:"vendorPattern"`
		MatchType        string `json:"matchType"`
		TargetCategoryID string `json:"targetCategoryId"`
		CategoryName     string `json:"categoryName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	tenant := middleware.Tenant(r.Context())
	rule, err := h.RuleSvc.CreateRule(r.Context(), tenant, &models.CategoryRule{
		VendorPattern:    body.VendorPattern,
		MatchType:        models.MatchType(body.MatchType),
		TargetCategoryID: body.TargetCategoryID,
		CategoryName:     body.CategoryName,
	})
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, rule)
}

func (h *ruleHandlers) ListRules(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())

	rules, err := h.RuleSvc.ListRules(r.Context(), tenant)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, rules)
}

// Match previews which rule would categorize a vendor; the review form
// uses it to pre-fill the category dropdown.
func (h *ruleHandlers) Match(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())
	vendor := r.URL.Query().Get("vendor")

	rule, err := h.RuleSvc.Match(r.Context(), tenant, vendor)
	if err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, rule)
}

func (h *ruleHandlers) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenant := middleware.Tenant(r.Context())
	ruleID := chi.URLParam(r, "ruleId")

	if err := h.RuleSvc.Deactivate(r.Context(), tenant, ruleID); err != nil {
		h.ResponseHandler.HandleError(w, r, err)
		return
	}

	h.ResponseHandler.WriteSuccess(w, r, http.StatusOK, nil)
}
