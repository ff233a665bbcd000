package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

type ruleRSStore interface {
	FindActiveExact(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error)
	FindActiveContains(ctx context.Context, tenantID string) ([]*models.CategoryRule, error)
	FindEquivalent(ctx context.Context, tenantID string, rule *models.CategoryRule) (*models.CategoryRule, error)
	Create(ctx context.Context, tenantID string, rule *models.CategoryRule) error
	SetActive(ctx context.Context, tenantID, ruleID string, active bool) error
	IncrementUsage(ctx context.Context, tenantID, ruleID string) error
	List(ctx context.Context, tenantID string) ([]*models.CategoryRule, error)
}

type ruleService struct {
	store ruleRSStore
}

func NewRuleService(store ruleRSStore) *ruleService {
	return &ruleService{store: store}
}

// Match resolves a vendor name to a rule: exact tier first, then the
// longest matching contains pattern. Case-insensitive, read-only, nil
// when nothing applies. Counting an application is the caller's move via
// RecordApplied, which keeps matching side-effect free.
func (s *ruleService) Match(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error) {
	if vendorName == "" {
		return nil, nil
	}

	exact, err := s.store.FindActiveExact(ctx, tenantID, vendorName)
	if err != nil {
		return nil, err
	}
	if exact != nil {
		return exact, nil
	}

	containsRules, err := s.store.FindActiveContains(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	vendorLower := strings.ToLower(vendorName)
	for _, r := range containsRules {
		// Store order is pattern length desc, so first hit is the most
		// specific.
		if strings.Contains(vendorLower, r.PatternLower) {
			return r, nil
		}
	}
	return nil, nil
}

func (s *ruleService) RecordApplied(ctx context.Context, tenantID, ruleID string) error {
	return s.store.IncrementUsage(ctx, tenantID, ruleID)
}

// CreateRule creates a rule or reactivates an equivalent one; the
// (pattern, matchType, category) key never duplicates per tenant.
func (s *ruleService) CreateRule(ctx context.Context, tenantID string, rule *models.CategoryRule) (*models.CategoryRule, error) {
	if rule.VendorPattern == "" {
		return nil, errs.NewMissingFieldError("vendor pattern")
	}
	if rule.TargetCategoryID == "" {
		return nil, errs.NewMissingFieldError("target category")
	}
	if rule.MatchType != models.MatchExact && rule.MatchType != models.MatchContains {
		return nil, errs.NewValidationError("match type must be exact or contains")
	}
	rule.PatternLower = strings.ToLower(rule.VendorPattern)

	log := logger.FromContext(ctx)

	existing, err := s.store.FindEquivalent(ctx, tenantID, rule)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.IsActive {
			if err := s.store.SetActive(ctx, tenantID, existing.RuleID, true); err != nil {
				return nil, err
			}
			existing.IsActive = true
			log.Info("category rule reactivated", "rule_id", existing.RuleID)
		}
		return existing, nil
	}

	rule.RuleID = uuid.NewString()
	rule.IsActive = true
	rule.TimesApplied = 0
	if err := s.store.Create(ctx, tenantID, rule); err != nil {
		return nil, err
	}
	log.Info("category rule created", "rule_id", rule.RuleID, "match_type", rule.MatchType)
	return rule, nil
}

// Deactivate soft-disables a rule; rules are never hard-deleted here.
func (s *ruleService) Deactivate(ctx context.Context, tenantID, ruleID string) error {
	return s.store.SetActive(ctx, tenantID, ruleID, false)
}

func (s *ruleService) ListRules(ctx context.Context, tenantID string) ([]*models.CategoryRule, error) {
	return s.store.List(ctx, tenantID)
}
