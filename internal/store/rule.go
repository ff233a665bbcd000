package store

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/receipts-backend/internal/models"
)

type ruleStore struct {
	client *firestore.Client
}

func NewRuleStore(client *firestore.Client) *ruleStore {
	return &ruleStore{client: client}
}

func (s *ruleStore) collection(tenantID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(tenantID).Collection("category_rules")
}

// FindActiveExact returns the active exact rule matching the vendor name
// case-insensitively, or nil. If duplicates slipped in, any one wins.
func (s *ruleStore) FindActiveExact(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error) {
	docs, err := s.collection(tenantID).
		Where("matchType", "==", string(models.MatchExact)).
		Where("isActive", "==", true).
		Where("patternLower", "==", strings.ToLower(vendorName)).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var r models.CategoryRule
	if err := docs[0].DataTo(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindActiveContains returns all active contains rules ordered by pattern
// length descending, then creation time. Firestore cannot express the
// substring test, so the matcher applies it; this ordering makes "longest
// pattern wins" a first-match scan.
func (s *ruleStore) FindActiveContains(ctx context.Context, tenantID string) ([]*models.CategoryRule, error) {
	docs, err := s.collection(tenantID).
		Where("matchType", "==", string(models.MatchContains)).
		Where("isActive", "==", true).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	rules := make([]*models.CategoryRule, 0, len(docs))
	for _, d := range docs {
		var r models.CategoryRule
		if err := d.DataTo(&r); err != nil {
			return nil, err
		}
		rules = append(rules, &r)
	}

	sort.SliceStable(rules, func(i, j int) bool {
		if len(rules[i].PatternLower) != len(rules[j].PatternLower) {
			return len(rules[i].PatternLower) > len(rules[j].PatternLower)
		}
		return rules[i].CreatedAt.Before(rules[j].CreatedAt)
	})
	return rules, nil
}

// FindEquivalent looks a rule up by its uniqueness key regardless of
// active state, so recreation can reactivate instead of duplicating.
func (s *ruleStore) FindEquivalent(ctx context.Context, tenantID string, rule *models.CategoryRule) (*models.CategoryRule, error) {
	docs, err := s.collection(tenantID).
		Where("matchType", "==", string(rule.MatchType)).
		Where("patternLower", "==", rule.PatternLower).
		Where("targetCategoryId", "==", rule.TargetCategoryID).
		Limit(1).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var r models.CategoryRule
	if err := docs[0].DataTo(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ruleStore) Create(ctx context.Context, tenantID string, rule *models.CategoryRule) error {
	now := time.Now()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now
	_, err := s.collection(tenantID).Doc(rule.RuleID).Set(ctx, rule)
	return err
}

func (s *ruleStore) SetActive(ctx context.Context, tenantID, ruleID string, active bool) error {
	_, err := s.collection(tenantID).Doc(ruleID).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: active},
		{Path: "updatedAt", Value: time.Now()},
	})
	return err
}

// IncrementUsage bumps timesApplied atomically.
func (s *ruleStore) IncrementUsage(ctx context.Context, tenantID, ruleID string) error {
	_, err := s.collection(tenantID).Doc(ruleID).Update(ctx, []firestore.Update{
		{Path: "timesApplied", Value: firestore.Increment(1)},
		{Path: "updatedAt", Value: time.Now()},
	})
	return err
}

func (s *ruleStore) List(ctx context.Context, tenantID string) ([]*models.CategoryRule, error) {
	docs, err := s.collection(tenantID).OrderBy("createdAt", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	rules := make([]*models.CategoryRule, 0, len(docs))
	for _, d := range docs {
		var r models.CategoryRule
		if err := d.DataTo(&r); err != nil {
			return nil, err
		}
		rules = append(rules, &r)
	}
	return rules, nil
}
