package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/pkg/helpers"
)

type ruleFakeStore struct {
	rules      []*models.CategoryRule
	created    []*models.CategoryRule
	activated  []string
	usageBumps []string
}

func (f *ruleFakeStore) FindActiveExact(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error) {
	lower := strings.ToLower(vendorName)
	for _, r := range f.rules {
		if r.MatchType == models.MatchExact && r.IsActive && r.PatternLower == lower {
			return r, nil
		}
	}
	return nil, nil
}

func (f *ruleFakeStore) FindActiveContains(ctx context.Context, tenantID string) ([]*models.CategoryRule, error) {
	var out []*models.CategoryRule
	for _, r := range f.rules {
		if r.MatchType == models.MatchContains && r.IsActive {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].PatternLower) != len(out[j].PatternLower) {
			return len(out[i].PatternLower) > len(out[j].PatternLower)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *ruleFakeStore) FindEquivalent(ctx context.Context, tenantID string, rule *models.CategoryRule) (*models.CategoryRule, error) {
	for _, r := range f.rules {
		if r.MatchType == rule.MatchType && r.PatternLower == rule.PatternLower && r.TargetCategoryID == rule.TargetCategoryID {
			return r, nil
		}
	}
	return nil, nil
}

func (f *ruleFakeStore) Create(ctx context.Context, tenantID string, rule *models.CategoryRule) error {
	f.rules = append(f.rules, rule)
	f.created = append(f.created, rule)
	return nil
}

func (f *ruleFakeStore) SetActive(ctx context.Context, tenantID, ruleID string, active bool) error {
	f.activated = append(f.activated, ruleID)
	for _, r := range f.rules {
		if r.RuleID == ruleID {
			r.IsActive = active
		}
	}
	return nil
}

func (f *ruleFakeStore) IncrementUsage(ctx context.Context, tenantID, ruleID string) error {
	f.usageBumps = append(f.usageBumps, ruleID)
	return nil
}

func (f *ruleFakeStore) List(ctx context.Context, tenantID string) ([]*models.CategoryRule, error) {
	return f.rules, nil
}

func containsRule(id, pattern, categoryID string, createdAt time.Time) *models.CategoryRule {
	return &models.CategoryRule{
		RuleID:           id,
		VendorPattern:    pattern,
		PatternLower:     strings.ToLower(pattern),
		MatchType:        models.MatchContains,
		TargetCategoryID: categoryID,
		IsActive:         true,
		CreatedAt:        createdAt,
	}
}

func exactRule(id, pattern, categoryID string) *models.CategoryRule {
	return &models.CategoryRule{
		RuleID:           id,
		VendorPattern:    pattern,
		PatternLower:     strings.ToLower(pattern),
		MatchType:        models.MatchExact,
		TargetCategoryID: categoryID,
		IsActive:         true,
	}
}

func TestMatchExactBeatsContains(t *testing.T) {
	store := &ruleFakeStore{rules: []*models.CategoryRule{
		containsRule("r-contains", "Amazon", "C-shopping", time.Now()),
		exactRule("r-exact", "Amazon Web Services", "C-cloud"),
	}}
	svc := NewRuleService(store)

	got, err := svc.Match(helpers.TestCtx(), "t1", "amazon web services")
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got == nil || got.RuleID != "r-exact" {
		t.Fatalf("exact rule must win, got %#v", got)
	}
}

func TestMatchLongestContainsWins(t *testing.T) {
	base := time.Now()
	store := &ruleFakeStore{rules: []*models.CategoryRule{
		containsRule("r-short", "Amazon", "C-shopping", base),
		containsRule("r-long", "Amazon Web Services", "C-cloud", base.Add(time.Minute)),
	}}
	svc := NewRuleService(store)

	got, err := svc.Match(helpers.TestCtx(), "t1", "Amazon Web Services Inc")
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got == nil || got.RuleID != "r-long" {
		t.Fatalf("longest pattern must win, got %#v", got)
	}

	got, err = svc.Match(helpers.TestCtx(), "t1", "Amazon Fresh")
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got == nil || got.RuleID != "r-short" {
		t.Fatalf("shorter pattern should catch the rest, got %#v", got)
	}
}

func TestMatchIgnoresInactiveAndMisses(t *testing.T) {
	inactive := exactRule("r-off", "Starbucks", "C-coffee")
	inactive.IsActive = false
	store := &ruleFakeStore{rules: []*models.CategoryRule{inactive}}
	svc := NewRuleService(store)

	got, err := svc.Match(helpers.TestCtx(), "t1", "Starbucks")
	if err != nil {
		t.Fatalf("Match returned error: %v", err)
	}
	if got != nil {
		t.Fatalf("inactive rule must not match, got %#v", got)
	}

	if got, _ := svc.Match(helpers.TestCtx(), "t1", ""); got != nil {
		t.Fatalf("empty vendor must not match, got %#v", got)
	}
	if len(store.usageBumps) != 0 {
		t.Fatalf("matching must not record usage: %#v", store.usageBumps)
	}
}

func TestCreateRuleAssignsIDAndActivates(t *testing.T) {
	store := &ruleFakeStore{}
	svc := NewRuleService(store)

	rule, err := svc.CreateRule(helpers.TestCtx(), "t1", &models.CategoryRule{
		VendorPattern:    "Uber",
		MatchType:        models.MatchContains,
		TargetCategoryID: "C-travel",
	})
	if err != nil {
		t.Fatalf("CreateRule returned error: %v", err)
	}
	if rule.RuleID == "" || !rule.IsActive || rule.TimesApplied != 0 {
		t.Fatalf("unexpected rule: %#v", rule)
	}
	if rule.PatternLower != "uber" {
		t.Fatalf("pattern must be lowered for lookups, got %q", rule.PatternLower)
	}
}

func TestCreateRuleReactivatesEquivalent(t *testing.T) {
	existing := containsRule("r-1", "Uber", "C-travel", time.Now())
	existing.IsActive = false
	store := &ruleFakeStore{rules: []*models.CategoryRule{existing}}
	svc := NewRuleService(store)

	rule, err := svc.CreateRule(helpers.TestCtx(), "t1", &models.CategoryRule{
		VendorPattern:    "uber",
		MatchType:        models.MatchContains,
		TargetCategoryID: "C-travel",
	})
	if err != nil {
		t.Fatalf("CreateRule returned error: %v", err)
	}
	if rule.RuleID != "r-1" || !rule.IsActive {
		t.Fatalf("expected reactivated rule, got %#v", rule)
	}
	if len(store.created) != 0 {
		t.Fatalf("equivalent rule must not duplicate: %#v", store.created)
	}
	if len(store.activated) != 1 || store.activated[0] != "r-1" {
		t.Fatalf("expected reactivation, got %#v", store.activated)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	svc := NewRuleService(&ruleFakeStore{})

	cases := []*models.CategoryRule{
		{MatchType: models.MatchExact, TargetCategoryID: "C1"},
		{VendorPattern: "Uber", MatchType: models.MatchExact},
		{VendorPattern: "Uber", MatchType: "regex", TargetCategoryID: "C1"},
	}
	for _, rule := range cases {
		_, err := svc.CreateRule(helpers.TestCtx(), "t1", rule)
		var validation *errs.ValidationError
		if !errors.As(err, &validation) {
			t.Fatalf("expected ValidationError for %#v, got %v", rule, err)
		}
	}
}

func TestDeactivateRule(t *testing.T) {
	existing := exactRule("r-1", "Uber", "C-travel")
	store := &ruleFakeStore{rules: []*models.CategoryRule{existing}}
	svc := NewRuleService(store)

	if err := svc.Deactivate(helpers.TestCtx(), "t1", "r-1"); err != nil {
		t.Fatalf("Deactivate returned error: %v", err)
	}
	if existing.IsActive {
		t.Fatalf("rule must be inactive after Deactivate")
	}
}
