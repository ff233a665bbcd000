package store

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/receipts-backend/internal/models"
)

func TestRuleQueriesWithEmulator(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, "test-project")
	if err != nil {
		t.Fatalf("firestore client error: %v", err)
	}
	defer client.Close()

	store := NewRuleStore(client)
	tenant := "tenant"

	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	rules := []models.CategoryRule{
		{
			RuleID:           "r-exact",
			VendorPattern:    "Amazon Web Services",
			PatternLower:     "amazon web services",
			MatchType:        models.MatchExact,
			TargetCategoryID: "C-cloud",
			IsActive:         true,
			CreatedAt:        now,
		},
		{
			RuleID:           "r-short",
			VendorPattern:    "Amazon",
			PatternLower:     "amazon",
			MatchType:        models.MatchContains,
			TargetCategoryID: "C-shopping",
			IsActive:         true,
			CreatedAt:        now,
		},
		{
			RuleID:           "r-long",
			VendorPattern:    "Amazon Fresh",
			PatternLower:     "amazon fresh",
			MatchType:        models.MatchContains,
			TargetCategoryID: "C-grocery",
			IsActive:         true,
			CreatedAt:        now.Add(time.Minute),
		},
		{
			RuleID:           "r-off",
			VendorPattern:    "Amazon Prime",
			PatternLower:     "amazon prime",
			MatchType:        models.MatchContains,
			TargetCategoryID: "C-subs",
			IsActive:         false,
			CreatedAt:        now,
		},
	}
	for _, r := range rules {
		if err := store.Create(ctx, tenant, &r); err != nil {
			t.Fatalf("seed rule error: %v", err)
		}
	}

	exact, err := store.FindActiveExact(ctx, tenant, "AMAZON WEB SERVICES")
	if err != nil {
		t.Fatalf("FindActiveExact error: %v", err)
	}
	if exact == nil || exact.RuleID != "r-exact" {
		t.Fatalf("unexpected exact match: %#v", exact)
	}

	contains, err := store.FindActiveContains(ctx, tenant)
	if err != nil {
		t.Fatalf("FindActiveContains error: %v", err)
	}
	if len(contains) != 2 {
		t.Fatalf("expected 2 active contains rules, got %d", len(contains))
	}
	if contains[0].RuleID != "r-long" || contains[1].RuleID != "r-short" {
		t.Fatalf("rules must be ordered longest pattern first: %s, %s", contains[0].RuleID, contains[1].RuleID)
	}

	equivalent, err := store.FindEquivalent(ctx, tenant, &models.CategoryRule{
		MatchType:        models.MatchContains,
		PatternLower:     "amazon prime",
		TargetCategoryID: "C-subs",
	})
	if err != nil {
		t.Fatalf("FindEquivalent error: %v", err)
	}
	if equivalent == nil || equivalent.RuleID != "r-off" {
		t.Fatalf("equivalence lookup must ignore active state: %#v", equivalent)
	}

	if err := store.IncrementUsage(ctx, tenant, "r-short"); err != nil {
		t.Fatalf("IncrementUsage error: %v", err)
	}
	listed, err := store.List(ctx, tenant)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	for _, r := range listed {
		if r.RuleID == "r-short" && r.TimesApplied != 1 {
			t.Fatalf("expected usage count 1, got %d", r.TimesApplied)
		}
	}
}
