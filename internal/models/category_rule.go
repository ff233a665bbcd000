package models

import (
	"time"
)

type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
)

// CategoryRule maps a vendor name to a ledger expense category.
// (vendorPattern, matchType, targetCategoryId) is unique per tenant;
// recreating an equivalent rule reactivates it instead of duplicating.
type CategoryRule struct {
	RuleID           string    `firestore:"ruleId" json:"ruleId"`
	VendorPattern    string    `firestore:"vendorPattern" json:"vendorPattern"`
	PatternLower     string    `firestore:"patternLower" json:"-"` // case-insensitive lookups
	MatchType        MatchType `firestore:"matchType" json:"matchType"`
	TargetCategoryID string    `firestore:"targetCategoryId" json:"targetCategoryId"`
	CategoryName     string    `firestore:"categoryName" json:"categoryName,omitempty"`
	IsActive         bool      `firestore:"isActive" json:"isActive"`
	TimesApplied     int       `firestore:"timesApplied" json:"timesApplied"`
	CreatedAt        time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `firestore:"updatedAt" json:"updatedAt"`
}
