package models

import (
	"time"
)

// Receipt is the draft produced by OCR extraction, pending user review.
type Receipt struct {
	ReceiptID           string    `firestore:"receiptId" json:"receiptId"`
	VendorName          string    `firestore:"vendorName" json:"vendorName"`
	TransactionDate     string    `firestore:"transactionDate" json:"transactionDate"` // YYYY-MM-DD
	TotalAmount         float64   `firestore:"totalAmount" json:"totalAmount"`
	Currency            string    `firestore:"currency" json:"currency,omitempty"`
	PaymentHint         string    `firestore:"paymentHint" json:"paymentHint,omitempty"` // e.g. "VISA ...1234"
	SuggestedCategoryID string    `firestore:"suggestedCategoryId" json:"suggestedCategoryId,omitempty"`
	SuggestedRuleID     string    `firestore:"suggestedRuleId" json:"suggestedRuleId,omitempty"`
	ImageURL            string    `firestore:"imageUrl" json:"imageUrl,omitempty"`
	Status              string    `firestore:"status" json:"status"` // "draft", "published"
	CreatedAt           time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time `firestore:"updatedAt" json:"updatedAt"`
}
