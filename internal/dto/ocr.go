package dto

// ReceiptExtraction is the structured output of the OCR model for one
// receipt image. Fields the model could not read stay empty/zero.
type ReceiptExtraction struct {
	VendorName      string  `json:"vendorName"`
	TransactionDate string  `json:"transactionDate"` // YYYY-MM-DD
	TotalAmount     float64 `json:"totalAmount"`
	Currency        string  `json:"currency"`
	PaymentHint     string  `json:"paymentHint"`
}

// ReceiptDraftResult is what the extraction service hands back to the
// review surface: the OCR fields plus any auto-suggested category.
type ReceiptDraftResult struct {
	ReceiptID           string            `json:"receiptId"`
	Extraction          ReceiptExtraction `json:"extraction"`
	SuggestedCategoryID string            `json:"suggestedCategoryId,omitempty"`
	SuggestedRuleID     string            `json:"suggestedRuleId,omitempty"`
}
