package dto

// PublishTarget selects which ledger transaction shape Publish creates.
type PublishTarget string

const (
	// PublishExpense creates a single purchase against the payment account.
	PublishExpense PublishTarget = "expense"
	// PublishBill creates an unpaid bill plus a bill payment.
	PublishBill PublishTarget = "bill"
)

type PaymentAccountType string

const (
	AccountBank       PaymentAccountType = "bank"
	AccountCreditCard PaymentAccountType = "credit_card"
)

// PublishRequest is a reviewed receipt ready for the ledger. Category and
// tax are already resolved by the review step; the orchestrator never
// computes tax.
type PublishRequest struct {
	VendorName         string             `json:"vendorName"`
	TransactionDate    string             `json:"transactionDate"` // YYYY-MM-DD
	TotalAmount        float64            `json:"totalAmount"`
	CurrencyCode       string             `json:"currencyCode,omitempty"`
	ExpenseCategoryID  string             `json:"expenseCategoryId"`
	PaymentAccountID   string             `json:"paymentAccountId"`
	PaymentAccountType PaymentAccountType `json:"paymentAccountType"`
	Paid               bool               `json:"paid"`
	PaidBy             string             `json:"paidBy,omitempty"`
	Target             PublishTarget      `json:"target"`
	Description        string             `json:"description,omitempty"`
	DueDate            string             `json:"dueDate,omitempty"` // bills only; default txn date + 30d
	SourceImageRef     string             `json:"sourceImageRef,omitempty"`
	SourceImageName    string             `json:"sourceImageName,omitempty"`
}

// PublishResult reports what was actually created on the ledger side.
type PublishResult struct {
	TransactionID   string `json:"transactionId"`
	TransactionKind string `json:"transactionKind"` // "Purchase" or "Bill"
	BillPaymentID   string `json:"billPaymentId,omitempty"`
	AttachmentID    string `json:"attachmentId,omitempty"`
}
