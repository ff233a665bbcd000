package dto

type LedgerEnvironment string

const (
	LedgerSandbox    LedgerEnvironment = "sandbox"
	LedgerProduction LedgerEnvironment = "production"
)

// Adapter-level inputs for the ledger client. These are already reduced to
// what the partner objects need; the client owns the wire JSON.

type PurchaseCreate struct {
	VendorID         string
	PaymentAccountID string
	PaymentType      string // "Cash" or "CreditCard"
	CategoryID       string
	Amount           float64
	TxnDate          string // YYYY-MM-DD
	Note             string
}

type BillCreate struct {
	VendorID   string
	CategoryID string
	Amount     float64
	TxnDate    string
	DueDate    string
	Note       string
}

type BillPaymentCreate struct {
	VendorID         string
	BillID           string
	PayType          string // "Check" or "CreditCard"
	PaymentAccountID string
	Amount           float64
	TxnDate          string
}

type AttachmentUpload struct {
	TxnID       string
	TxnType     string // "Purchase" or "Bill"
	FileName    string
	ContentType string
	Content     []byte
}

// TokenGrant is one successful exchange at the partner's token endpoint.
// Lifetimes are the partner's numbers, never assumed.
type TokenGrant struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64 // seconds
	RefreshExpiresIn int64 // seconds
}
