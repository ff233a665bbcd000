package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

// --- Dependencies (minimal interfaces scoped to this service) ---

// ledgerPSClient is the ledger adapter surface used for publishing.
type ledgerPSClient interface {
	FindVendorByName(ctx context.Context, accessToken, realmID, displayName string) (string, error)
	CreateVendor(ctx context.Context, accessToken, realmID, displayName string) (string, error)
	CreatePurchase(ctx context.Context, accessToken, realmID string, in dto.PurchaseCreate) (string, error)
	CreateBill(ctx context.Context, accessToken, realmID string, in dto.BillCreate) (string, string, error)
	CreateBillPayment(ctx context.Context, accessToken, realmID string, in dto.BillPaymentCreate) (string, error)
	DeleteBill(ctx context.Context, accessToken, realmID, billID, syncToken string) error
	UploadAttachment(ctx context.Context, accessToken, realmID string, in dto.AttachmentUpload) (string, error)
}

// tokenPSResolver hands out a usable credential; refreshing is its problem.
type tokenPSResolver interface {
	ResolveUsableToken(ctx context.Context, tenantID string) (dto.ResolvedToken, error)
}

// imagePSFetcher turns a source-image reference into bytes + content type.
type imagePSFetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

const dueDateOffset = 30 * 24 * time.Hour

type publishService struct {
	ledger   ledgerPSClient
	tokens   tokenPSResolver
	images   imagePSFetcher
	clockNow func() time.Time
}

func NewPublishService(ledger ledgerPSClient, tokens tokenPSResolver, images imagePSFetcher) *publishService {
	return &publishService{
		ledger:   ledger,
		tokens:   tokens,
		images:   images,
		clockNow: time.Now,
	}
}

// Publish turns a reviewed receipt into exactly one of the two ledger
// shapes. The attachment step is best-effort and never fails a publish
// whose transaction already exists.
func (s *publishService) Publish(ctx context.Context, tenantID string, req dto.PublishRequest) (dto.PublishResult, error) {
	log := logger.FromContext(ctx)
	result := dto.PublishResult{}

	if err := validatePublishRequest(req); err != nil {
		return result, err
	}

	token, err := s.tokens.ResolveUsableToken(ctx, tenantID)
	if err != nil {
		return result, err
	}

	vendorID, err := s.resolveVendor(ctx, token, req.VendorName)
	if err != nil {
		return result, err
	}

	amount := roundToMinorUnit(req.TotalAmount)

	switch req.Target {
	case dto.PublishBill:
		result, err = s.publishBill(ctx, token, vendorID, amount, req)
	default:
		result, err = s.publishExpense(ctx, token, vendorID, amount, req)
	}
	if err != nil {
		return dto.PublishResult{}, err
	}

	// Always last; any failure is logged and swallowed.
	if req.SourceImageRef != "" {
		if id, aerr := s.attachImage(ctx, token, result, req); aerr != nil {
			log.Warn("receipt attachment failed", "transaction_id", result.TransactionID, "error", aerr)
		} else {
			result.AttachmentID = id
		}
	}

	log.Info("receipt published",
		"transaction_id", result.TransactionID,
		"kind", result.TransactionKind,
		"amount", amount)
	return result, nil
}

// --- paths ---

func (s *publishService) publishExpense(ctx context.Context, token dto.ResolvedToken, vendorID string, amount float64, req dto.PublishRequest) (dto.PublishResult, error) {
	purchaseID, err := s.ledger.CreatePurchase(ctx, token.AccessToken, token.RealmID, dto.PurchaseCreate{
		VendorID:         vendorID,
		PaymentAccountID: req.PaymentAccountID,
		PaymentType:      purchasePaymentType(req.PaymentAccountType),
		CategoryID:       req.ExpenseCategoryID,
		Amount:           amount,
		TxnDate:          req.TransactionDate,
		Note:             buildNote(req),
	})
	if err != nil {
		return dto.PublishResult{}, err
	}
	return dto.PublishResult{TransactionID: purchaseID, TransactionKind: "Purchase"}, nil
}

// publishBill creates the bill and, when the receipt is marked paid, the
// linked bill payment. The partner models these as separate objects, so
// a payment failure compensates by deleting the just-created bill; the
// caller then sees a payment failure, never a partial success.
func (s *publishService) publishBill(ctx context.Context, token dto.ResolvedToken, vendorID string, amount float64, req dto.PublishRequest) (dto.PublishResult, error) {
	var billID, billSyncToken, paymentID string

	steps := []sagaStep{
		{
			name: "create bill",
			run: func(ctx context.Context) error {
				var err error
				billID, billSyncToken, err = s.ledger.CreateBill(ctx, token.AccessToken, token.RealmID, dto.BillCreate{
					VendorID:   vendorID,
					CategoryID: req.ExpenseCategoryID,
					Amount:     amount,
					TxnDate:    req.TransactionDate,
					DueDate:    s.resolveDueDate(req),
					Note:       buildNote(req),
				})
				return err
			},
			compensate: func(ctx context.Context) error {
				return s.ledger.DeleteBill(ctx, token.AccessToken, token.RealmID, billID, billSyncToken)
			},
		},
	}

	if req.Paid {
		steps = append(steps, sagaStep{
			name: "create bill payment",
			run: func(ctx context.Context) error {
				var err error
				paymentID, err = s.ledger.CreateBillPayment(ctx, token.AccessToken, token.RealmID, dto.BillPaymentCreate{
					VendorID:         vendorID,
					BillID:           billID,
					PayType:          billPaymentType(req.PaymentAccountType),
					PaymentAccountID: req.PaymentAccountID,
					Amount:           amount,
					TxnDate:          req.TransactionDate,
				})
				return err
			},
		})
	}

	if failure := runSaga(ctx, steps); failure != nil {
		if failure.Step == "create bill payment" {
			return dto.PublishResult{}, errs.NewPaymentCreationFailedError(billID, failure.Compensated)
		}
		return dto.PublishResult{}, failure.Err
	}

	return dto.PublishResult{
		TransactionID:   billID,
		TransactionKind: "Bill",
		BillPaymentID:   paymentID,
	}, nil
}

// --- helpers ---

func validatePublishRequest(req dto.PublishRequest) error {
	if req.VendorName == "" {
		return errs.NewMissingFieldError("vendor name")
	}
	if req.TransactionDate == "" {
		return errs.NewMissingFieldError("transaction date")
	}
	if _, err := time.Parse("2006-01-02", req.TransactionDate); err != nil {
		return errs.NewValidationError("transaction date must be YYYY-MM-DD")
	}
	if req.TotalAmount <= 0 {
		return errs.NewMissingFieldError("total amount")
	}
	if req.ExpenseCategoryID == "" {
		return errs.NewValidationError("expense category is required")
	}
	if req.PaymentAccountID == "" {
		return errs.NewValidationError("payment account is required")
	}
	return nil
}

// resolveVendor finds the vendor by exact display name, creating it when
// absent.
func (s *publishService) resolveVendor(ctx context.Context, token dto.ResolvedToken, displayName string) (string, error) {
	vendorID, err := s.ledger.FindVendorByName(ctx, token.AccessToken, token.RealmID, displayName)
	if err != nil {
		return "", err
	}
	if vendorID != "" {
		return vendorID, nil
	}
	return s.ledger.CreateVendor(ctx, token.AccessToken, token.RealmID, displayName)
}

func (s *publishService) resolveDueDate(req dto.PublishRequest) string {
	if req.DueDate != "" {
		return req.DueDate
	}
	txnDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		return ""
	}
	return txnDate.Add(dueDateOffset).Format("2006-01-02")
}

func (s *publishService) attachImage(ctx context.Context, token dto.ResolvedToken, result dto.PublishResult, req dto.PublishRequest) (string, error) {
	content, contentType, err := s.images.Fetch(ctx, req.SourceImageRef)
	if err != nil {
		return "", err
	}

	fileName := req.SourceImageName
	if fileName == "" {
		fileName = "receipt-" + result.TransactionID + extensionFor(contentType)
	}

	return s.ledger.UploadAttachment(ctx, token.AccessToken, token.RealmID, dto.AttachmentUpload{
		TxnID:       result.TransactionID,
		TxnType:     result.TransactionKind,
		FileName:    fileName,
		ContentType: contentType,
		Content:     content,
	})
}

// buildNote keeps the user's description intact; the paid-by annotation
// is appended as its own line, never substituted.
func buildNote(req dto.PublishRequest) string {
	note := req.Description
	if req.PaidBy != "" {
		if note != "" {
			note += "\n"
		}
		note += "Paid by: " + req.PaidBy
	}
	return note
}

// roundToMinorUnit rounds to the currency's minor unit (two decimal
// places) before anything crosses the wire.
func roundToMinorUnit(amount float64) float64 {
	return decimal.NewFromFloat(amount).Round(2).InexactFloat64()
}

func purchasePaymentType(t dto.PaymentAccountType) string {
	if t == dto.AccountCreditCard {
		return "CreditCard"
	}
	return "Cash"
}

func billPaymentType(t dto.PaymentAccountType) string {
	if t == dto.AccountCreditCard {
		return "CreditCard"
	}
	return "Check"
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".jpg"
	}
}
