package services

import (
	"context"
	"errors"
	"testing"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/pkg/helpers"
)

type pubFakeLedger struct {
	vendors map[string]string // display name -> id
	calls   []string

	vendorCreateErr error
	purchaseErr     error
	billErr         error
	paymentErr      error
	deleteBillErr   error
	attachErr       error

	purchases   []dto.PurchaseCreate
	bills       []dto.BillCreate
	payments    []dto.BillPaymentCreate
	deleted     []string
	attachments []dto.AttachmentUpload
}

func (f *pubFakeLedger) FindVendorByName(ctx context.Context, accessToken, realmID, displayName string) (string, error) {
	f.calls = append(f.calls, "find-vendor")
	return f.vendors[displayName], nil
}

func (f *pubFakeLedger) CreateVendor(ctx context.Context, accessToken, realmID, displayName string) (string, error) {
	f.calls = append(f.calls, "create-vendor")
	if f.vendorCreateErr != nil {
		return "", f.vendorCreateErr
	}
	return "v-new", nil
}

func (f *pubFakeLedger) CreatePurchase(ctx context.Context, accessToken, realmID string, in dto.PurchaseCreate) (string, error) {
	f.calls = append(f.calls, "create-purchase")
	if f.purchaseErr != nil {
		return "", f.purchaseErr
	}
	f.purchases = append(f.purchases, in)
	return "p-1", nil
}

func (f *pubFakeLedger) CreateBill(ctx context.Context, accessToken, realmID string, in dto.BillCreate) (string, string, error) {
	f.calls = append(f.calls, "create-bill")
	if f.billErr != nil {
		return "", "", f.billErr
	}
	f.bills = append(f.bills, in)
	return "b-1", "0", nil
}

func (f *pubFakeLedger) CreateBillPayment(ctx context.Context, accessToken, realmID string, in dto.BillPaymentCreate) (string, error) {
	f.calls = append(f.calls, "create-payment")
	if f.paymentErr != nil {
		return "", f.paymentErr
	}
	f.payments = append(f.payments, in)
	return "bp-1", nil
}

func (f *pubFakeLedger) DeleteBill(ctx context.Context, accessToken, realmID, billID, syncToken string) error {
	f.calls = append(f.calls, "delete-bill")
	f.deleted = append(f.deleted, billID+":"+syncToken)
	return f.deleteBillErr
}

func (f *pubFakeLedger) UploadAttachment(ctx context.Context, accessToken, realmID string, in dto.AttachmentUpload) (string, error) {
	f.calls = append(f.calls, "upload-attachment")
	if f.attachErr != nil {
		return "", f.attachErr
	}
	f.attachments = append(f.attachments, in)
	return "att-1", nil
}

type pubFakeResolver struct {
	token dto.ResolvedToken
	err   error
}

func (f *pubFakeResolver) ResolveUsableToken(ctx context.Context, tenantID string) (dto.ResolvedToken, error) {
	if f.err != nil {
		return dto.ResolvedToken{}, f.err
	}
	return f.token, nil
}

type pubFakeImages struct {
	content     []byte
	contentType string
	err         error
}

func (f *pubFakeImages) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.content, f.contentType, nil
}

func newPubTestService(ledger *pubFakeLedger) *publishService {
	resolver := &pubFakeResolver{token: dto.ResolvedToken{AccessToken: "at", RealmID: "realm-1"}}
	return NewPublishService(ledger, resolver, &pubFakeImages{content: []byte("img"), contentType: "image/jpeg"})
}

func expenseRequest() dto.PublishRequest {
	return dto.PublishRequest{
		VendorName:         "Office Depot",
		TransactionDate:    "2025-05-20",
		TotalAmount:        42.50,
		ExpenseCategoryID:  "C1",
		PaymentAccountID:   "P1",
		PaymentAccountType: dto.AccountBank,
		Target:             dto.PublishExpense,
	}
}

func TestPublishExpense(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	result, err := svc.Publish(helpers.TestCtx(), "t1", expenseRequest())
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if result.TransactionID != "p-1" || result.TransactionKind != "Purchase" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if len(ledger.purchases) != 1 {
		t.Fatalf("expected 1 purchase, got %d", len(ledger.purchases))
	}
	p := ledger.purchases[0]
	if p.VendorID != "v-7" || p.CategoryID != "C1" || p.PaymentAccountID != "P1" || p.Amount != 42.50 {
		t.Fatalf("unexpected purchase: %#v", p)
	}
	if p.PaymentType != "Cash" {
		t.Fatalf("bank account must map to Cash, got %q", p.PaymentType)
	}
}

func TestPublishCreatesMissingVendor(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{}}
	svc := newPubTestService(ledger)

	if _, err := svc.Publish(helpers.TestCtx(), "t1", expenseRequest()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if ledger.calls[0] != "find-vendor" || ledger.calls[1] != "create-vendor" {
		t.Fatalf("unexpected call order: %#v", ledger.calls)
	}
	if ledger.purchases[0].VendorID != "v-new" {
		t.Fatalf("purchase must use the created vendor, got %q", ledger.purchases[0].VendorID)
	}
}

func TestPublishRoundsAmount(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.TotalAmount = 10.005
	if _, err := svc.Publish(helpers.TestCtx(), "t1", req); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if ledger.purchases[0].Amount != 10.01 {
		t.Fatalf("expected half-up rounding to 10.01, got %v", ledger.purchases[0].Amount)
	}
}

func TestPublishCreditCardExpense(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.PaymentAccountType = dto.AccountCreditCard
	if _, err := svc.Publish(helpers.TestCtx(), "t1", req); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if ledger.purchases[0].PaymentType != "CreditCard" {
		t.Fatalf("credit card account must map to CreditCard, got %q", ledger.purchases[0].PaymentType)
	}
}

func TestPublishValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.PublishRequest)
	}{
		{"missing vendor", func(r *dto.PublishRequest) { r.VendorName = "" }},
		{"missing date", func(r *dto.PublishRequest) { r.TransactionDate = "" }},
		{"bad date format", func(r *dto.PublishRequest) { r.TransactionDate = "20/05/2025" }},
		{"zero amount", func(r *dto.PublishRequest) { r.TotalAmount = 0 }},
		{"missing category", func(r *dto.PublishRequest) { r.ExpenseCategoryID = "" }},
		{"missing account", func(r *dto.PublishRequest) { r.PaymentAccountID = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := &pubFakeLedger{vendors: map[string]string{}}
			svc := newPubTestService(ledger)

			req := expenseRequest()
			tc.mutate(&req)
			_, err := svc.Publish(helpers.TestCtx(), "t1", req)
			var validation *errs.ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ledger.calls) != 0 {
				t.Fatalf("validation failure must not reach the ledger: %#v", ledger.calls)
			}
		})
	}
}

func TestPublishBillUnpaid(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.Target = dto.PublishBill
	result, err := svc.Publish(helpers.TestCtx(), "t1", req)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if result.TransactionID != "b-1" || result.TransactionKind != "Bill" || result.BillPaymentID != "" {
		t.Fatalf("unexpected result: %#v", result)
	}
	if len(ledger.payments) != 0 {
		t.Fatalf("unpaid bill must not create a payment")
	}
	if ledger.bills[0].DueDate != "2025-06-19" {
		t.Fatalf("expected due date 30 days out, got %q", ledger.bills[0].DueDate)
	}
}

func TestPublishBillPaid(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.Target = dto.PublishBill
	req.Paid = true
	req.DueDate = "2025-07-01"
	result, err := svc.Publish(helpers.TestCtx(), "t1", req)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if result.BillPaymentID != "bp-1" {
		t.Fatalf("expected linked payment, got %#v", result)
	}
	if ledger.bills[0].DueDate != "2025-07-01" {
		t.Fatalf("explicit due date must win, got %q", ledger.bills[0].DueDate)
	}
	pay := ledger.payments[0]
	if pay.BillID != "b-1" || pay.PayType != "Check" || pay.Amount != 42.50 {
		t.Fatalf("unexpected payment: %#v", pay)
	}
}

func TestPublishBillPaymentFailureCompensates(t *testing.T) {
	ledger := &pubFakeLedger{
		vendors:    map[string]string{"Office Depot": "v-7"},
		paymentErr: errs.NewLedgerError("account not payable", "6000", 400, false),
	}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.Target = dto.PublishBill
	req.Paid = true
	_, err := svc.Publish(helpers.TestCtx(), "t1", req)

	var payFailed *errs.PaymentCreationFailedError
	if !errors.As(err, &payFailed) {
		t.Fatalf("expected PaymentCreationFailedError, got %v", err)
	}
	if payFailed.BillID != "b-1" || !payFailed.Compensated {
		t.Fatalf("unexpected failure detail: %#v", payFailed)
	}
	if len(ledger.deleted) != 1 || ledger.deleted[0] != "b-1:0" {
		t.Fatalf("expected bill compensation delete, got %#v", ledger.deleted)
	}
}

func TestPublishBillPaymentFailureCompensationFails(t *testing.T) {
	ledger := &pubFakeLedger{
		vendors:       map[string]string{"Office Depot": "v-7"},
		paymentErr:    errs.NewTransientError("timeout"),
		deleteBillErr: errs.NewTransientError("timeout"),
	}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.Target = dto.PublishBill
	req.Paid = true
	_, err := svc.Publish(helpers.TestCtx(), "t1", req)

	var payFailed *errs.PaymentCreationFailedError
	if !errors.As(err, &payFailed) {
		t.Fatalf("expected PaymentCreationFailedError, got %v", err)
	}
	if payFailed.Compensated {
		t.Fatalf("failed compensation must be reported as not compensated")
	}
}

func TestPublishAttachmentBestEffort(t *testing.T) {
	ledger := &pubFakeLedger{
		vendors:   map[string]string{"Office Depot": "v-7"},
		attachErr: errs.NewTransientError("upload failed"),
	}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.SourceImageRef = "https://storage.example.com/r1.jpg"
	result, err := svc.Publish(helpers.TestCtx(), "t1", req)
	if err != nil {
		t.Fatalf("attachment failure must not fail the publish: %v", err)
	}
	if result.TransactionID != "p-1" || result.AttachmentID != "" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestPublishAttachmentLinksTransaction(t *testing.T) {
	ledger := &pubFakeLedger{vendors: map[string]string{"Office Depot": "v-7"}}
	svc := newPubTestService(ledger)

	req := expenseRequest()
	req.SourceImageRef = "https://storage.example.com/r1.jpg"
	result, err := svc.Publish(helpers.TestCtx(), "t1", req)
	if err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if result.AttachmentID != "att-1" {
		t.Fatalf("expected attachment id, got %#v", result)
	}
	att := ledger.attachments[0]
	if att.TxnID != "p-1" || att.TxnType != "Purchase" {
		t.Fatalf("attachment must reference the transaction: %#v", att)
	}
	if att.FileName != "receipt-p-1.jpg" {
		t.Fatalf("unexpected generated file name: %q", att.FileName)
	}
}

func TestPublishNotePreservesDescription(t *testing.T) {
	req := expenseRequest()
	req.Description = "team lunch"
	req.PaidBy = "Alex"
	if got := buildNote(req); got != "team lunch\nPaid by: Alex" {
		t.Fatalf("unexpected note: %q", got)
	}

	req.Description = ""
	if got := buildNote(req); got != "Paid by: Alex" {
		t.Fatalf("unexpected note: %q", got)
	}
}
