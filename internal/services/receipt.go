package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

type ocrRSClient interface {
	ExtractReceipt(ctx context.Context, imageBytes []byte, contentType string) (dto.ReceiptExtraction, error)
}

type receiptRSStore interface {
	Create(ctx context.Context, tenantID string, receipt *models.Receipt) error
	Get(ctx context.Context, tenantID, receiptID string) (*models.Receipt, error)
	SetStatus(ctx context.Context, tenantID, receiptID, status string) error
}

type ruleRSMatcher interface {
	Match(ctx context.Context, tenantID, vendorName string) (*models.CategoryRule, error)
	RecordApplied(ctx context.Context, tenantID, ruleID string) error
}

type receiptService struct {
	ocr      ocrRSClient
	store    receiptRSStore
	rules    ruleRSMatcher
	clockNow func() time.Time
}

func NewReceiptService(ocr ocrRSClient, store receiptRSStore, rules ruleRSMatcher) *receiptService {
	return &receiptService{
		ocr:      ocr,
		store:    store,
		rules:    rules,
		clockNow: time.Now,
	}
}

// Extract runs OCR over a receipt image, auto-suggests a category from
// the tenant's rules, and persists a draft for review. The draft never
// reaches the ledger directly; publishing takes the reviewed request.
func (s *receiptService) Extract(ctx context.Context, tenantID string, imageBytes []byte, contentType, imageURL string) (dto.ReceiptDraftResult, error) {
	log := logger.FromContext(ctx)

	if len(imageBytes) == 0 {
		return dto.ReceiptDraftResult{}, errs.NewMissingFieldError("receipt image")
	}

	extraction, err := s.ocr.ExtractReceipt(ctx, imageBytes, contentType)
	if err != nil {
		return dto.ReceiptDraftResult{}, err
	}

	receipt := &models.Receipt{
		ReceiptID:       uuid.NewString(),
		VendorName:      extraction.VendorName,
		TransactionDate: extraction.TransactionDate,
		TotalAmount:     extraction.TotalAmount,
		Currency:        extraction.Currency,
		PaymentHint:     extraction.PaymentHint,
		ImageURL:        imageURL,
		Status:          "draft",
	}

	if extraction.VendorName != "" {
		rule, err := s.rules.Match(ctx, tenantID, extraction.VendorName)
		if err != nil {
			// Suggestion only; extraction still succeeds.
			log.Warn("category suggestion failed", "error", err)
		} else if rule != nil {
			receipt.SuggestedCategoryID = rule.TargetCategoryID
			receipt.SuggestedRuleID = rule.RuleID
			if err := s.rules.RecordApplied(ctx, tenantID, rule.RuleID); err != nil {
				log.Warn("rule usage increment failed", "rule_id", rule.RuleID, "error", err)
			}
		}
	}

	if err := s.store.Create(ctx, tenantID, receipt); err != nil {
		return dto.ReceiptDraftResult{}, err
	}

	log.Info("receipt extracted", "receipt_id", receipt.ReceiptID, "vendor", receipt.VendorName)
	return dto.ReceiptDraftResult{
		ReceiptID:           receipt.ReceiptID,
		Extraction:          extraction,
		SuggestedCategoryID: receipt.SuggestedCategoryID,
		SuggestedRuleID:     receipt.SuggestedRuleID,
	}, nil
}

// MarkPublished flips a draft to published after a successful publish.
func (s *receiptService) MarkPublished(ctx context.Context, tenantID, receiptID string) error {
	return s.store.SetStatus(ctx, tenantID, receiptID, "published")
}
