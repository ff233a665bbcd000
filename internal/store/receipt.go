package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/GregMSThompson/receipts-backend/internal/models"
)

type receiptStore struct {
	client *firestore.Client
}

func NewReceiptStore(client *firestore.Client) *receiptStore {
	return &receiptStore{client: client}
}

func (s *receiptStore) collection(tenantID string) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(tenantID).Collection("receipts")
}

func (s *receiptStore) Create(ctx context.Context, tenantID string, receipt *models.Receipt) error {
	now := time.Now()
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = now
	}
	receipt.UpdatedAt = now
	_, err := s.collection(tenantID).Doc(receipt.ReceiptID).Set(ctx, receipt)
	return err
}

func (s *receiptStore) Get(ctx context.Context, tenantID, receiptID string) (*models.Receipt, error) {
	doc, err := s.collection(tenantID).Doc(receiptID).Get(ctx)
	if err != nil {
		return nil, err
	}
	var r models.Receipt
	if err := doc.DataTo(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *receiptStore) SetStatus(ctx context.Context, tenantID, receiptID, status string) error {
	_, err := s.collection(tenantID).Doc(receiptID).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now()},
	})
	return err
}
