package store

import (
	"context"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

// Secrets path
// projects/{project}/secrets/{secretName}/versions/latest

type secretsStore struct {
	client    *secretmanager.Client
	projectID string
}

func NewSecretsStore(client *secretmanager.Client, projectID string) *secretsStore {
	return &secretsStore{
		client:    client,
		projectID: projectID,
	}
}

// GetLedgerClientSecret reads the OAuth client secret for the ledger app.
// It is fetched once at bootstrap, not per request.
func (s *secretsStore) GetLedgerClientSecret(ctx context.Context, secretName string) (string, error) {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, secretName)
	res, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if status.Code(err) == codes.NotFound {
		return "", errs.NewNotFoundError("ledger client secret " + secretName + " not found")
	}
	if err != nil {
		return "", err
	}
	return string(res.Payload.Data), nil
}
