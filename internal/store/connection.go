package store

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/GregMSThompson/receipts-backend/internal/models"
)

// tokenCipher seals partner credentials before they hit disk.
type tokenCipher interface {
	Encrypt(ctx context.Context, plaintext string) (string, error)
	Decrypt(ctx context.Context, ciphertext string) (string, error)
}

type connectionStore struct {
	client *firestore.Client
	cipher tokenCipher
}

func NewConnectionStore(client *firestore.Client, cipher tokenCipher) *connectionStore {
	return &connectionStore{client: client, cipher: cipher}
}

func (s *connectionStore) collection() *firestore.CollectionRef {
	return s.client.Collection("connections")
}

// Load returns nil without error when the tenant has no connection.
func (s *connectionStore) Load(ctx context.Context, tenantID string) (*models.Connection, error) {
	doc, err := s.collection().Doc(tenantID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var c models.Connection
	if err := doc.DataTo(&c); err != nil {
		return nil, err
	}
	if err := s.openTokens(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Save upserts the connection, encrypting both tokens. The returned value
// carries the plaintext tokens the caller passed in.
func (s *connectionStore) Save(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	sealed := *conn
	var err error
	if sealed.AccessToken, err = s.cipher.Encrypt(ctx, conn.AccessToken); err != nil {
		return nil, err
	}
	if sealed.RefreshToken, err = s.cipher.Encrypt(ctx, conn.RefreshToken); err != nil {
		return nil, err
	}

	if _, err := s.collection().Doc(conn.TenantID).Set(ctx, &sealed); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *connectionStore) Delete(ctx context.Context, tenantID string) (bool, error) {
	doc, err := s.collection().Doc(tenantID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, err = doc.Ref.Delete(ctx)
	return err == nil, err
}

// ListRefreshCreatedBefore feeds the background sweep: every connection
// whose refresh token was issued at or before the cutoff.
func (s *connectionStore) ListRefreshCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Connection, error) {
	docs, err := s.collection().
		Where("refreshTokenCreatedAt", "<=", cutoff).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	conns := make([]*models.Connection, 0, len(docs))
	for _, d := range docs {
		var c models.Connection
		if err := d.DataTo(&c); err != nil {
			return nil, err
		}
		if err := s.openTokens(ctx, &c); err != nil {
			return nil, err
		}
		conns = append(conns, &c)
	}
	return conns, nil
}

func (s *connectionStore) openTokens(ctx context.Context, c *models.Connection) error {
	var err error
	if c.AccessToken, err = s.cipher.Decrypt(ctx, c.AccessToken); err != nil {
		return err
	}
	c.RefreshToken, err = s.cipher.Decrypt(ctx, c.RefreshToken)
	return err
}
