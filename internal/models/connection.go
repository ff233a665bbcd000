package models

import (
	"time"
)

// Connection is the per-tenant OAuth credential pair for the ledger
// partner. Access and refresh tokens are always rotated together; the
// store encrypts both at rest.
type Connection struct {
	TenantID              string    `firestore:"tenantId" json:"tenantId"`
	RealmID               string    `firestore:"realmId" json:"realmId"`
	AccessToken           string    `firestore:"accessToken" json:"-"`
	RefreshToken          string    `firestore:"refreshToken" json:"-"`
	AccessTokenExpiresAt  time.Time `firestore:"accessTokenExpiresAt" json:"accessTokenExpiresAt"`
	RefreshTokenCreatedAt time.Time `firestore:"refreshTokenCreatedAt" json:"refreshTokenCreatedAt"`
	RefreshTokenExpiresAt time.Time `firestore:"refreshTokenExpiresAt" json:"refreshTokenExpiresAt"`
	LastRefreshedAt       time.Time `firestore:"lastRefreshedAt" json:"lastRefreshedAt"`
	CreatedAt             time.Time `firestore:"createdAt" json:"createdAt"`
	UpdatedAt             time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// RefreshTokenAge is how long ago the current refresh token was issued.
func (c *Connection) RefreshTokenAge(now time.Time) time.Duration {
	return now.Sub(c.RefreshTokenCreatedAt)
}
