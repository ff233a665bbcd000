package dto

import (
	"time"
)

// ResolvedToken is a usable credential for ledger API calls.
type ResolvedToken struct {
	AccessToken string
	RealmID     string
}

// ConnectionStatus answers "is this connection usable" from stored
// timestamps only; producing it never touches the network.
type ConnectionStatus struct {
	Connected             bool      `json:"connected"`
	NeedsReconnect        bool      `json:"needsReconnect"`
	RealmID               string    `json:"realmId,omitempty"`
	AccessTokenValid      bool      `json:"accessTokenValid"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt,omitzero"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt,omitzero"`
	LastRefreshedAt       time.Time `json:"lastRefreshedAt,omitzero"`
}

// SweepResult summarizes one background refresh pass.
type SweepResult struct {
	Scanned   int            `json:"scanned"`
	Refreshed int            `json:"refreshed"`
	Skipped   int            `json:"skipped"`
	Failures  []SweepFailure `json:"failures,omitempty"`
}

type SweepFailure struct {
	TenantID string `json:"tenantId"`
	Fatal    bool   `json:"fatal"`
	Error    string `json:"error"`
}
