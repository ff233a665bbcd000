package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/internal/models"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

// --- Dependencies (minimal interfaces scoped to this service) ---

type connectionCSStore interface {
	Load(ctx context.Context, tenantID string) (*models.Connection, error)
	Save(ctx context.Context, conn *models.Connection) (*models.Connection, error)
	Delete(ctx context.Context, tenantID string) (bool, error)
	ListRefreshCreatedBefore(ctx context.Context, cutoff time.Time) ([]*models.Connection, error)
}

// tokenClient is the ledger adapter surface for the OAuth token endpoint.
type tokenClient interface {
	ExchangeAuthCode(ctx context.Context, code string) (dto.TokenGrant, error)
	RefreshToken(ctx context.Context, refreshToken string) (dto.TokenGrant, error)
	RevokeToken(ctx context.Context, refreshToken string) error
}

// RefreshPolicy carries the timing knobs for token renewal. Sweep
// threshold must exceed the proactive threshold; both are ops decisions.
type RefreshPolicy struct {
	AccessTokenBuffer  time.Duration
	ProactiveThreshold time.Duration
	SweepThreshold     time.Duration
	SweepMinSpacing    time.Duration
	SweepTenantDelay   time.Duration
	MaxAttempts        int
	BaseDelay          time.Duration
}

const opportunisticTimeout = 60 * time.Second

// The partner documents a 100-day refresh token lifetime; used when a
// grant omits the explicit field.
const defaultRefreshTokenLifetime = 100 * 24 * time.Hour

type connectionService struct {
	store  connectionCSStore
	tokens tokenClient
	policy RefreshPolicy

	// Refresh rotates the stored token pair, so two concurrent refreshes
	// for one tenant would race each other out of a valid pair. All
	// refreshes, foreground and sweep, funnel through this group.
	flight singleflight.Group

	clockNow func() time.Time
	sleep    func(ctx context.Context, d time.Duration)
	// spawnRefresh runs an opportunistic refresh without blocking the
	// caller; tests swap it for a synchronous version.
	spawnRefresh func(tenantID string)
}

func NewConnectionService(store connectionCSStore, tokens tokenClient, policy RefreshPolicy) *connectionService {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}

	s := &connectionService{
		store:    store,
		tokens:   tokens,
		policy:   policy,
		clockNow: time.Now,
		sleep:    sleepCtx,
	}
	s.spawnRefresh = s.refreshInBackground
	return s
}

// Connect performs the authorization-code exchange and creates the
// tenant's connection. An existing connection is replaced: reconnecting
// is how a user recovers from a dead refresh token.
func (s *connectionService) Connect(ctx context.Context, tenantID, authCode, realmID string) (*models.Connection, error) {
	if authCode == "" {
		return nil, errs.NewMissingFieldError("authorization code")
	}
	if realmID == "" {
		return nil, errs.NewMissingFieldError("realm id")
	}

	grant, err := s.tokens.ExchangeAuthCode(ctx, authCode)
	if err != nil {
		return nil, err
	}

	now := s.clockNow()
	conn := &models.Connection{
		TenantID:              tenantID,
		RealmID:               realmID,
		AccessToken:           grant.AccessToken,
		RefreshToken:          grant.RefreshToken,
		AccessTokenExpiresAt:  now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		RefreshTokenCreatedAt: now,
		RefreshTokenExpiresAt: now.Add(refreshLifetime(grant)),
		LastRefreshedAt:       now,
	}
	saved, err := s.store.Save(ctx, conn)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	log.Info("ledger connected", "realm_id", realmID)
	return saved, nil
}

// ResolveUsableToken returns a token good for immediate use. It refreshes
// first when the stored access token is inside the expiry buffer; when
// only the refresh token has aged past the proactive threshold it renews
// in the background and hands back the still-valid token right away.
func (s *connectionService) ResolveUsableToken(ctx context.Context, tenantID string) (dto.ResolvedToken, error) {
	conn, err := s.store.Load(ctx, tenantID)
	if err != nil {
		return dto.ResolvedToken{}, err
	}
	if conn == nil {
		return dto.ResolvedToken{}, errs.NewNotConnectedError()
	}

	now := s.clockNow()
	switch {
	case s.accessTokenStale(conn, now):
		refreshed, err := s.refreshSerialized(ctx, tenantID)
		if err != nil {
			return dto.ResolvedToken{}, err
		}
		return dto.ResolvedToken{AccessToken: refreshed.AccessToken, RealmID: refreshed.RealmID}, nil

	case conn.RefreshTokenAge(now) >= s.policy.ProactiveThreshold:
		s.spawnRefresh(tenantID)
	}

	return dto.ResolvedToken{AccessToken: conn.AccessToken, RealmID: conn.RealmID}, nil
}

// Refresh exchanges the connection's refresh token and persists the
// rotated pair. Not safe for concurrent use on one tenant without the
// serialization ResolveUsableToken and the sweep already provide.
func (s *connectionService) Refresh(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	return s.refreshWithRetry(ctx, conn)
}

// Health reports usability from stored timestamps alone. It never talks
// to the partner and never triggers a refresh, so a status poll cannot
// burn a refresh token.
func (s *connectionService) Health(ctx context.Context, tenantID string) (dto.ConnectionStatus, error) {
	conn, err := s.store.Load(ctx, tenantID)
	if err != nil {
		return dto.ConnectionStatus{}, err
	}
	if conn == nil {
		return dto.ConnectionStatus{Connected: false, NeedsReconnect: true}, nil
	}

	now := s.clockNow()
	refreshDead := !now.Before(conn.RefreshTokenExpiresAt)
	return dto.ConnectionStatus{
		Connected:             true,
		NeedsReconnect:        refreshDead,
		RealmID:               conn.RealmID,
		AccessTokenValid:      now.Before(conn.AccessTokenExpiresAt),
		AccessTokenExpiresAt:  conn.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: conn.RefreshTokenExpiresAt,
		LastRefreshedAt:       conn.LastRefreshedAt,
	}, nil
}

// Disconnect revokes the pair remotely (best effort) and always removes
// the local record.
func (s *connectionService) Disconnect(ctx context.Context, tenantID string) error {
	log := logger.FromContext(ctx)

	conn, err := s.store.Load(ctx, tenantID)
	if err != nil {
		return err
	}
	if conn == nil {
		return errs.NewNotConnectedError()
	}

	if err := s.tokens.RevokeToken(ctx, conn.RefreshToken); err != nil {
		log.Warn("remote token revocation failed", "error", err)
	}

	if _, err := s.store.Delete(ctx, tenantID); err != nil {
		return err
	}
	log.Info("ledger disconnected", "realm_id", conn.RealmID)
	return nil
}

// RunBackgroundRefreshSweep renews aging refresh tokens for tenants that
// have not been active enough to hit the proactive path. Sequential with
// a fixed delay between tenants; per-tenant failures are recorded but
// never halt the sweep.
func (s *connectionService) RunBackgroundRefreshSweep(ctx context.Context) (dto.SweepResult, error) {
	log := logger.FromContext(ctx)
	result := dto.SweepResult{}

	now := s.clockNow()
	cutoff := now.Add(-s.policy.SweepThreshold)
	conns, err := s.store.ListRefreshCreatedBefore(ctx, cutoff)
	if err != nil {
		return result, err
	}
	result.Scanned = len(conns)
	log.Info("refresh sweep started", "candidates", len(conns))

	for i, conn := range conns {
		if i > 0 {
			s.sleep(ctx, s.policy.SweepTenantDelay)
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		now = s.clockNow()
		if now.Sub(conn.LastRefreshedAt) < s.policy.SweepMinSpacing {
			result.Skipped++
			continue
		}
		if !now.Before(conn.RefreshTokenExpiresAt) {
			// Dead token; only a user re-auth can fix it.
			result.Skipped++
			continue
		}

		if _, err := s.refreshSerialized(ctx, conn.TenantID); err != nil {
			var fatal *errs.FatalCredentialError
			isFatal := errors.As(err, &fatal)
			log.Warn("sweep refresh failed", "tenant_id", conn.TenantID, "fatal", isFatal, "error", err)
			result.Failures = append(result.Failures, dto.SweepFailure{
				TenantID: conn.TenantID,
				Fatal:    isFatal,
				Error:    err.Error(),
			})
			continue
		}
		result.Refreshed++
	}

	log.Info("refresh sweep completed", "refreshed", result.Refreshed, "skipped", result.Skipped, "failed", len(result.Failures))
	return result, nil
}

// --- refresh internals ---

// refreshSerialized collapses concurrent refreshes for one tenant into a
// single exchange; late arrivals share the first flight's result. The
// connection is re-read inside the flight so a refresh that just finished
// is observed instead of repeated.
func (s *connectionService) refreshSerialized(ctx context.Context, tenantID string) (*models.Connection, error) {
	v, err, _ := s.flight.Do(tenantID, func() (any, error) {
		conn, err := s.store.Load(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		if conn == nil {
			return nil, errs.NewNotConnectedError()
		}

		now := s.clockNow()
		if !s.accessTokenStale(conn, now) && conn.RefreshTokenAge(now) < s.policy.ProactiveThreshold {
			// A concurrent flight already rotated the pair.
			return conn, nil
		}
		return s.refreshWithRetry(ctx, conn)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Connection), nil
}

// refreshWithRetry performs the exchange with bounded backoff. Fatal
// classifications stop immediately; transient ones retry up to the
// configured attempts, then surface as transient so the caller can try
// again later without treating the connection as dead.
func (s *connectionService) refreshWithRetry(ctx context.Context, conn *models.Connection) (*models.Connection, error) {
	log := logger.FromContext(ctx)

	var lastErr error
	delay := s.policy.BaseDelay
	for attempt := 1; attempt <= s.policy.MaxAttempts; attempt++ {
		grant, err := s.tokens.RefreshToken(ctx, conn.RefreshToken)
		if err == nil {
			return s.persistGrant(ctx, conn, grant)
		}

		var fatal *errs.FatalCredentialError
		if errors.As(err, &fatal) {
			log.Warn("refresh token rejected", "tenant_id", conn.TenantID, "error", err)
			return nil, err
		}

		lastErr = err
		log.Warn("token refresh attempt failed", "tenant_id", conn.TenantID, "attempt", attempt, "error", err)
		if attempt < s.policy.MaxAttempts {
			s.sleep(ctx, delay)
			delay *= 2
		}
	}

	var transient *errs.TransientError
	if errors.As(lastErr, &transient) {
		return nil, lastErr
	}
	return nil, errs.NewTransientError("token refresh exhausted retries: " + lastErr.Error())
}

// persistGrant overwrites the full credential set in one write: tokens
// rotate together or not at all.
func (s *connectionService) persistGrant(ctx context.Context, conn *models.Connection, grant dto.TokenGrant) (*models.Connection, error) {
	now := s.clockNow()
	conn.AccessToken = grant.AccessToken
	conn.RefreshToken = grant.RefreshToken
	conn.AccessTokenExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	conn.RefreshTokenCreatedAt = now
	if grant.RefreshExpiresIn > 0 {
		conn.RefreshTokenExpiresAt = now.Add(time.Duration(grant.RefreshExpiresIn) * time.Second)
	}
	conn.LastRefreshedAt = now

	return s.store.Save(ctx, conn)
}

func refreshLifetime(grant dto.TokenGrant) time.Duration {
	if grant.RefreshExpiresIn > 0 {
		return time.Duration(grant.RefreshExpiresIn) * time.Second
	}
	return defaultRefreshTokenLifetime
}

func (s *connectionService) accessTokenStale(conn *models.Connection, now time.Time) bool {
	return !now.Before(conn.AccessTokenExpiresAt.Add(-s.policy.AccessTokenBuffer))
}

// refreshInBackground is the production spawnRefresh: failure of an
// opportunistic refresh is logged and swallowed, never surfaced to the
// request that triggered it.
func (s *connectionService) refreshInBackground(tenantID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), opportunisticTimeout)
		defer cancel()

		if _, err := s.refreshSerialized(ctx, tenantID); err != nil {
			logger.FromContext(ctx).Warn("opportunistic refresh failed", "tenant_id", tenantID, "error", err)
		}
	}()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
