package qboclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

// ExchangeAuthCode trades an authorization code for the initial token
// pair during connect.
func (a *Adapter) ExchangeAuthCode(ctx context.Context, code string) (dto.TokenGrant, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {a.redirectURI},
	}
	return a.tokenRequest(ctx, form)
}

// RefreshToken exchanges a refresh token for a new access/refresh pair.
// The partner rotates the refresh token on every use, so the returned
// pair must replace both stored tokens together.
func (a *Adapter) RefreshToken(ctx context.Context, refreshToken string) (dto.TokenGrant, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return a.tokenRequest(ctx, form)
}

// RevokeToken invalidates the pair remotely. Best-effort: disconnect
// removes the local record regardless of this call's outcome.
func (a *Adapter) RevokeToken(ctx context.Context, refreshToken string) error {
	body, err := json.Marshal(struct {
		Token string `json:"token"`
	}{Token: refreshToken})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return errs.NewTransientError("revoke request failed: " + err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		return classifyTokenFailure(resp.StatusCode, raw)
	}
	return nil
}

func (a *Adapter) tokenRequest(ctx context.Context, form url.Values) (dto.TokenGrant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return dto.TokenGrant{}, err
	}
	req.SetBasicAuth(a.clientID, a.clientSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.http.Do(req)
	if err != nil {
		return dto.TokenGrant{}, errs.NewTransientError("token request failed: " + err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return dto.TokenGrant{}, errs.NewTransientError("token response read failed: " + err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return dto.TokenGrant{}, classifyTokenFailure(resp.StatusCode, raw)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return dto.TokenGrant{}, errs.NewTransientError("token response decode failed: " + err.Error())
	}
	if tr.AccessToken == "" || tr.RefreshToken == "" {
		return dto.TokenGrant{}, errs.NewTransientError("token response missing tokens")
	}

	return dto.TokenGrant{
		AccessToken:      tr.AccessToken,
		RefreshToken:     tr.RefreshToken,
		ExpiresIn:        tr.ExpiresIn,
		RefreshExpiresIn: tr.XRefreshTokenExpires,
	}, nil
}
