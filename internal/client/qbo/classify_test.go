package qboclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

func TestClassifyAPIFailure(t *testing.T) {
	t.Run("rate limit is transient", func(t *testing.T) {
		err := classifyAPIFailure(http.StatusTooManyRequests, nil)
		var transient *errs.TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("expected TransientError, got %v", err)
		}
	})

	t.Run("server fault is transient", func(t *testing.T) {
		err := classifyAPIFailure(http.StatusBadGateway, nil)
		var transient *errs.TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("expected TransientError, got %v", err)
		}
	})

	t.Run("validation fault carries code and detail", func(t *testing.T) {
		body := []byte(`{"Fault":{"Error":[{"Message":"Invalid Reference Id","Detail":"Accounts element id 99 not found","code":"2500"}],"type":"ValidationFault"}}`)
		err := classifyAPIFailure(http.StatusBadRequest, body)
		var ledgerErr *errs.LedgerError
		if !errors.As(err, &ledgerErr) {
			t.Fatalf("expected LedgerError, got %v", err)
		}
		if ledgerErr.Code != "2500" || ledgerErr.StatusCode != http.StatusBadRequest || ledgerErr.Authentication {
			t.Fatalf("unexpected classification: %#v", ledgerErr)
		}
	})

	t.Run("401 flags authentication", func(t *testing.T) {
		err := classifyAPIFailure(http.StatusUnauthorized, nil)
		var ledgerErr *errs.LedgerError
		if !errors.As(err, &ledgerErr) || !ledgerErr.Authentication {
			t.Fatalf("expected authentication LedgerError, got %v", err)
		}
	})
}

func TestClassifyTokenFailure(t *testing.T) {
	t.Run("invalid_grant is fatal", func(t *testing.T) {
		body := []byte(`{"error":"invalid_grant"}`)
		err := classifyTokenFailure(http.StatusBadRequest, body)
		var fatal *errs.FatalCredentialError
		if !errors.As(err, &fatal) {
			t.Fatalf("expected FatalCredentialError, got %v", err)
		}
	})

	t.Run("reauthorize hint is fatal", func(t *testing.T) {
		body := []byte(`{"error":"invalid_request","error_description":"Token expired, please reauthorize"}`)
		err := classifyTokenFailure(http.StatusBadRequest, body)
		var fatal *errs.FatalCredentialError
		if !errors.As(err, &fatal) {
			t.Fatalf("expected FatalCredentialError, got %v", err)
		}
	})

	t.Run("client credential rejection is fatal", func(t *testing.T) {
		err := classifyTokenFailure(http.StatusUnauthorized, nil)
		var fatal *errs.FatalCredentialError
		if !errors.As(err, &fatal) {
			t.Fatalf("expected FatalCredentialError, got %v", err)
		}
	})

	t.Run("server errors are transient", func(t *testing.T) {
		err := classifyTokenFailure(http.StatusServiceUnavailable, nil)
		var transient *errs.TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("expected TransientError, got %v", err)
		}
	})

	t.Run("unrecognized failure stays transient", func(t *testing.T) {
		err := classifyTokenFailure(http.StatusBadRequest, []byte(`{"error":"invalid_request"}`))
		var transient *errs.TransientError
		if !errors.As(err, &transient) {
			t.Fatalf("unknown failures must not strand the connection, got %v", err)
		}
	})
}

func TestEscapeQueryValue(t *testing.T) {
	if got := escapeQueryValue("O'Reilly's"); got != `O\'Reilly\'s` {
		t.Fatalf("unexpected escaping: %q", got)
	}
}
