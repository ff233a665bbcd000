package qboclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
)

// All inspection of partner error text and codes lives in this file so
// call sites can branch on error types instead of string-matching.

// classifyAPIFailure maps a non-2xx ledger API response onto the error
// taxonomy. Rate limiting and server faults are transient; everything
// else is a ledger rejection, with authentication flagged separately.
func classifyAPIFailure(statusCode int, body []byte) error {
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return errs.NewTransientError(fmt.Sprintf("ledger returned %d", statusCode))
	}

	message := fmt.Sprintf("ledger returned %d", statusCode)
	code := ""
	var f fault
	if err := json.Unmarshal(body, &f); err == nil && len(f.Fault.Error) > 0 {
		first := f.Fault.Error[0]
		message = first.Message
		if first.Detail != "" {
			message = message + ": " + first.Detail
		}
		code = first.Code
	}

	auth := statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden
	return errs.NewLedgerError(message, code, statusCode, auth)
}

// classifyTokenFailure decides whether a failed token-endpoint exchange is
// fatal (refresh token dead, user must reconnect) or transient. Anything
// unrecognized counts as transient so a partner hiccup never strands a
// recoverable connection.
func classifyTokenFailure(statusCode int, body []byte) error {
	if statusCode == http.StatusUnauthorized {
		return errs.NewFatalCredentialError("token endpoint rejected client credentials")
	}

	var te tokenError
	if err := json.Unmarshal(body, &te); err == nil && te.Error != "" {
		if te.Error == "invalid_grant" || isReauthorizeHint(te.ErrorDescription) {
			msg := "refresh token is no longer valid"
			if te.ErrorDescription != "" {
				msg = msg + ": " + te.ErrorDescription
			}
			return errs.NewFatalCredentialError(msg)
		}
	}

	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return errs.NewTransientError(fmt.Sprintf("token endpoint returned %d", statusCode))
	}
	return errs.NewTransientError(fmt.Sprintf("token endpoint returned %d: %s", statusCode, strings.TrimSpace(string(body))))
}

func isReauthorizeHint(description string) bool {
	d := strings.ToLower(description)
	return strings.Contains(d, "reauthorize") || strings.Contains(d, "token expired") || strings.Contains(d, "token invalid")
}
