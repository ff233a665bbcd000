package response

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/GregMSThompson/receipts-backend/internal/errs"
	"github.com/GregMSThompson/receipts-backend/pkg/logger"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (h *responseHandler) WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
	}); err != nil {
		// Use context logger if encoding fails
		log := logger.FromContext(r.Context())
		log.Error("failed to encode error response", "error", err, "status", status, "code", code)
	}
}

// HandleError is the single place the error taxonomy becomes HTTP. The
// needs_reconnect code is what the UI keys on to show the reconnect
// prompt instead of a generic failure.
func (h *responseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	switch e := err.(type) {
	case *errs.NotFoundError:
		log.Warn("resource not found", "error", e.Message)
		h.WriteError(w, r, http.StatusNotFound, "not_found", e.Message)

	case *errs.AlreadyExistsError:
		log.Warn("resource already exists", "error", e.Message)
		h.WriteError(w, r, http.StatusConflict, "already_exists", e.Message)

	case *errs.ValidationError:
		log.Warn("validation failed", "error", e.Message)
		h.WriteError(w, r, http.StatusBadRequest, "invalid_input", e.Message)

	case *errs.NotConnectedError:
		log.Warn("tenant not connected", "error", e.Message)
		h.WriteError(w, r, http.StatusConflict, "needs_reconnect",
			"No ledger connection; connect your accounting provider")

	case *errs.FatalCredentialError:
		log.Warn("ledger credentials dead", "error", e.Message)
		h.WriteError(w, r, http.StatusConflict, "needs_reconnect",
			"Ledger authorization expired; reconnect your accounting provider")

	case *errs.TransientError:
		log.Warn("transient partner failure", "error", e.Message)
		h.WriteError(w, r, http.StatusServiceUnavailable, "service_unavailable",
			"The accounting provider is unavailable; try again shortly")

	case *errs.LedgerError:
		log.Error("ledger rejected request",
			"status", e.StatusCode,
			"partner_code", e.Code,
			"authentication", e.Authentication,
			"error", e.Message)
		if e.Authentication {
			h.WriteError(w, r, http.StatusConflict, "needs_reconnect",
				"Ledger authorization was rejected; reconnect your accounting provider")
			return
		}
		h.WriteError(w, r, http.StatusBadGateway, "ledger_rejected", e.Message)

	case *errs.PaymentCreationFailedError:
		log.Error("bill payment failed",
			"bill_id", e.BillID,
			"compensated", e.Compensated,
			"error", e.Message)
		h.WriteError(w, r, http.StatusBadGateway, "payment_creation_failed",
			"The bill payment could not be created; nothing was published")

	default:
		log.Error("unexpected error",
			"error", err,
			"type", fmt.Sprintf("%T", err))
		h.WriteError(w, r, http.StatusInternalServerError, "internal_error",
			"An unexpected error occurred")
	}
}
