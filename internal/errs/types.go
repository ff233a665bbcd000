package errs

type ErrorMessage struct {
	Message string
}

func (e *ErrorMessage) Error() string { return e.Message }

// NotFoundError / AlreadyExistsError / ValidationError cover ordinary
// request handling. The remaining types are the publishing core's
// taxonomy: callers branch on type, never on message text.

type NotFoundError struct {
	ErrorMessage
}

type AlreadyExistsError struct {
	ErrorMessage
}

type ValidationError struct {
	ErrorMessage
}

// NotConnectedError: the tenant has no ledger connection, or resolution
// could not produce a usable token.
type NotConnectedError struct {
	ErrorMessage
}

// FatalCredentialError: the refresh token is dead; only a user re-auth can
// recover. Never retried.
type FatalCredentialError struct {
	ErrorMessage
}

// TransientError: rate limiting, 5xx, resets, timeouts. Retry-worthy and
// expected to self-heal.
type TransientError struct {
	ErrorMessage
}

// LedgerError: the partner rejected an API call. Authentication is kept
// distinct so callers can tell a bad token from a bad request.
type LedgerError struct {
	ErrorMessage
	StatusCode     int
	Code           string // partner fault code when present
	Authentication bool
}

// PaymentCreationFailedError: the bill was created but the payment step
// failed; the bill was compensated (or deletion was attempted).
type PaymentCreationFailedError struct {
	ErrorMessage
	BillID      string
	Compensated bool
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewAlreadyExistsError(message string) *AlreadyExistsError {
	return &AlreadyExistsError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewMissingFieldError(field string) *ValidationError {
	return &ValidationError{
		ErrorMessage: ErrorMessage{Message: field + " is required"},
	}
}

func NewNotConnectedError() *NotConnectedError {
	return &NotConnectedError{
		ErrorMessage: ErrorMessage{Message: "no ledger connection for tenant"},
	}
}

func NewFatalCredentialError(message string) *FatalCredentialError {
	return &FatalCredentialError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewTransientError(message string) *TransientError {
	return &TransientError{
		ErrorMessage: ErrorMessage{Message: message},
	}
}

func NewLedgerError(message, code string, statusCode int, authentication bool) *LedgerError {
	return &LedgerError{
		ErrorMessage:   ErrorMessage{Message: message},
		StatusCode:     statusCode,
		Code:           code,
		Authentication: authentication,
	}
}

func NewPaymentCreationFailedError(billID string, compensated bool) *PaymentCreationFailedError {
	return &PaymentCreationFailedError{
		ErrorMessage: ErrorMessage{Message: "bill payment creation failed"},
		BillID:       billID,
		Compensated:  compensated,
	}
}
