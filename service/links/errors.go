package links

import "errors"

var (
	// ErrNotFound is returned when no link exists for an identifier.
	ErrNotFound = errors.New("payment link not found")

	// ErrUnsupportedToken is returned for any token other than SOL or USDC.
	ErrUnsupportedToken = errors.New("token not supported")

	// ErrBadRequest covers malformed build requests, such as a missing payer.
	ErrBadRequest = errors.New("invalid request")

	// ErrInsufficientBalance is returned by the strict balance check.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPaymentMismatch is returned when a landed transaction does not pay a link.
	ErrPaymentMismatch = errors.New("transaction does not pay the link")
)

// ValidationError reports a missing or malformed field of a create request.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
