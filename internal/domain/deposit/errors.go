package deposit

import "errors"

var (
	ErrInvalidSignature      = errors.New("invalid signature")
	ErrUntrustedSource       = errors.New("webhook could not be confirmed with provider")
	ErrNotConfigured         = errors.New("paystack secret key is not configured")
	ErrTransactionNotMatched = errors.New("transaction not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrForbidden             = errors.New("transaction belongs to another user")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNotDeposit            = errors.New("transaction is not a deposit")
	ErrAlreadyProcessed      = errors.New("transaction already processed")
	ErrUnderpaid             = errors.New("provider reports less than the deposit amount")
)
