package transaction

import "errors"

var (
	ErrNotFound         = errors.New("transaction not found")
	ErrNotMatched       = errors.New("transaction not matched")
	ErrAlreadyProcessed = errors.New("transaction already processed")
	ErrDuplicateRef     = errors.New("provider reference already used")
	ErrNotDeposit       = errors.New("transaction is not a deposit")
)
