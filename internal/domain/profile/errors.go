package profile

import "errors"

var (
	ErrNotFound           = errors.New("profile not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrBalanceChanged     = errors.New("balance changed during reconciliation")
)
