package reward

import "errors"

var (
	ErrTierNotFound      = errors.New("reward tier not found")
	ErrAlreadyClaimed    = errors.New("reward already claimed today")
	ErrThresholdNotMet   = errors.New("daily deposit threshold not reached")
	ErrInvalidTierAmount = errors.New("tier amounts must be positive")
)
