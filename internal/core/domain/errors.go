package domain

import "errors"

// Storage-level sentinels. Services translate them into apperror values.
var (
	ErrDuplicateReference = errors.New("external reference already recorded")
	ErrInsufficientFunds  = errors.New("insufficient wallet balance")
	ErrReferenceLocked    = errors.New("reference is being processed")
)
