package service

import "github.com/pkg/errors"

// Error taxonomy crossed by every coordinator. Chain-side failures keep
// their own kinds (chain.ErrUnavailable, chain.ErrTxRejected,
// chain.ErrTxTimeout) and pass through unwrapped.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrDuplicateReceipt  = errors.New("receipt already recorded for this voter and election")
	ErrAlreadyRegistered = errors.New("already registered")
	ErrAlreadyFinalized  = errors.New("election already finalized")
)
