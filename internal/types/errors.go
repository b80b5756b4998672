// internal/types/errors.go
package types

import "errors"

// Validation errors are returned before any state mutation; an operation that
// fails leaves token, holder and ledger state untouched.
var (
	ErrInvalidCurveParameters = errors.New("invalid curve parameters")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrAccountFrozen          = errors.New("account is frozen")
	ErrAlreadyFrozen          = errors.New("account is already frozen")
	ErrNotFrozen              = errors.New("account is not frozen")
	ErrArithmeticOverflow     = errors.New("arithmetic overflow")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrCombinedFeeTooHigh     = errors.New("combined fee exceeds cap")
	ErrClaimNotYetAvailable   = errors.New("claim not yet available")
	ErrTokenNotFound          = errors.New("token not found")
	ErrTokenExists            = errors.New("token already exists")
	ErrInvalidTokenName       = errors.New("invalid token name")
	ErrInvalidTokenSymbol     = errors.New("invalid token symbol")
	ErrInvalidWallet          = errors.New("invalid wallet address")
)
