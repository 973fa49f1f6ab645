package ledger

import "errors"

var (
	ErrAlreadyExists  = errors.New("player already exists")
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidPlayer  = errors.New("invalid player id")
	ErrInvalidOrder   = errors.New("invalid order")
)
