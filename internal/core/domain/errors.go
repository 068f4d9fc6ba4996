package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrRemoteWrite       = errors.New("remote write failed")
	ErrNegativeStock     = errors.New("stock cannot go negative")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrDrainTimeout      = errors.New("reservation drain timed out")
)
