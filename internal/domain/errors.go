package domain

import "errors"

var (
	ErrInvalidOrderBook = errors.New("invalid order book")
	ErrInvalidAmount    = errors.New("invalid target amount")
	ErrEmptyPoolSet     = errors.New("empty pool set")
	ErrInvalidCapital   = errors.New("invalid capital")
	ErrInvalidPool      = errors.New("invalid pool")
	ErrNumericOverflow  = errors.New("numeric overflow")
)
