package market

import "errors"

var (
	ErrUnknownOwner       = errors.New("owner does not exist")
	ErrInsufficientFunds  = errors.New("owner has insufficient cash for the bid")
	ErrInsufficientShares = errors.New("owner has insufficient shares for the ask")
	ErrOrderNotFound      = errors.New("order is not active in the book")
	ErrInvalidParam       = errors.New("the param is invalid")
	ErrTimeout            = errors.New("timeout")
	ErrSequenceGap        = errors.New("gap detected in event sequence")
	ErrShutdown           = errors.New("dispatcher is shutting down")
)
