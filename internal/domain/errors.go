package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrRateLimited         = errors.New("rate limited")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrDuplicateWager      = errors.New("wager already in cart")
	ErrNegativeStake       = errors.New("stake must not be negative")
	ErrNotEnoughSelected   = errors.New("at least two wagers must be selected")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrUnfundedWager       = errors.New("every individual wager needs a stake")
	ErrUnfundedCombination = errors.New("every combination needs a stake")
	ErrNoContact           = errors.New("destination contact not configured")
)
