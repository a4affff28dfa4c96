package domain

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrInvalidData  = errors.New("invalid data provided for account operations")
	ErrUpstream     = errors.New("upstream request failed")
	ErrUnhandled    = errors.New("unexpected error")
)
