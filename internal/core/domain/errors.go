package domain

import "errors"

var (
	ErrAlreadyExists   = errors.New("user already exists")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmptySecret     = errors.New("signing secret must not be empty")
	ErrInternal        = errors.New("internal server error")
)
