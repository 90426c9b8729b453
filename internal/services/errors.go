package services

import "errors"

// Analysis service errors
var (
	ErrNoFiles       = errors.New("no statement files supplied")
	ErrTooManyFiles  = errors.New("too many statement files in one request")
	ErrInvalidOption = errors.New("invalid analysis option")
)
