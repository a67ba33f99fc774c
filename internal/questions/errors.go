package questions

import "errors"

var (
	ErrNotFound     = errors.New("question not found")
	ErrInvalidInput = errors.New("invalid input")
)
