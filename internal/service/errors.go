package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("no active session")
	ErrValidation      = errors.New("validation failed")
)

func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}
