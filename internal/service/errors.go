package service

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// ValidationError reports malformed input caught before anything is
// persisted. Err aggregates every failed check so a client can fix all of
// them in one round trip.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func validationErr(problems *multierror.Error) error {
	if problems.ErrorOrNil() == nil {
		return nil
	}
	return &ValidationError{Err: problems}
}
