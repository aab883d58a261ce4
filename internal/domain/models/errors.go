package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidWeights     = errors.New("invalid scoring weights")
	ErrInvalidPriceRange  = errors.New("invalid price range")
	ErrInvalidScore       = errors.New("score out of range")
	ErrInvalidKeywords    = errors.New("invalid keyword set")
	ErrInvalidForecast    = errors.New("invalid forecast")
	ErrNoUsableScenarios  = errors.New("no usable scenario results")
	ErrNoSeedKeywords     = errors.New("no seed keywords")
	ErrUnknownScenario    = errors.New("unknown stress scenario")
	ErrNicheNotFound      = errors.New("niche not found")
	ErrInvalidCompetition = errors.New("invalid competition level")
	ErrInvalidListing     = errors.New("invalid listing request")
)

// ValidationError describes a rejected field. It unwraps to one of the sentinels above.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(sentinel error, field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...), Err: sentinel}
}

// IsValidation reports whether err is a configuration or input validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
