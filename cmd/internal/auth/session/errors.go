package session

import (
	"errors"
	"fmt"
)

var (
	// ErrTokenNotFound is returned when a token is absent, superseded, or expired.
	ErrTokenNotFound = errors.New("token not found")

	// ErrStoreUnavailable marks infrastructure failures of the token store.
	ErrStoreUnavailable = errors.New("token store unavailable")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// StoreError wraps a backend failure. It matches ErrStoreUnavailable and unwraps to the cause.
type StoreError struct {
	Op  string
	Err error
}

func (e StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStoreUnavailable, e.Err)
}

func (e StoreError) Unwrap() []error { return []error{ErrStoreUnavailable, e.Err} }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se StoreError
	if errors.As(err, &se) {
		return err
	}
	return StoreError{Op: op, Err: err}
}
