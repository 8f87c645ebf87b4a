package tasklog

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest         = errors.New("bad request")
	ErrStoreUninitialized = errors.New("store has not been initialized")
	ErrStoreRead          = errors.New("store read failed")
	ErrStoreWrite         = errors.New("store write failed")
)

// StoreError carries the failing operation, its class (ErrStoreRead or
// ErrStoreWrite) and the cause reported by the store. errors.Is matches both
// the class and the cause.
type StoreError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StoreError) Unwrap() []error { return []error{e.Kind, e.Err} }

func readError(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreRead, Err: err}
}

func writeError(op string, err error) error {
	return &StoreError{Op: op, Kind: ErrStoreWrite, Err: err}
}

func IsErrBadRequest(err error) bool         { return errors.Is(err, ErrBadRequest) }
func IsErrStoreUninitialized(err error) bool { return errors.Is(err, ErrStoreUninitialized) }
func IsErrStoreRead(err error) bool          { return errors.Is(err, ErrStoreRead) }
func IsErrStoreWrite(err error) bool         { return errors.Is(err, ErrStoreWrite) }
