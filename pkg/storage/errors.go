package storage

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure modes a Database can surface.
type ErrorKind int

const (
	ErrOther ErrorKind = iota
	ErrNotFound
	ErrTransaction
	ErrConnection
	ErrSerialization
)

// StorageError is the only error type a Database implementation, or the
// mediator, is allowed to return.
type StorageError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *StorageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotFoundf builds a StorageError of kind NotFound.
func NotFoundf(format string, args ...any) *StorageError {
	return &StorageError{Kind: ErrNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Transactionf builds a StorageError of kind Transaction.
func Transactionf(format string, args ...any) *StorageError {
	return &StorageError{Kind: ErrTransaction, Msg: fmt.Sprintf(format, args...)}
}

// Connectionf wraps err as a StorageError of kind Connection.
func Connectionf(err error, format string, args ...any) *StorageError {
	return &StorageError{Kind: ErrConnection, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Otherf wraps err as a StorageError of kind Other.
func Otherf(err error, format string, args ...any) *StorageError {
	return &StorageError{Kind: ErrOther, Msg: fmt.Sprintf(format, args...), Err: err}
}

// Serializationf wraps err as a StorageError of kind SerializationError.
func Serializationf(err error, format string, args ...any) *StorageError {
	return &StorageError{Kind: ErrSerialization, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsNotFound reports whether err is (or wraps) a NotFound StorageError.
func IsNotFound(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Kind == ErrNotFound
}
