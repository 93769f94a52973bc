// Package kverrors defines the storage contract's error kinds:
// io-failure, routing-failure and malformed-request. Not-found is
// signaled through the storage contract's found bool return rather
// than an error, so it has no sentinel here. Kinds are sentinel errors
// that callers test for with errors.Is; wrapping and stack-capture is
// done by github.com/cockroachdb/errors.
package kverrors

import "github.com/cockroachdb/errors"

// Sentinel kinds. Wrap a cause with errors.Mark against one of these so
// that errors.Is(err, ErrIOFailure) etc. keeps working through wrapping.
var (
	ErrIOFailure        = errors.New("io failure")
	ErrRoutingFailure   = errors.New("routing failure")
	ErrMalformedRequest = errors.New("malformed request")
)

// WrapIO marks cause as an io-failure, tagging it with the operation that
// failed (open, read, write, sync, truncate, ...). Returns nil if cause
// is nil so call sites can write `return kverrors.WrapIO("write", err)`
// unconditionally.
func WrapIO(op string, cause error) error {
	if cause == nil {
		return nil
	}
	return errors.Mark(errors.Wrapf(cause, "%s", op), ErrIOFailure)
}

// Malformed marks msg as a malformed-request error.
func Malformed(msg string) error {
	return errors.Mark(errors.New(msg), ErrMalformedRequest)
}

// RoutingFailure marks msg as a routing-failure error. Per the storage
// contract's error design this kind should be unreachable since the
// shard hash is total; callers treat it as a programming bug.
func RoutingFailure(msg string) error {
	return errors.Mark(errors.New(msg), ErrRoutingFailure)
}

func IsIOFailure(err error) bool      { return errors.Is(err, ErrIOFailure) }
func IsRoutingFailure(err error) bool { return errors.Is(err, ErrRoutingFailure) }
func IsMalformed(err error) bool      { return errors.Is(err, ErrMalformedRequest) }
