package ice

import (
	"errors"
	"fmt"
)

const expectedPattern = "protocol:[username:password@]host:port (protocol one of stun, turn, turns)"

var (
	ErrUnknownProtocol     = errors.New("unknown protocol")
	ErrMissingHostPort     = errors.New("missing host:port")
	ErrMalformedDescriptor = errors.New("malformed descriptor")
)

// FormatError is returned when an ICE server descriptor does not match the
// expected grammar. It is a configuration error and is never retried.
type FormatError struct {
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid ICE server %q: %v, expected %s", e.Input, e.Err, expectedPattern)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func formatError(input string, err error) *FormatError {
	return &FormatError{Input: input, Err: err}
}
