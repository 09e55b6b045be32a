package cart

import (
	"errors"
	"fmt"
)

// ErrInvalidAction marks actions rejected before any request is sent.
var ErrInvalidAction = errors.New("invalid cart action")

// genericFailure is shown for transport failures, where the server never
// produced a message.
const genericFailure = "An error occurred"

// TransportError is a network, HTTP or decode failure. The request may or
// may not have reached the server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ApplicationError is a well-formed response carrying success:false.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: rejected by server", e.Op)
	}
	return fmt.Sprintf("%s: rejected by server: %s", e.Op, e.Message)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsApplication reports whether err is (or wraps) an ApplicationError.
func IsApplication(err error) bool {
	var ae *ApplicationError
	return errors.As(err, &ae)
}

// UserMessage picks the text to show the shopper for err: the server's
// message when it sent one, fallback for other server rejections, and a
// generic message for transport failures.
func UserMessage(err error, fallback string) string {
	var ae *ApplicationError
	if errors.As(err, &ae) {
		if ae.Message != "" {
			return ae.Message
		}
		return fallback
	}
	if errors.Is(err, ErrInvalidAction) {
		return fallback
	}
	return genericFailure
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrInvalidAction):
		return OutcomeInvalid
	case IsApplication(err):
		return OutcomeApplication
	default:
		return OutcomeTransport
	}
}
