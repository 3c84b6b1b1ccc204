package httpclient

import "fmt"

// MalformedRequestError signals that the request (or the response framing) was rejected as malformed
// before a usable status code was obtained.
type MalformedRequestError struct {
	Reason string
	Err    error
}

func (e *MalformedRequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed request: %s: %v", e.Reason, e.Err)
	}
	return "malformed request: " + e.Reason
}

func (e *MalformedRequestError) Unwrap() error { return e.Err }

// TransportFailure signals a connectivity or timeout failure.
type TransportFailure struct {
	Err error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("failed to send data: %v", e.Err)
}

func (e *TransportFailure) Unwrap() error { return e.Err }
