package sender

import "fmt"

// Kind tags the terminal result of a Send call.
type Kind int

const (
	KindSuccess Kind = iota + 1
	KindClientProtocol
	KindServerOrAuth
	KindTransport
	// KindUnclassified covers terminal codes outside [200,399], 400 and >=401 (1xx, zero, negative).
	// It is returned without an error.
	KindUnclassified
	// KindAborted means the context ended during a backoff wait.
	KindAborted
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindClientProtocol:
		return "client_protocol_error"
	case KindServerOrAuth:
		return "server_or_auth_error"
	case KindTransport:
		return "transport_error"
	case KindUnclassified:
		return "unclassified"
	case KindAborted:
		return "aborted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the single classified result of a Send call.
type Outcome struct {
	Kind     Kind
	Code     int    // status code of the last response, 0 when the last attempt had no response
	Body     string // response body, or the diagnostic of a malformed-request signal
	Message  string // transport or abort diagnostic
	Attempts int
}

// Err returns the typed error for failing kinds and nil for success and unclassified.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindClientProtocol:
		return &ClientProtocolError{Body: o.Body}
	case KindServerOrAuth:
		return &ServerOrAuthError{Code: o.Code, Body: o.Body}
	case KindTransport:
		return &TransportError{Message: o.Message}
	default:
		return nil
	}
}

// ClientProtocolError means the request was malformed or the endpoint kept answering 400.
type ClientProtocolError struct {
	Body string
}

func (e *ClientProtocolError) Error() string {
	return "bad request: " + summarizeBody(e.Body)
}

// ServerOrAuthError carries a terminal status code >= 401.
type ServerOrAuthError struct {
	Code int
	Body string
}

func (e *ServerOrAuthError) Error() string {
	return fmt.Sprintf("http response status %d: %s", e.Code, summarizeBody(e.Body))
}

// TransportError means connectivity or timeouts failed every attempt.
type TransportError struct {
	Message string
}

func (e *TransportError) Error() string { return e.Message }
