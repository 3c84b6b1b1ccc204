package httpclient

import (
	"context"
	"strings"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
}

// Transport performs a single HTTP exchange against a fixed endpoint.
// Implementations return *MalformedRequestError or *TransportFailure instead of a response
// when the exchange could not produce a status code.
type Transport interface {
	Call(ctx context.Context, method, path string, headers Headers, payload []byte) (Response, error)
	Close() error
}

// Header is a single header entry.
type Header struct {
	Key   string
	Value string
}

// Headers is an ordered, multi-valued header list. Duplicate keys are kept as separate entries.
type Headers []Header

// Add appends an entry without touching existing entries for the same key.
func (h *Headers) Add(key, value string) {
	*h = append(*h, Header{Key: key, Value: value})
}

// Values returns every value for key, matched case-insensitively, in insertion order.
func (h Headers) Values(key string) []string {
	var out []string
	for _, e := range h {
		if strings.EqualFold(e.Key, key) {
			out = append(out, e.Value)
		}
	}
	return out
}

// Len returns the number of entries.
func (h Headers) Len() int { return len(h) }

// Clone returns an independent copy.
func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	copy(out, h)
	return out
}
