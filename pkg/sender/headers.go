package sender

import "github.com/Adda-Baaj/north-relay/pkg/httpclient"

const (
	// UserAgent identifies the relay to the management endpoint.
	UserAgent       = "north-relay http sender"
	contentTypeJSON = "application/json"
)

// RequestBuilder composes the header set sent with every attempt.
type RequestBuilder struct {
	authMode    AuthMode
	credentials string
}

// NewRequestBuilder returns a builder for the given auth settings.
func NewRequestBuilder(mode AuthMode, credentials string) RequestBuilder {
	return RequestBuilder{authMode: mode, credentials: credentials}
}

// Build returns the defaults followed by the caller headers and, for basic auth, the Authorization header.
// Caller entries are appended as-is, so duplicates of the defaults are transmitted too.
func (b RequestBuilder) Build(caller httpclient.Headers) httpclient.Headers {
	out := make(httpclient.Headers, 0, len(caller)+3)
	out.Add("User-Agent", UserAgent)
	out.Add("Content-Type", contentTypeJSON)
	out = append(out, caller...)
	if b.authMode == AuthBasic {
		out.Add("Authorization", "Basic "+b.credentials)
	}
	return out
}
