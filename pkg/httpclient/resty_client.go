package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/http/httpguts"
)

const userAgentHeader = "User-Agent"

// Methods accepted by RestyTransport.
var supportedMethods = map[string]struct{}{
	http.MethodGet:     {},
	http.MethodPost:    {},
	http.MethodPut:     {},
	http.MethodPatch:   {},
	http.MethodDelete:  {},
	http.MethodHead:    {},
	http.MethodOptions: {},
}

// RestyOptions configures a RestyTransport.
type RestyOptions struct {
	Address        string // host:port
	Scheme         string // http or https, defaults to http
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// RestyTransport adapts resty.Client to the Transport interface.
type RestyTransport struct {
	client  *resty.Client
	baseURL string
}

// NewRestyTransport creates a transport bound to a single host:port endpoint.
func NewRestyTransport(opts RestyOptions) (*RestyTransport, error) {
	addr := strings.TrimSpace(opts.Address)
	if addr == "" {
		return nil, fmt.Errorf("endpoint address is empty")
	}
	scheme := strings.ToLower(strings.TrimSpace(opts.Scheme))
	if scheme == "" {
		scheme = "http"
	}
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", opts.Scheme)
	}

	return &RestyTransport{
		client:  newRestyBaseClient(opts.ConnectTimeout, opts.RequestTimeout),
		baseURL: scheme + "://" + addr,
	}, nil
}

// newRestyBaseClient creates a resty.Client with separate dial and overall request timeouts.
func newRestyBaseClient(connectTimeout, requestTimeout time.Duration) *resty.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	c := resty.New()
	c.SetTransport(transport)
	c.SetTimeout(requestTimeout)
	c.SetRetryCount(0)
	return c
}

// Call performs one HTTP exchange. It never retries.
func (r *RestyTransport) Call(ctx context.Context, method, path string, headers Headers, payload []byte) (Response, error) {
	target, err := r.resolve(method, path, headers)
	if err != nil {
		return nil, err
	}

	req := r.client.R().SetContext(ctx)
	for _, h := range headers {
		if strings.EqualFold(h.Key, userAgentHeader) {
			continue
		}
		req.Header.Add(h.Key, h.Value)
	}
	// net/http writes only the first User-Agent value, so every value goes out on one line.
	if agents := headers.Values(userAgentHeader); len(agents) > 0 {
		req.Header.Set(userAgentHeader, strings.Join(agents, " "))
	}
	if len(payload) > 0 {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, target)
	if err != nil {
		if isMalformedResponse(err) {
			return nil, &MalformedRequestError{Reason: "response rejected", Err: err}
		}
		return nil, &TransportFailure{Err: err}
	}
	return &restyResponseAdapter{resp: resp}, nil
}

// resolve validates the request parts the transport owns and returns the absolute URL.
func (r *RestyTransport) resolve(method, path string, headers Headers) (string, error) {
	if _, ok := supportedMethods[method]; !ok {
		return "", &MalformedRequestError{Reason: fmt.Sprintf("unsupported method %q", method)}
	}
	for _, h := range headers {
		if !httpguts.ValidHeaderFieldName(h.Key) {
			return "", &MalformedRequestError{Reason: fmt.Sprintf("invalid header name %q", h.Key)}
		}
		if !httpguts.ValidHeaderFieldValue(h.Value) {
			return "", &MalformedRequestError{Reason: fmt.Sprintf("invalid value for header %q", h.Key)}
		}
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", &MalformedRequestError{Reason: "invalid path", Err: err}
	}
	if ref.IsAbs() || ref.Host != "" {
		return "", &MalformedRequestError{Reason: fmt.Sprintf("path %q must not carry a host", path)}
	}
	return r.baseURL + ref.String(), nil
}

// Close releases idle connections held by the underlying client.
func (r *RestyTransport) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	r.client.GetClient().CloseIdleConnections()
	return nil
}

// net/http reports unparsable responses only through error text, wrapped as
// "transport connection broken: malformed HTTP ...". A connection that breaks for any
// other reason (EOF, reset) carries the same wrapper and stays a transport failure.
var malformedResponsePhrases = []string{
	"malformed HTTP",        // status line, version, response framing
	"malformed MIME header", // header block, from net/textproto
}

func isMalformedResponse(err error) bool {
	msg := err.Error()
	for _, phrase := range malformedResponsePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

// Body returns the response body, or the status line when the server sent none.
func (r *restyResponseAdapter) Body() []byte {
	if body := r.resp.Body(); len(body) > 0 {
		return body
	}
	return []byte(r.resp.Status())
}

func (r *restyResponseAdapter) StatusCode() int { return r.resp.StatusCode() }
