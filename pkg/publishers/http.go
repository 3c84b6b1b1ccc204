package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/Adda-Baaj/north-relay/pkg/httpclient"
	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

// httpPublisher delivers events through a retrying sender bound to the sink's host.
type httpPublisher struct {
	id      string
	method  string
	path    string
	headers httpclient.Headers
	sender  *sender.Sender
	typ     string
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	target, err := url.Parse(cfg.HTTP.URL)
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("publisher %q has invalid http.url %q", cfg.ID, cfg.HTTP.URL)
	}
	mode, err := sender.ParseAuthMode(cfg.HTTP.AuthMode)
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	s, err := sender.New(sender.Config{
		Address:          target.Host,
		Scheme:           target.Scheme,
		ConnectTimeout:   timeout,
		RequestTimeout:   timeout,
		RetryInterval:    time.Duration(cfg.HTTP.RetryIntervalSeconds) * time.Second,
		MaxAttempts:      cfg.HTTP.MaxAttempts,
		AuthMode:         mode,
		BasicCredentials: cfg.HTTP.BasicCredentials,
	}, sender.WithLogger(ensureLogger(log)))
	if err != nil {
		return nil, fmt.Errorf("publisher %q: %w", cfg.ID, err)
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	if target.RawQuery != "" {
		path += "?" + target.RawQuery
	}

	return &httpPublisher{
		id:      cfg.ID,
		typ:     TypeHTTP,
		method:  cfg.HTTP.Method,
		path:    path,
		headers: sortedHeaders(cfg.HTTP.Headers),
		sender:  s,
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return h.typ }

func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	out, err := h.sender.Send(ctx, sender.Request{
		Method:  h.method,
		Path:    h.path,
		Headers: h.headers,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	if out.Kind != sender.KindSuccess {
		return fmt.Errorf("http response status %d", out.Code)
	}
	h.log.DebugObj("http publisher delivered event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"code":         out.Code,
		"attempts":     out.Attempts,
	})
	return nil
}

// Close releases the sender's transport.
func (h *httpPublisher) Close() error { return h.sender.Close() }

// sortedHeaders turns the configured map into a stable header list.
func sortedHeaders(headers map[string]string) httpclient.Headers {
	if len(headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(httpclient.Headers, 0, len(keys))
	for _, k := range keys {
		out.Add(k, headers[k])
	}
	return out
}
