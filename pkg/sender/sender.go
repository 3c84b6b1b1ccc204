package sender

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Adda-Baaj/north-relay/pkg/httpclient"
)

// Request is one logical call against the endpoint.
type Request struct {
	Method  string
	Path    string
	Headers httpclient.Headers
	Payload []byte
}

// Stats is a snapshot of the sender counters.
type Stats struct {
	Sends                int64 `json:"sends"`
	Attempts             int64 `json:"attempts"`
	Retries              int64 `json:"retries"`
	Successes            int64 `json:"successes"`
	ClientProtocolErrors int64 `json:"client_protocol_errors"`
	ServerOrAuthErrors   int64 `json:"server_or_auth_errors"`
	TransportErrors      int64 `json:"transport_errors"`
	Unclassified         int64 `json:"unclassified"`
	Aborted              int64 `json:"aborted"`
}

type counters struct {
	sends, attempts, retries atomic.Int64
	byKind                   [KindAborted + 1]atomic.Int64
}

// Sender drives the attempt/backoff loop for requests against one endpoint.
// It owns its transport; Close releases it. Concurrent Send calls are safe when the
// transport is, which holds for the default resty transport.
type Sender struct {
	cfg       Config
	builder   RequestBuilder
	transport httpclient.Transport
	sleep     SleepFunc
	log       Logger
	stats     counters
	closeOnce sync.Once
	closeErr  error
}

// Option customizes a Sender.
type Option func(*Sender)

// WithTransport replaces the default resty transport. The sender takes ownership of t.
func WithTransport(t httpclient.Transport) Option {
	return func(s *Sender) { s.transport = t }
}

// WithLogger sets the diagnostics logger.
func WithLogger(log Logger) Option {
	return func(s *Sender) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) Option {
	return func(s *Sender) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// New validates cfg and builds a Sender.
func New(cfg Config, opts ...Option) (*Sender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sender config: %w", err)
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = AuthNone
	}

	s := &Sender{
		cfg:     cfg,
		builder: NewRequestBuilder(cfg.AuthMode, cfg.BasicCredentials),
		sleep:   sleepContext,
		log:     noopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.transport == nil {
		t, err := httpclient.NewRestyTransport(httpclient.RestyOptions{
			Address:        cfg.Address,
			Scheme:         cfg.Scheme,
			ConnectTimeout: cfg.ConnectTimeout,
			RequestTimeout: cfg.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("build transport: %w", err)
		}
		s.transport = t
	}
	return s, nil
}

// Send runs the request until it succeeds or attempts run out and returns the classified outcome.
// The error is non-nil for client-protocol, server/auth and transport outcomes and when ctx ends
// during a backoff wait. Unclassified outcomes are returned with a nil error.
func (s *Sender) Send(ctx context.Context, req Request) (Outcome, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.stats.sends.Add(1)

	headers := s.builder.Build(req.Headers)
	policy := NewRetryPolicy(s.cfg.RetryInterval)

	var last Classification
	for {
		s.stats.attempts.Add(1)
		resp, err := s.transport.Call(ctx, req.Method, req.Path, headers, req.Payload)
		last = Classify(resp, err)

		if !last.Retryable {
			out := Outcome{Kind: KindSuccess, Code: last.Code, Body: last.Body, Attempts: policy.Attempt()}
			s.record(out)
			s.log.DebugObj("http send succeeded", "http_send", map[string]any{
				"method":   req.Method,
				"path":     req.Path,
				"code":     out.Code,
				"attempts": out.Attempts,
			})
			return out, nil
		}

		retry := policy.ShouldRetry(s.cfg.MaxAttempts)
		s.logFailedAttempt(req, policy, last, retry)
		if !retry {
			break
		}

		if err := s.sleep(ctx, policy.CurrentInterval()); err != nil {
			out := Outcome{Kind: KindAborted, Code: last.Code, Message: err.Error(), Attempts: policy.Attempt()}
			s.record(out)
			return out, fmt.Errorf("send %s %s aborted after attempt %d: %w", req.Method, req.Path, policy.Attempt(), err)
		}
		s.stats.retries.Add(1)
		policy.Advance()
	}

	out := Terminal(last, policy.Attempt())
	s.record(out)
	err := out.Err()
	if err != nil {
		s.log.ErrorObj("http send failed", "http_send_error", map[string]any{
			"method":   req.Method,
			"path":     req.Path,
			"outcome":  out.Kind.String(),
			"attempts": out.Attempts,
			"error":    err.Error(),
		})
	} else {
		s.log.WarnObj("http send ended with unclassified status", "http_send_unclassified", map[string]any{
			"method":   req.Method,
			"path":     req.Path,
			"code":     out.Code,
			"attempts": out.Attempts,
		})
	}
	return out, err
}

func (s *Sender) logFailedAttempt(req Request, policy *RetryPolicy, c Classification, retry bool) {
	fields := map[string]any{
		"method":  req.Method,
		"path":    req.Path,
		"attempt": policy.Attempt(),
	}
	switch c.Signal {
	case SignalMalformed, SignalTransport:
		fields["error"] = c.Message
	default:
		fields["code"] = c.Code
		fields["response"] = summarizeBody(c.Body)
	}
	if retry {
		fields["next_wait"] = policy.CurrentInterval().String()
	}
	s.log.WarnObj("http send attempt failed", "http_send_attempt", fields)
}

func (s *Sender) record(out Outcome) {
	if out.Kind > 0 && int(out.Kind) < len(s.stats.byKind) {
		s.stats.byKind[out.Kind].Add(1)
	}
}

// Stats returns a snapshot of the counters.
func (s *Sender) Stats() Stats {
	return Stats{
		Sends:                s.stats.sends.Load(),
		Attempts:             s.stats.attempts.Load(),
		Retries:              s.stats.retries.Load(),
		Successes:            s.stats.byKind[KindSuccess].Load(),
		ClientProtocolErrors: s.stats.byKind[KindClientProtocol].Load(),
		ServerOrAuthErrors:   s.stats.byKind[KindServerOrAuth].Load(),
		TransportErrors:      s.stats.byKind[KindTransport].Load(),
		Unclassified:         s.stats.byKind[KindUnclassified].Load(),
		Aborted:              s.stats.byKind[KindAborted].Load(),
	}
}

// Close releases the transport. Later calls return the first result.
func (s *Sender) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.transport != nil {
			s.closeErr = s.transport.Close()
		}
	})
	return s.closeErr
}
