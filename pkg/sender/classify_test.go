package sender

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/north-relay/pkg/httpclient"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		code      int
		retryable bool
	}{
		{200, false}, {204, false}, {302, false}, {399, false},
		{100, true}, {400, true}, {401, true}, {404, true}, {500, true}, {0, true},
	}
	for _, tc := range cases {
		got := Classify(fakeResponse{code: tc.code}, nil)
		if got.Retryable != tc.retryable || got.Signal != SignalNone {
			t.Fatalf("code %d: got %+v", tc.code, got)
		}
	}
}

func TestClassifySignals(t *testing.T) {
	wrapped := fmt.Errorf("call: %w", &httpclient.MalformedRequestError{Reason: "bad"})
	if got := Classify(nil, wrapped); got.Signal != SignalMalformed || !got.Retryable {
		t.Fatalf("expected malformed signal, got %+v", got)
	}
	if got := Classify(nil, errors.New("dial tcp: refused")); got.Signal != SignalTransport {
		t.Fatalf("expected transport signal, got %+v", got)
	}
	if got := Classify(nil, nil); got.Signal != SignalTransport {
		t.Fatalf("expected transport signal for missing response, got %+v", got)
	}
}

func TestTerminalMapping(t *testing.T) {
	cases := []struct {
		name string
		in   Classification
		want Kind
	}{
		{"malformed", Classification{Retryable: true, Signal: SignalMalformed, Message: "m"}, KindClientProtocol},
		{"transport", Classification{Retryable: true, Signal: SignalTransport, Message: "t"}, KindTransport},
		{"400", Classification{Retryable: true, Code: 400}, KindClientProtocol},
		{"401", Classification{Retryable: true, Code: 401}, KindServerOrAuth},
		{"503", Classification{Retryable: true, Code: 503}, KindServerOrAuth},
		{"101", Classification{Retryable: true, Code: 101}, KindUnclassified},
		{"-1", Classification{Retryable: true, Code: -1}, KindUnclassified},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := Terminal(tc.in, 3)
			if out.Kind != tc.want || out.Attempts != 3 {
				t.Fatalf("got %+v", out)
			}
			if (tc.want == KindUnclassified) != (out.Err() == nil) {
				t.Fatalf("unexpected Err() %v for %s", out.Err(), tc.want)
			}
		})
	}
}

func TestServerErrorSummarizesHTMLBody(t *testing.T) {
	body := `<!DOCTYPE html><html><head><title>502 Bad Gateway</title></head><body><h1>502 Bad Gateway</h1><p>nginx</p></body></html>`
	err := &ServerOrAuthError{Code: 502, Body: body}
	msg := err.Error()
	if strings.Contains(msg, "<") {
		t.Fatalf("expected markup stripped, got %q", msg)
	}
	if !strings.Contains(msg, "nginx") {
		t.Fatalf("expected body text kept, got %q", msg)
	}
}

func TestRetryPolicyDoublesOnAdvance(t *testing.T) {
	p := NewRetryPolicy(time.Second)
	if p.Attempt() != 1 || p.CurrentInterval() != time.Second {
		t.Fatalf("unexpected start %d %v", p.Attempt(), p.CurrentInterval())
	}
	if !p.ShouldRetry(2) || p.ShouldRetry(1) {
		t.Fatalf("ShouldRetry wrong at attempt 1")
	}
	p.Advance()
	p.Advance()
	if p.Attempt() != 3 || p.CurrentInterval() != 4*time.Second {
		t.Fatalf("after two advances: attempt=%d interval=%v", p.Attempt(), p.CurrentInterval())
	}
	if p.ShouldRetry(3) {
		t.Fatalf("no retry expected at the last attempt")
	}
}

func TestRetryPolicyIntervalSaturates(t *testing.T) {
	p := NewRetryPolicy(time.Second)
	prev := p.CurrentInterval()
	for i := 0; i < 80; i++ {
		p.Advance()
		if p.CurrentInterval() < prev {
			t.Fatalf("interval shrank at advance %d: %v -> %v", i+1, prev, p.CurrentInterval())
		}
		prev = p.CurrentInterval()
	}
	if p.CurrentInterval() != maxInterval {
		t.Fatalf("expected saturation at %v, got %v", maxInterval, p.CurrentInterval())
	}
}

func TestRequestBuilderOrderAndDuplicates(t *testing.T) {
	var caller httpclient.Headers
	caller.Add("X-Trace", "1")
	caller.Add("Content-Type", "text/plain")
	caller.Add("X-Trace", "2")

	got := NewRequestBuilder(AuthNone, "").Build(caller)
	if got.Len() != 5 {
		t.Fatalf("expected 5 headers, got %v", got)
	}
	if got[0].Key != "User-Agent" || got[1].Key != "Content-Type" || got[1].Value != "application/json" {
		t.Fatalf("defaults must come first, got %v", got)
	}
	if ct := got.Values("Content-Type"); len(ct) != 2 {
		t.Fatalf("caller content type must be appended, got %v", ct)
	}
	if len(got.Values("Authorization")) != 0 {
		t.Fatalf("no auth header expected, got %v", got)
	}

	withAuth := NewRequestBuilder(AuthBasic, "dXNlcjpwYXNz").Build(caller)
	last := withAuth[len(withAuth)-1]
	if last.Key != "Authorization" || last.Value != "Basic dXNlcjpwYXNz" {
		t.Fatalf("auth header must be last, got %v", last)
	}
	if caller.Len() != 3 {
		t.Fatalf("caller headers mutated: %v", caller)
	}
}

func TestParseAuthMode(t *testing.T) {
	for in, want := range map[string]AuthMode{"": AuthNone, "none": AuthNone, "Basic": AuthBasic, "b": AuthBasic} {
		got, err := ParseAuthMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseAuthMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseAuthMode("oauth"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
