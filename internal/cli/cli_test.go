package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
)

func execute(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(&out)
	root.SetErr(&errOut)
	base := []string{"--address", strings.TrimPrefix(srv.URL, "http://"), "--retry-interval", "1ms"}
	root.SetArgs(append(args, base...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func decodeOutcome(t *testing.T, raw string) outcomeView {
	t.Helper()
	var v outcomeView
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("decode outcome %q: %v", raw, err)
	}
	return v
}

func TestSendPrintsSuccessOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPut || r.URL.Path != "/items" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Values("X-Trace"); len(got) != 2 {
			t.Errorf("expected duplicate trace headers, got %v", got)
		}
		if string(body) != `{"a":1}` {
			t.Errorf("unexpected body %q", body)
		}
		_, _ = w.Write([]byte("stored"))
	}))
	defer srv.Close()

	out, err := execute(t, srv, "send", "-X", "put", "--path", "/items", "-H", "X-Trace: 1", "-H", "X-Trace: 2", "-d", `{"a":1}`)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	v := decodeOutcome(t, out)
	if v.Kind != "success" || v.Code != http.StatusOK || v.Attempts != 1 || v.Body != "stored" {
		t.Fatalf("unexpected outcome %+v", v)
	}
}

func TestSendReportsServerErrorAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := execute(t, srv, "send", "--path", "/x", "--attempts", "2")
	if err == nil {
		t.Fatalf("expected error for persistent 500")
	}
	v := decodeOutcome(t, out)
	if v.Kind != "server_or_auth_error" || v.Code != http.StatusInternalServerError || v.Attempts != 2 {
		t.Fatalf("unexpected outcome %+v", v)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 attempts on the wire, got %d", hits.Load())
	}
}

func TestSendAttemptsFromEnvironment(t *testing.T) {
	t.Setenv("NORTHCTL_ATTEMPTS", "1")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := execute(t, srv, "send", "--path", "/x"); err == nil {
		t.Fatalf("expected error")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected env to cap attempts at 1, got %d", hits.Load())
	}
}

func TestSendReadsPayloadFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = string(body)
	}))
	defer srv.Close()

	if _, err := execute(t, srv, "send", "--path", "/x", "-d", "@"+file); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != `{"from":"file"}` {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestPingAndTrackAdd(t *testing.T) {
	var tracked string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fledge/service/ping":
			_, _ = w.Write([]byte(`{"uptime": 7, "name": "core"}`))
		case "/fledge/track":
			body, _ := io.ReadAll(r.Body)
			tracked = string(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	out, err := execute(t, srv, "ping")
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !strings.Contains(out, `"name": "core"`) {
		t.Fatalf("unexpected ping output %q", out)
	}

	if _, err := execute(t, srv, "track", "add", "--asset", "sinusoid", "--event", "Egress"); err != nil {
		t.Fatalf("track add: %v", err)
	}
	if !strings.Contains(tracked, `"asset":"sinusoid"`) || !strings.Contains(tracked, `"event":"Egress"`) {
		t.Fatalf("unexpected tuple payload %q", tracked)
	}
}

func TestTrackAddRequiresAssetAndEvent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := execute(t, srv, "track", "add", "--asset", "a"); err == nil {
		t.Fatalf("expected error for missing event")
	}
}

func TestParseHeaders(t *testing.T) {
	hdrs, err := parseHeaders([]string{"A: 1", "a:2", "B:  spaced "})
	if err != nil {
		t.Fatalf("parseHeaders: %v", err)
	}
	if got := hdrs.Values("a"); len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Fatalf("unexpected values %v", got)
	}
	if got := hdrs.Values("B"); len(got) != 1 || got[0] != "spaced" {
		t.Fatalf("unexpected values %v", got)
	}
	for _, bad := range []string{"nocolon", ": empty"} {
		if _, err := parseHeaders([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
