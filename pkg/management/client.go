package management

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Adda-Baaj/north-relay/internal/domain"
	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

const (
	pathPing  = "/fledge/service/ping"
	pathTrack = "/fledge/track"
	pathAudit = "/fledge/audit"
)

// RequestSender is the subset of *sender.Sender used by the client.
type RequestSender interface {
	Send(ctx context.Context, req sender.Request) (sender.Outcome, error)
}

// Client talks to the core management API through a retrying sender.
type Client struct {
	sender RequestSender
}

// NewClient wraps s.
func NewClient(s RequestSender) *Client {
	return &Client{sender: s}
}

// PingStatus is the subset of the ping reply the relay uses.
type PingStatus struct {
	Uptime       float64 `json:"uptime"`
	Name         string  `json:"name"`
	DataRead     int64   `json:"dataRead"`
	DataSent     int64   `json:"dataSent"`
	DataPurged   int64   `json:"dataPurged"`
	AuthOptional bool    `json:"authenticationOptional"`
}

// AuditEntry is written to the core audit log.
type AuditEntry struct {
	Source   string         `json:"source"`
	Severity string         `json:"severity"`
	Details  map[string]any `json:"details"`
}

// Ping checks that the management endpoint is alive.
func (c *Client) Ping(ctx context.Context) (PingStatus, error) {
	var status PingStatus
	body, err := c.do(ctx, http.MethodGet, pathPing, nil)
	if err != nil {
		return status, err
	}
	if len(body) == 0 {
		return status, nil
	}
	if err := json.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("decode ping reply: %w", err)
	}
	return status, nil
}

// Tracks lists the asset tracking tuples the core holds for service.
func (c *Client) Tracks(ctx context.Context, service string) ([]domain.AssetTuple, error) {
	path := pathTrack
	if service != "" {
		path += "?" + url.Values{"service": {service}}.Encode()
	}
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var reply struct {
		Track []domain.AssetTuple `json:"track"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("decode track reply: %w", err)
	}
	return reply.Track, nil
}

// AddTrack registers a tuple with the core.
func (c *Client) AddTrack(ctx context.Context, t domain.AssetTuple) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode tuple: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, pathTrack, payload)
	return err
}

// AddAudit appends an entry to the core audit log.
func (c *Client) AddAudit(ctx context.Context, entry AuditEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, pathAudit, payload)
	return err
}

// do treats anything but a success outcome as an error, including unclassified statuses.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	out, err := c.sender.Send(ctx, sender.Request{Method: method, Path: path, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if out.Kind != sender.KindSuccess {
		return nil, fmt.Errorf("%s %s: unexpected status %d", method, path, out.Code)
	}
	return []byte(out.Body), nil
}
