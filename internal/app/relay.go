package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Adda-Baaj/north-relay/internal/assettracking"
	"github.com/Adda-Baaj/north-relay/internal/config"
	"github.com/Adda-Baaj/north-relay/internal/domain"
	"github.com/Adda-Baaj/north-relay/internal/logger"
	"github.com/Adda-Baaj/north-relay/internal/storage"
	"github.com/Adda-Baaj/north-relay/pkg/management"
	"github.com/Adda-Baaj/north-relay/pkg/publishers"
	"github.com/Adda-Baaj/north-relay/pkg/sender"
)

const (
	relayPlugin        = "north-relay"
	selfTrackEvent     = "Egress"
	auditServiceStart  = "SRVRG"
	auditServiceStop   = "SRVUN"
	auditSeverityInfo  = "INFORMATION"
	shutdownAuditLimit = 5 * time.Second
)

// Relay represents the relay runtime. It owns the management sender, the asset tracker
// with its store, and the publisher fanout, and runs the heartbeat loop.
type Relay struct {
	cfg               *config.Config
	sender            *sender.Sender
	mgmt              *management.Client
	tracker           *assettracking.Tracker
	store             storage.Store
	fanout            *publishers.Fanout
	heartbeatInterval time.Duration
	log               logger.Logger
	closeOnce         sync.Once
	closeErr          error
}

// NewRelay builds a relay runtime from config.
func NewRelay(ctx context.Context, cfg *config.Config, log logger.Logger) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := sender.New(cfg.Endpoint, sender.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("init sender: %w", err)
	}
	log.InfoObj("management sender initialized", "endpoint_config", map[string]any{
		"address":         cfg.Endpoint.Address,
		"scheme":          cfg.Endpoint.Scheme,
		"max_attempts":    cfg.Endpoint.MaxAttempts,
		"retry_interval":  cfg.Endpoint.RetryInterval.String(),
		"connect_timeout": cfg.Endpoint.ConnectTimeout.String(),
		"request_timeout": cfg.Endpoint.RequestTimeout.String(),
		"auth_mode":       string(cfg.Endpoint.AuthMode),
	})
	mgmt := management.NewClient(s)

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		s.Close()
		return nil, err
	}

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath)
	if err != nil {
		s.Close()
		fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type": cfg.StorageType,
		"path": cfg.BBoltPath,
	})

	tracker, err := assettracking.NewTracker(cfg.ServiceName, store, mgmt, log)
	if err != nil {
		s.Close()
		fanout.Close()
		store.Close()
		return nil, fmt.Errorf("init asset tracker: %w", err)
	}

	return &Relay{
		cfg:               cfg,
		sender:            s,
		mgmt:              mgmt,
		tracker:           tracker,
		store:             store,
		fanout:            fanout,
		heartbeatInterval: cfg.HeartbeatInterval,
		log:               log,
	}, nil
}

// buildFanout loads the optional publishers file. No file means no sinks.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured", "publishers_meta", map[string]any{"count": 0})
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Run starts the heartbeat loop until the context is cancelled, then releases resources.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil || r.sender == nil {
		return fmt.Errorf("relay is not initialized")
	}
	defer r.Close()

	if _, err := r.tracker.Populate(); err != nil {
		r.log.ErrorObj("asset tracking populate failed", "error", err.Error())
	}
	if err := r.tracker.Add(ctx, r.selfTuple()); err != nil {
		r.log.WarnObj("relay tuple registration failed", "error", err.Error())
	}
	r.audit(ctx, auditServiceStart)

	r.log.InfoObj("relay loop starting", "relay_state", map[string]any{
		"service":            r.cfg.ServiceName,
		"publishers_count":   r.fanout.Size(),
		"tracked_assets":     r.tracker.Len(),
		"heartbeat_interval": r.heartbeatInterval.String(),
	})

	if err := r.runOnce(ctx); err != nil {
		r.log.ErrorObj("initial heartbeat failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("relay loop exiting", "reason", ctx.Err().Error())
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownAuditLimit)
			r.audit(stopCtx, auditServiceStop)
			cancel()
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx); err != nil {
				r.log.ErrorObj("scheduled heartbeat failed", "error", err.Error())
			}
		}
	}
}

// runOnce pings the management API and publishes a heartbeat event with the sender counters.
func (r *Relay) runOnce(ctx context.Context) error {
	start := time.Now()
	var errs []error

	status, pingErr := r.mgmt.Ping(ctx)
	if pingErr != nil {
		errs = append(errs, fmt.Errorf("ping management api: %w", pingErr))
	}

	payload := map[string]any{
		"reachable": pingErr == nil,
		"stats":     r.sender.Stats(),
		"sinks":     r.fanout.Stats(),
	}
	if pingErr == nil {
		payload["core_uptime"] = status.Uptime
	}
	if err := r.publish(ctx, publishers.KindHeartbeat, payload); err != nil {
		errs = append(errs, err)
	}

	r.log.DebugObj("heartbeat completed", "heartbeat_meta", map[string]any{
		"reachable":  pingErr == nil,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

// TrackAsset records that the relay handled asset for event and announces new tuples downstream.
func (r *Relay) TrackAsset(ctx context.Context, asset, event string) error {
	tuple := domain.AssetTuple{
		Service: r.cfg.ServiceName,
		Plugin:  relayPlugin,
		Asset:   asset,
		Event:   event,
	}
	added, err := r.tracker.Track(ctx, tuple)
	if err != nil || !added {
		return err
	}
	return r.publish(ctx, publishers.KindAssetTrack, tuple)
}

// selfTuple marks the relay itself as the egress point for its service.
func (r *Relay) selfTuple() domain.AssetTuple {
	return domain.AssetTuple{
		Service: r.cfg.ServiceName,
		Plugin:  relayPlugin,
		Asset:   r.cfg.ServiceName,
		Event:   selfTrackEvent,
	}
}

func (r *Relay) publish(ctx context.Context, kind string, payload any) error {
	if r.fanout.Size() == 0 {
		return nil
	}
	evt, err := publishers.NewEvent(r.cfg.ServiceName, kind, payload)
	if err != nil {
		return err
	}
	if _, err := r.fanout.Publish(ctx, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", kind, err)
	}
	return nil
}

func (r *Relay) audit(ctx context.Context, code string) {
	err := r.mgmt.AddAudit(ctx, management.AuditEntry{
		Source:   code,
		Severity: auditSeverityInfo,
		Details:  map[string]any{"name": r.cfg.ServiceName},
	})
	if err != nil {
		r.log.WarnObj("audit entry failed", "audit_error", map[string]any{
			"code":  code,
			"error": err.Error(),
		})
	}
}

// Close releases the sender, the publishers and the store. Later calls return the first result.
func (r *Relay) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		var errs []error
		if err := r.fanout.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publishers: %w", err))
		}
		if err := r.sender.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sender: %w", err))
		}
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}
