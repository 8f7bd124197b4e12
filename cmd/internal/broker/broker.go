// Package broker publishes auth events to NATS.
//
// Publishing is fire-and-forget with a bounded flush: callers log failures and
// continue. There is no retry, ordering, or consumer side here.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects, relative to the configured prefix.
const (
	SubjectAuthEvents    = "auth.events"
	SubjectPasswordReset = "auth.password_reset"
)

var (
	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("broker closed")

	// ErrNotConnected is returned while the connection is down, instead of buffering.
	ErrNotConnected = errors.New("broker not connected")
)

// Publisher sends JSON payloads to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close()
}

// Config configures the NATS publisher.
type Config struct {
	URL           string
	SubjectPrefix string
	Timeout       time.Duration
	Name          string
}

// NATS is a Publisher backed by a single nats.Conn.
type NATS struct {
	nc      *nats.Conn
	prefix  string
	timeout time.Duration
	log     *slog.Logger
}

// Connect dials NATS. The connection reconnects in the background; Publish
// fails fast while it is down.
func Connect(cfg Config, log *slog.Logger) (*NATS, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("broker: empty url")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "careerquest"
	}
	if log == nil {
		log = slog.Default()
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(cfg.Timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("broker.disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("broker.reconnected", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("broker: connect: %w", err)
	}

	return &NATS{nc: nc, prefix: strings.Trim(cfg.SubjectPrefix, "."), timeout: cfg.Timeout, log: log}, nil
}

// Subject returns the fully qualified subject for rel.
func (b *NATS) Subject(rel string) string {
	return JoinSubject(b.prefix, rel)
}

// Publish implements Publisher.
func (b *NATS) Publish(ctx context.Context, subject string, payload any) error {
	if b == nil || b.nc == nil || b.nc.IsClosed() {
		return ErrClosed
	}
	if !b.nc.IsConnected() {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("broker: encode: %w", err)
	}
	if err := b.nc.Publish(b.Subject(subject), data); err != nil {
		return fmt.Errorf("broker: publish: %w", err)
	}

	timeout := b.timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}
	if err := b.nc.FlushTimeout(timeout); err != nil {
		return fmt.Errorf("broker: flush: %w", err)
	}
	return nil
}

// Ready reports whether the connection is currently up.
func (b *NATS) Ready() bool {
	return b != nil && b.nc != nil && b.nc.IsConnected()
}

// Close drains pending messages and closes the connection.
func (b *NATS) Close() {
	if b == nil || b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.log.Warn("broker.drain.fail", "err", err)
		b.nc.Close()
	}
}

// Noop discards every message.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, string, any) error { return nil }

// Close implements Publisher.
func (Noop) Close() {}

// JoinSubject joins a dotted prefix and a relative subject.
func JoinSubject(prefix, rel string) string {
	prefix = strings.Trim(prefix, ".")
	rel = strings.Trim(rel, ".")
	switch {
	case prefix == "":
		return rel
	case rel == "":
		return prefix
	default:
		return prefix + "." + rel
	}
}
