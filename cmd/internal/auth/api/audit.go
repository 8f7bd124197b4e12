package authapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"careerquest/cmd/internal/broker"
	"careerquest/cmd/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is one auth audit record.
type Event struct {
	Name      string         `json:"event"`
	UserID    string         `json:"userId,omitempty"`
	Email     string         `json:"email,omitempty"`
	IP        string         `json:"ip,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	At        time.Time      `json:"at"`
}

// Auditor receives auth events. Implementations must not fail the request.
type Auditor interface {
	Audit(ctx context.Context, ev Event)
}

// MultiAuditor fans out to every non-nil auditor in order.
type MultiAuditor []Auditor

// Audit implements Auditor.
func (m MultiAuditor) Audit(ctx context.Context, ev Event) {
	for _, a := range m {
		if a != nil {
			a.Audit(ctx, ev)
		}
	}
}

// LogAuditor writes events to slog.
type LogAuditor struct {
	Log *slog.Logger
}

// Audit implements Auditor.
func (a LogAuditor) Audit(ctx context.Context, ev Event) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	level := slog.LevelInfo
	if strings.HasSuffix(ev.Name, ".failed") || strings.HasSuffix(ev.Name, ".rate_limited") {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, ev.Name,
		"user_id", ev.UserID,
		"ip", ev.IP,
		"request_id", ev.RequestID,
		"detail", ev.Detail,
	)
}

// MetricsAuditor counts events.
type MetricsAuditor struct {
	Metrics *metrics.Metrics
}

// Audit implements Auditor.
func (a MetricsAuditor) Audit(_ context.Context, ev Event) {
	if a.Metrics == nil {
		return
	}
	a.Metrics.AuthEvent(ev.Name)
	if ev.Name == "auth.login.rate_limited" {
		a.Metrics.RateLimitBlocks.Inc()
	}
}

// PostgresAuditor appends events to the audit_log table.
type PostgresAuditor struct {
	log   *slog.Logger
	pool  *pgxpool.Pool
	table string
}

// NewPostgresAuditor writes to schema.audit_log.
func NewPostgresAuditor(log *slog.Logger, pool *pgxpool.Pool, schema string) (*PostgresAuditor, error) {
	if pool == nil {
		return nil, errors.New("audit: nil db pool")
	}
	if log == nil {
		log = slog.Default()
	}
	if schema == "" {
		schema = "careerquest"
	}
	return &PostgresAuditor{
		log:   log,
		pool:  pool,
		table: pgx.Identifier{schema, "audit_log"}.Sanitize(),
	}, nil
}

// Audit implements Auditor.
func (a *PostgresAuditor) Audit(ctx context.Context, ev Event) {
	var detail *string
	if len(ev.Detail) > 0 {
		if b, err := json.Marshal(ev.Detail); err == nil {
			s := string(b)
			detail = &s
		}
	}

	_, err := a.pool.Exec(ctx, `
		INSERT INTO `+a.table+` (
			event, user_id, email, ip, request_id, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.Name, trimOrNil(ev.UserID), trimOrNil(ev.Email), trimOrNil(ev.IP), trimOrNil(ev.RequestID), detail, ev.At)
	if err != nil {
		a.log.Error("auth.audit.insert.fail", "err", err, "event", ev.Name)
	}
}

// BrokerAuditor publishes events to the auth events subject.
type BrokerAuditor struct {
	Log       *slog.Logger
	Publisher broker.Publisher
	Metrics   *metrics.Metrics
}

// Audit implements Auditor. Publish failures are logged and counted only.
func (a BrokerAuditor) Audit(ctx context.Context, ev Event) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.Publish(ctx, broker.SubjectAuthEvents, ev); err != nil {
		if a.Log != nil {
			a.Log.Warn("auth.audit.publish.fail", "err", err, "event", ev.Name)
		}
		if a.Metrics != nil {
			a.Metrics.BrokerFailures.Inc()
		}
	}
}

func (h *Handler) audit(r *http.Request, name, userID, email string, detail map[string]any) {
	if h.auditor == nil {
		return
	}
	ev := Event{
		Name:      name,
		UserID:    userID,
		Email:     email,
		RequestID: strings.TrimSpace(r.Header.Get("X-Request-ID")),
		Detail:    detail,
		At:        h.now(),
	}
	if ip := clientIP(r, h.cfg.TrustProxy); ip != nil {
		ev.IP = ip.String()
	}
	h.auditor.Audit(r.Context(), ev)
}

func (h *Handler) auditRegister(r *http.Request, userID, email string) {
	h.audit(r, "auth.register", userID, email, nil)
}

func (h *Handler) auditLoginSuccess(r *http.Request, userID, email string) {
	h.audit(r, "auth.login.success", userID, email, nil)
}

func (h *Handler) auditLoginFailed(r *http.Request, userID, email, reason string) {
	h.audit(r, "auth.login.failed", userID, email, map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditLoginRateLimited(r *http.Request, email string, ip net.IP, retryAfter time.Duration) {
	h.audit(r, "auth.login.rate_limited", "", email, map[string]any{
		"identifier":    limiterKey(ip),
		"retry_after_s": int64(retryAfter.Seconds()),
	})
}

func (h *Handler) auditRefresh(r *http.Request, userID string, rotated bool) {
	h.audit(r, "auth.refresh.success", userID, "", map[string]any{
		"rotated": rotated,
	})
}

func (h *Handler) auditRefreshFailed(r *http.Request, reason string) {
	h.audit(r, "auth.refresh.failed", "", "", map[string]any{
		"reason": reason,
	})
}

func (h *Handler) auditLogout(r *http.Request, userID string) {
	h.audit(r, "auth.logout", userID, "", nil)
}

func (h *Handler) auditPasswordChanged(r *http.Request, userID string, revoked int) {
	h.audit(r, "auth.password.changed", userID, "", map[string]any{
		"sessions_revoked": revoked,
	})
}

func (h *Handler) auditResetRequested(r *http.Request, userID, email string) {
	h.audit(r, "auth.password_reset.requested", userID, email, nil)
}

func (h *Handler) auditResetCompleted(r *http.Request, userID string, revoked int) {
	h.audit(r, "auth.password_reset.completed", userID, "", map[string]any{
		"sessions_revoked": revoked,
	})
}

func (h *Handler) auditAccountDeleted(r *http.Request, userID, email string) {
	h.audit(r, "auth.account.deleted", userID, email, nil)
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
