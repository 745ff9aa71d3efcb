package observability

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const auditEventVersion = 1

type AuditInput struct {
	EventName   string
	ActorUserID string
	TargetType  string
	TargetID    string
	Action      string
	Outcome     string
	Reason      string
}

type AuditEvent struct {
	EventVersion int
	EventName    string
	ActorUserID  string
	ActorIP      string
	TargetType   string
	TargetID     string
	Action       string
	Outcome      string
	Reason       string
	RequestID    string
	Method       string
	Path         string
	TS           string
}

func BuildAuditEvent(r *http.Request, in AuditInput) AuditEvent {
	actor := strings.TrimSpace(in.ActorUserID)
	if actor == "" {
		actor = "anonymous"
	}
	return AuditEvent{
		EventVersion: auditEventVersion,
		EventName:    in.EventName,
		ActorUserID:  actor,
		ActorIP:      remoteIP(r),
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		Action:       in.Action,
		Outcome:      in.Outcome,
		Reason:       in.Reason,
		RequestID:    requestID(r),
		Method:       r.Method,
		Path:         r.URL.Path,
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
}

func (e AuditEvent) Validate() error {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("event_name", e.EventName)
	check("actor_user_id", e.ActorUserID)
	check("target_type", e.TargetType)
	check("action", e.Action)
	check("outcome", e.Outcome)
	check("ts", e.TS)
	if e.EventVersion != auditEventVersion {
		missing = append(missing, "event_version")
	}
	if len(missing) > 0 {
		return errors.New("audit event missing fields: " + strings.Join(missing, ","))
	}
	return nil
}

// EmitAudit writes one structured audit line. Extra key/value pairs are appended as-is.
func EmitAudit(r *http.Request, in AuditInput, attrs ...any) {
	ev := BuildAuditEvent(r, in)
	level := slog.LevelInfo
	if err := ev.Validate(); err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, "audit_validation_error", err.Error())
	}
	base := []any{
		"event_version", ev.EventVersion,
		"event_name", ev.EventName,
		"actor_user_id", ev.ActorUserID,
		"actor_ip", ev.ActorIP,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID,
		"action", ev.Action,
		"outcome", ev.Outcome,
		"reason", ev.Reason,
		"request_id", ev.RequestID,
		"method", ev.Method,
		"path", ev.Path,
		"ts", ev.TS,
	}
	base = append(base, attrs...)
	NewLogger().Log(r.Context(), level, "audit", base...)
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-Id")
}
