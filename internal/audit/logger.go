package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"medconsult/backend/internal/audit/domain"
	auditrepo "medconsult/backend/internal/audit/repository"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         zerolog.Logger
	now         func() time.Time
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor for client IP.
// ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log zerolog.Logger) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log, now: time.Now}
}

// LogEvent writes one audit log entry.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	ip := ""
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if ip == "" {
		ip = "unknown"
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Warn().Err(err).Str("action", action).Str("resource", resource).Msg("audit: failed to log event")
	}
}
