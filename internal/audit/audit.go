// Package audit emits one immutable record per mutating or search PMS
// operation. The sink's storage schema is owned by the platform's audit
// service; this package only guarantees the call is made.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/brettulin/okdentalai/pkg/logging"
)

// Event is a single audit record for a PMS operation.
type Event struct {
	ID        string          `json:"id"`
	OfficeID  string          `json:"office_id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"` // e.g. "pms.book_appointment"
	Entity    string          `json:"entity"` // e.g. "appointment"
	EntityID  string          `json:"entity_id,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Sink accepts audit events. Implementations must be safe for concurrent
// use.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// SQLSink persists audit events to the platform database.
type SQLSink struct {
	db *sql.DB
}

func NewSQLSink(db *sql.DB) *SQLSink {
	return &SQLSink{db: db}
}

// Record inserts one audit event.
func (s *SQLSink) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO pms_audit_events (
			id, office_id, actor, action, entity, entity_id, details, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.OfficeID,
		event.Actor,
		event.Action,
		event.Entity,
		nullString(event.EntityID),
		event.Details,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// LogSink writes audit events to the structured log. Used when no database
// is configured (local development, mock mode).
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, event Event) error {
	s.logger.Info("audit event",
		"office_id", event.OfficeID,
		"actor", event.Actor,
		"action", event.Action,
		"entity", event.Entity,
		"entity_id", event.EntityID,
	)
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
