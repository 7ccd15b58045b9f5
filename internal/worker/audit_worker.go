package worker

import (
	"context"
	"fmt"
	"strings"

	"tally/internal/amqp"
	"tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/storage"
)

// Consumer delivers record events until ctx is done.
type Consumer interface {
	ConsumeRecordEvents(ctx context.Context, handler func(context.Context, *amqp.RecordEvent) error) error
}

// AuditWorker turns record events into audit entries.
type AuditWorker struct {
	audit  storage.AuditWriter
	logger *log.Logger
}

func NewAuditWorker(audit storage.AuditWriter, logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuditWorker{audit: audit, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleRecordEvent appends one audit entry for msg. A returned error makes
// the consumer requeue the message.
func (w *AuditWorker) HandleRecordEvent(ctx context.Context, msg *amqp.RecordEvent) error {
	event := auditEvent(msg.Type)

	w.logger.DebugContext(ctx, "Processing record event",
		log.FieldEvent, msg.Type,
		log.FieldRecordID, msg.RecordID)

	err := w.audit.AppendAudit(ctx, storage.AuditEntry{
		RecordID:   msg.RecordID,
		UserID:     msg.UserID,
		Event:      event,
		OccurredAt: msg.Timestamp,
	})
	metrics.ObserveAuditEntry(event, err)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	w.logger.InfoContext(ctx, "Audit entry recorded",
		log.FieldEvent, event,
		log.FieldRecordID, msg.RecordID,
		log.FieldUserID, msg.UserID)
	return nil
}

// Run consumes events until ctx is cancelled.
func (w *AuditWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Audit worker started")
	err := consumer.ConsumeRecordEvents(ctx, w.HandleRecordEvent)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Audit worker stopped")
		return nil
	}
	return err
}

// auditEvent maps "record.created" to "created".
func auditEvent(eventType string) string {
	return strings.TrimPrefix(eventType, "record.")
}
