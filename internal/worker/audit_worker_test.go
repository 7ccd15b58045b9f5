package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"tally/internal/amqp"
	"tally/internal/storage"
	"tally/internal/storage/memory"
)

type failingAudit struct {
	storage.AuditWriter
}

func (failingAudit) AppendAudit(context.Context, storage.AuditEntry) error {
	return errors.New("disk full")
}

// replayConsumer hands a fixed set of events to the handler, then waits for cancellation.
type replayConsumer struct {
	events []*amqp.RecordEvent
	errs   []error
}

func (c *replayConsumer) ConsumeRecordEvents(ctx context.Context, handler func(context.Context, *amqp.RecordEvent) error) error {
	for _, ev := range c.events {
		c.errs = append(c.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestAuditWorker_HandleRecordEvent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	w := NewAuditWorker(store, nil)

	ts := time.Date(2025, 11, 14, 9, 0, 0, 0, time.UTC)
	msg := &amqp.RecordEvent{Type: amqp.EventRecordCreated, RecordID: "r1", UserID: "u1", Timestamp: ts}
	if err := w.HandleRecordEvent(ctx, msg); err != nil {
		t.Fatalf("HandleRecordEvent() error = %v", err)
	}

	entries, err := store.ListAudit(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("ListAudit() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.RecordID != "r1" || got.Event != "created" || !got.OccurredAt.Equal(ts) {
		t.Errorf("unexpected entry %+v", got)
	}
}

func TestAuditWorker_HandleRecordEventError(t *testing.T) {
	w := NewAuditWorker(failingAudit{}, nil)
	err := w.HandleRecordEvent(context.Background(), amqp.NewRecordEvent(amqp.EventRecordDeleted, "r1", "u1"))
	if err == nil {
		t.Fatal("expected error so the message is requeued")
	}
}

func TestAuditWorker_Run(t *testing.T) {
	store := memory.New()
	w := NewAuditWorker(store, nil)
	consumer := &replayConsumer{events: []*amqp.RecordEvent{
		amqp.NewRecordEvent(amqp.EventRecordCreated, "r1", "u1"),
		amqp.NewRecordEvent(amqp.EventRecordUpdated, "r1", "u1"),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx, consumer); err != nil {
		t.Fatalf("Run() should return nil on cancellation, got %v", err)
	}

	entries, _ := store.ListAudit(context.Background(), "u1", 0)
	if len(entries) != 2 {
		t.Errorf("expected 2 audit entries, got %d", len(entries))
	}
	for i, err := range consumer.errs {
		if err != nil {
			t.Errorf("event %d: unexpected error %v", i, err)
		}
	}
}

func TestAuditEvent(t *testing.T) {
	for in, want := range map[string]string{
		amqp.EventRecordCreated: "created",
		amqp.EventRecordUpdated: "updated",
		amqp.EventRecordDeleted: "deleted",
	} {
		if got := auditEvent(in); got != want {
			t.Errorf("auditEvent(%q) = %q, want %q", in, got, want)
		}
	}
}
