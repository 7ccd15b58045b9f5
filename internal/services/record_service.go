package services

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/amqp"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/metrics"
	"tally/internal/storage"
)

// ErrConstraint marks a write the store refuses on its own constraints
// (amount, date or category), whatever the caller validated before.
var ErrConstraint = errors.New("constraint violation")

// Publisher sends record events to the broker.
type Publisher interface {
	PublishRecordEvent(ctx context.Context, ev *amqp.RecordEvent) error
}

// RecordService orchestrates record writes across the store and AMQP.
// It implements storage.RecordStore so the ledger can sit on top of it.
type RecordService struct {
	store     storage.RecordStore
	publisher Publisher
	logger    *log.Logger
	events    *log.StructuredLogger
}

func NewRecordService(store storage.RecordStore, publisher Publisher, logger *log.Logger) *RecordService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordService{
		store:     store,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentRecords),
		events:    log.NewStructuredLogger(logger),
	}
}

// CreateRecord checks constraints, saves the record and publishes record.created.
func (s *RecordService) CreateRecord(ctx context.Context, in core.NewRecord) (core.Record, error) {
	if err := in.Validate(); err != nil {
		metrics.ObserveRecordOperation(log.OpCreate, err)
		return core.Record{}, fmt.Errorf("%w: %w", ErrConstraint, err)
	}

	rec, err := s.store.CreateRecord(ctx, in)
	metrics.ObserveRecordOperation(log.OpCreate, err)
	if err != nil {
		return core.Record{}, fmt.Errorf("save record: %w", err)
	}

	s.events.LogRecordMutation(ctx, log.OpCreate, rec.UserID, rec.ID, string(rec.Kind), rec.Category)
	s.publish(ctx, amqp.EventRecordCreated, rec.ID, rec.UserID)
	return rec, nil
}

func (s *RecordService) ListRecords(ctx context.Context, userID string, f core.Filter) ([]core.Record, error) {
	records, err := s.store.ListRecords(ctx, userID, f)
	metrics.ObserveRecordOperation(log.OpList, err)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// UpdateRecord checks the patch, applies it and publishes record.updated.
func (s *RecordService) UpdateRecord(ctx context.Context, userID, id string, patch core.RecordPatch) (core.Record, error) {
	if err := patch.Validate(); err != nil {
		metrics.ObserveRecordOperation(log.OpUpdate, err)
		return core.Record{}, fmt.Errorf("%w: %w", ErrConstraint, err)
	}

	rec, err := s.store.UpdateRecord(ctx, userID, id, patch)
	metrics.ObserveRecordOperation(log.OpUpdate, err)
	if err != nil {
		return core.Record{}, fmt.Errorf("update record %s: %w", id, err)
	}

	s.events.LogRecordMutation(ctx, log.OpUpdate, userID, rec.ID, string(rec.Kind), rec.Category)
	s.publish(ctx, amqp.EventRecordUpdated, rec.ID, userID)
	return rec, nil
}

// DeleteRecord removes the record and publishes record.deleted.
func (s *RecordService) DeleteRecord(ctx context.Context, userID, id string) error {
	err := s.store.DeleteRecord(ctx, userID, id)
	metrics.ObserveRecordOperation(log.OpDelete, err)
	if err != nil {
		return fmt.Errorf("delete record %s: %w", id, err)
	}

	s.events.LogRecordMutation(ctx, log.OpDelete, userID, id, "", "")
	s.publish(ctx, amqp.EventRecordDeleted, id, userID)
	return nil
}

// publish never fails the write; the record is already stored.
func (s *RecordService) publish(ctx context.Context, eventType, recordID, userID string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping record event",
			log.FieldEvent, eventType,
			log.FieldRecordID, recordID)
		return
	}
	if err := s.publisher.PublishRecordEvent(ctx, amqp.NewRecordEvent(eventType, recordID, userID)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish record event",
			log.FieldEvent, eventType,
			log.FieldRecordID, recordID,
			log.FieldError, err)
	}
}
