package queue

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"service-queue/internal/flag"
	"service-queue/internal/models"
	"service-queue/internal/store"
)

// Create puts a new Waiting entry at the end of today's queue. Without a
// client name the entry gets the next number of the day.
func (s *Service) Create(ctx context.Context, clientName string) (models.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "queue.Create")
	defer span.End()

	key, err := s.keys.NewKey()
	if err != nil {
		return models.Entry{}, fail(span, fmt.Errorf("generate entry key: %w", err))
	}

	entry := models.Entry{
		Key:       key,
		CreatedAt: s.clock(),
		Status:    models.StatusWaiting,
	}

	name := strings.TrimSpace(clientName)
	if name != "" {
		entry.ClientName = &name
		entry, err = s.entries.Insert(ctx, entry)
	} else {
		entry, err = s.insertNumbered(ctx, entry)
	}
	if err != nil {
		return models.Entry{}, fail(span, err)
	}

	span.SetAttributes(attribute.String("entry.key", entry.Key))
	s.raise(ctx, flag.NewData)
	return entry, nil
}

func (s *Service) insertNumbered(ctx context.Context, entry models.Entry) (models.Entry, error) {
	s.numbering.Lock()
	defer s.numbering.Unlock()

	from, to := s.today()
	return s.entries.InsertNumbered(ctx, entry, from, to)
}

// ChangeStatus moves the entry identified by key to target and reports the
// number of rows written. Zero means a concurrent writer got there first.
func (s *Service) ChangeStatus(ctx context.Context, key, target, location string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "queue.ChangeStatus", trace.WithAttributes(
		attribute.String("entry.key", key),
		attribute.String("entry.target_status", target),
	))
	defer span.End()

	status, ok := models.ParseStatus(target)
	if !ok || status == models.StatusWaiting {
		return 0, fail(span, fmt.Errorf("%w: %q", ErrInvalidStatus, target))
	}

	entry, found, err := s.Get(ctx, key)
	if err != nil {
		return 0, fail(span, err)
	}
	if !found {
		return 0, fail(span, fmt.Errorf("%w: %s", ErrNotFound, key))
	}
	if entry.Status.Terminal() {
		return 0, fail(span, fmt.Errorf("%w: %s is %s", ErrAlreadyFinalized, key, statusText(entry.Status)))
	}
	if entry.Status == models.StatusSummoned && status == models.StatusSummoned {
		return 0, fail(span, fmt.Errorf("%w: %s is already summoned", ErrInvalidTransition, key))
	}

	now := s.clock()
	changes := store.Changes{Status: status}
	severity := flag.NewData

	switch status {
	case models.StatusSummoned:
		place := strings.TrimSpace(location)
		if place == "" {
			return 0, fail(span, fmt.Errorf("%w: location is required to summon", ErrValidation))
		}
		if utf8.RuneCountInString(place) > MaxLocationLength {
			return 0, fail(span, fmt.Errorf("%w: location exceeds %d characters", ErrValidation, MaxLocationLength))
		}
		changes.Location = &place
		changes.SummonedAt = &now
		severity = flag.NewCall
	case models.StatusServed:
		changes.ServedAt = &now
	case models.StatusCanceled:
		changes.CanceledAt = &now
	}

	affected, err := s.entries.UpdateWhere(ctx, store.Filter{
		Key:      entry.Key,
		Statuses: []models.Status{entry.Status},
	}, changes)
	if err != nil {
		return 0, fail(span, err)
	}

	span.SetAttributes(attribute.Int64("entry.affected", affected))
	if affected > 0 {
		s.raise(ctx, severity)
	}
	return affected, nil
}

// Get looks an entry up by key.
func (s *Service) Get(ctx context.Context, key string) (models.Entry, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return models.Entry{}, false, nil
	}
	return s.entries.First(ctx, store.Filter{Key: key})
}

// raise is best effort: the mutation is already committed.
func (s *Service) raise(ctx context.Context, severity flag.Severity) {
	if err := s.flags.Raise(ctx, s.scope, severity); err != nil {
		s.logger.Warn("raise queue flag failed",
			zap.String("scope", s.scope),
			zap.Stringer("severity", severity),
			zap.Error(err),
		)
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
