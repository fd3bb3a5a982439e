package queue

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"service-queue/internal/flag"
	"service-queue/internal/models"
)

type QueueSnapshot struct {
	Flag    flag.Severity      `json:"flag"`
	Entries []models.EntryView `json:"entries"`
}

// EffectiveTimeout clamps a caller supplied timeout to the configured bounds.
func (s *Service) EffectiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return s.defaultTimeout
	}
	if timeout > s.maxTimeout {
		return s.maxTimeout
	}
	return timeout
}

// AwaitQueue waits until the flag is raised or the timeout elapses, consumes
// the flag and returns it with the current projection. With several readers
// waiting only one of them sees a given raise; the others get flag 0.
func (s *Service) AwaitQueue(ctx context.Context, params ListParams, timeout time.Duration) (QueueSnapshot, error) {
	timeout = s.EffectiveTimeout(timeout)
	started := time.Now()

	ctx, span := s.tracer.Start(ctx, "queue.AwaitQueue")
	defer span.End()
	span.SetAttributes(attribute.Int64("queue.timeout_ms", timeout.Milliseconds()))

	if err := s.waitForFlag(ctx, timeout); err != nil {
		return QueueSnapshot{}, fail(span, err)
	}

	severity, err := s.flags.ReadAndClear(ctx, s.scope)
	if err != nil {
		return QueueSnapshot{}, fail(span, err)
	}
	span.SetAttributes(attribute.Int("queue.flag", int(severity)))

	entries, err := s.List(ctx, params)
	if err != nil {
		if severity != flag.NothingNew {
			// kembalikan flag supaya reader lain tetap melihat perubahan
			s.raise(context.WithoutCancel(ctx), severity)
		}
		return QueueSnapshot{}, fail(span, err)
	}

	s.logger.Debug("queue poll returned",
		zap.String("scope", s.scope),
		zap.Stringer("flag", severity),
		zap.Int("entries", len(entries)),
		zap.Duration("waited", time.Since(started)),
	)
	return QueueSnapshot{Flag: severity, Entries: entries}, nil
}

// waitForFlag returns nil once the flag is non-zero or the timeout elapsed.
func (s *Service) waitForFlag(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		severity, err := s.flags.Peek(ctx, s.scope)
		if err != nil {
			return err
		}
		if severity != flag.NothingNew {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return nil
		case <-ticker.C:
		}
	}
}
