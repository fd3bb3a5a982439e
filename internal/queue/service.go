// Package queue owns the entry lifecycle, the display projection and the
// long-poll wait on the notification flag.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"service-queue/internal/flag"
	"service-queue/internal/store"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollTimeout  = 300 * time.Second
	MaxLocationLength   = 50
	keyPrefix           = "sqm-"
)

type KeyProvider interface {
	NewKey() (string, error)
}

// UUIDKeys generates "sqm-<uuid v4>" keys.
type UUIDKeys struct{}

func (UUIDKeys) NewKey() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return keyPrefix + id.String(), nil
}

// Config wires a Service. Scope names the flag cell shared by every reader
// of one tenant.
type Config struct {
	Entries        store.EntryStore
	Flags          flag.Store
	Scope          string
	Clock          func() time.Time
	Keys           KeyProvider
	Location       *time.Location
	PollInterval   time.Duration
	DefaultTimeout time.Duration
	MaxTimeout     time.Duration
	Logger         *zap.Logger
}

type Service struct {
	entries        store.EntryStore
	flags          flag.Store
	scope          string
	clock          func() time.Time
	keys           KeyProvider
	location       *time.Location
	pollInterval   time.Duration
	defaultTimeout time.Duration
	maxTimeout     time.Duration
	logger         *zap.Logger
	tracer         trace.Tracer

	// numbering serializes the max+1 read and the insert on this node
	numbering sync.Mutex
}

func NewService(cfg Config) (*Service, error) {
	if cfg.Entries == nil {
		return nil, errors.New("queue: entry store is required")
	}
	if cfg.Flags == nil {
		return nil, errors.New("queue: flag store is required")
	}

	s := &Service{
		entries:        cfg.Entries,
		flags:          cfg.Flags,
		scope:          cfg.Scope,
		clock:          cfg.Clock,
		keys:           cfg.Keys,
		location:       cfg.Location,
		pollInterval:   cfg.PollInterval,
		defaultTimeout: cfg.DefaultTimeout,
		maxTimeout:     cfg.MaxTimeout,
		logger:         cfg.Logger,
		tracer:         otel.Tracer("service-queue/internal/queue"),
	}
	if s.scope == "" {
		s.scope = "default"
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.keys == nil {
		s.keys = UUIDKeys{}
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.pollInterval <= 0 {
		s.pollInterval = DefaultPollInterval
	}
	if s.defaultTimeout <= 0 {
		s.defaultTimeout = DefaultPollTimeout
	}
	if s.maxTimeout <= 0 || s.maxTimeout < s.defaultTimeout {
		s.maxTimeout = s.defaultTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s, nil
}

// today returns [start of the current day, start of the next day) in the service location.
func (s *Service) today() (time.Time, time.Time) {
	now := s.clock().In(s.location)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1)
}
