package store

import (
	"sync"

	"github.com/rs/zerolog"

	"stayease/internal/config"
	"stayease/internal/events"
	"stayease/internal/metrics"
)

// Options are shared by the catalog and booking stores.
type Options struct {
	// OverlapPolicy is config.PolicyLatestDispatch (default) or config.PolicyLastResolved.
	OverlapPolicy string
	Bus           events.Publisher
	Logger        *zerolog.Logger
}

func (o Options) logger(component string) zerolog.Logger {
	if o.Logger == nil {
		return zerolog.Nop()
	}
	return o.Logger.With().Str("component", component).Logger()
}

func (o Options) publish(e events.Event) {
	if o.Bus != nil {
		o.Bus.Publish(e)
	}
}

// slot is one replace-wholesale piece of store state. Each load takes a
// ticket; under latest_dispatch only the most recent ticket may commit.
type slot[T any] struct {
	name         string
	lastResolved bool
	logger       zerolog.Logger

	mu      sync.Mutex
	issued  uint64
	pending int
	value   T
	err     error
}

func newSlot[T any](name string, opts Options, logger zerolog.Logger) *slot[T] {
	return &slot[T]{
		name:         name,
		lastResolved: opts.OverlapPolicy == config.PolicyLastResolved,
		logger:       logger,
	}
}

func (s *slot[T]) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.pending++
	return s.issued
}

// finish records a load outcome. It reports false when the response was
// discarded as stale.
func (s *slot[T]) finish(ticket uint64, value T, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--

	if !s.lastResolved && ticket != s.issued {
		metrics.IncStaleResponse(s.name)
		s.logger.Debug().
			Str("slot", s.name).
			Uint64("ticket", ticket).
			Uint64("latest", s.issued).
			Msg("discarding stale response")
		return false
	}

	s.err = err
	if err == nil {
		s.value = value
	}
	return true
}

// reset replaces the value and invalidates every in-flight load.
func (s *slot[T]) reset(value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.lastResolved {
		s.issued++
	}
	s.value = value
	s.err = nil
}

func (s *slot[T]) snapshot() (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.pending > 0, s.err
}
