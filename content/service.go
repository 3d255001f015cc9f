// Package content is the persistence access layer for posts, timeline
// entries, their sources, the scraping log and the profile. It is the only
// code that talks to the store about content, and it keeps working when the
// database lags behind the schema the application expects: recognized
// missing-column, missing-relation and missing-table failures degrade to a
// narrower query or an empty result instead of an error.
package content

import (
	"time"

	"github.com/labstack/gommon/log"

	"github.com/eringen/dossier/store"
)

// Logger is the subset of the echo/gommon logger the service uses.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Service implements the content operations over a store.Backend.
type Service struct {
	db  store.Backend
	log Logger
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService returns a Service backed by db.
func NewService(db store.Backend, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		l := log.New("content")
		l.SetLevel(log.WARN)
		s.log = l
	}
	return s
}

// Backend exposes the underlying store, for callers that share it (auth).
func (s *Service) Backend() store.Backend {
	return s.db
}

func (s *Service) fallback(op operation, a action, err error) {
	s.log.Warnf("%s: %s after %s", op, a, store.CodeOf(err))
}
