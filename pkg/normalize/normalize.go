// Package normalize converts heterogeneous usage export entries into
// canonical sessions. Container discovery and field extraction are ordered
// chains of small strategies so each alias list is declared in one place.
package normalize

import (
	"context"
	"strings"
	"time"

	"github.com/agentstation/usagesync/pkg/logging"
	"github.com/agentstation/usagesync/pkg/session"
)

// Normalizer converts raw export documents into sessions.
type Normalizer struct {
	containers []ContainerStrategy
	extractors []FieldExtractor
	now        time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithNow fixes the fallback timestamp used for entries without a usable one.
func WithNow(now time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// WithContainers replaces the container discovery chain.
func WithContainers(containers ...ContainerStrategy) Option {
	return func(n *Normalizer) {
		n.containers = containers
	}
}

// WithExtractors replaces the field extraction chain.
func WithExtractors(extractors ...FieldExtractor) Option {
	return func(n *Normalizer) {
		n.extractors = extractors
	}
}

// New creates a Normalizer with the default chains.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		containers: DefaultContainers(),
		extractors: DefaultExtractors(),
		now:        time.Now(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Now returns the fallback timestamp of this normalizer's run.
func (n *Normalizer) Now() string {
	return n.now.UTC().Format(time.RFC3339)
}

// Normalize converts one raw document into zero or more sessions. Entries
// that are not objects are skipped and entries without a session id are
// dropped with a warning.
func (n *Normalizer) Normalize(ctx context.Context, raw any) []*session.Session {
	logger := logging.FromContext(ctx)

	var sessions []*session.Session
	for i, item := range entries(raw, n.containers) {
		entry, ok := item.(*session.Object)
		if !ok {
			continue
		}

		s, ok := n.normalizeEntry(entry)
		if !ok {
			logger.Warn().
				Int("entry", i).
				Strs("keys", entry.Keys()).
				Msg("Dropping entry without session id")
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions
}

func (n *Normalizer) normalizeEntry(entry *session.Object) (*session.Session, bool) {
	s := &session.Session{}
	for _, extractor := range n.extractors {
		if !extractor.Extract(entry, s, n.now) {
			return nil, false
		}
	}

	s.Extra = session.NewObject()
	for key, v := range entry.All() {
		if session.IsCanonical(key) || strings.HasPrefix(key, "_") {
			continue
		}
		s.Extra.Set(key, v)
	}
	return s, true
}
