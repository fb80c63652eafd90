package normalize

import (
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/session"
)

// FieldExtractor fills one canonical field of a session from a raw entry.
type FieldExtractor interface {
	// Field returns the canonical field name the extractor fills.
	Field() string

	// Aliases returns the source keys probed, highest priority first.
	Aliases() []string

	// Extract sets the field on s, using now as the run's fallback time.
	// It returns false when the entry must be discarded.
	Extract(entry *session.Object, s *session.Session, now time.Time) bool
}

// probe walks an alias list and returns the first value accepted by keep.
type probe struct {
	aliases []string
	keep    func(v any) bool
}

func (p probe) find(entry *session.Object) (any, string, bool) {
	for _, alias := range p.aliases {
		v, ok := entry.Get(alias)
		if !ok {
			continue
		}
		if p.keep == nil || p.keep(v) {
			return v, alias, true
		}
	}
	return nil, "", false
}

func present(any) bool { return true }

func validID(v any) bool {
	return v != nil && session.ToString(v) != ""
}

func countable(v any) bool {
	if !session.Truthy(v) {
		return false
	}
	n, ok := session.ToInt(v)
	return ok && n >= 0
}

func chargeable(v any) bool {
	if !session.Truthy(v) {
		return false
	}
	f, ok := session.ToFloat(v)
	return ok && f >= 0
}

func named(v any) bool {
	if !session.Truthy(v) {
		return false
	}
	switch v.(type) {
	case *session.Object, []any:
		return false
	}
	return true
}

type idExtractor struct{ probe }

func (e idExtractor) Field() string     { return session.FieldSessionID }
func (e idExtractor) Aliases() []string { return e.aliases }

func (e idExtractor) Extract(entry *session.Object, s *session.Session, _ time.Time) bool {
	v, _, ok := e.find(entry)
	if !ok {
		return false
	}
	s.SessionID = session.ToString(v)
	return true
}

type timestampExtractor struct{ probe }

func (e timestampExtractor) Field() string     { return session.FieldTimestamp }
func (e timestampExtractor) Aliases() []string { return e.aliases }

func (e timestampExtractor) Extract(entry *session.Object, s *session.Session, now time.Time) bool {
	v, _, _ := e.find(entry)
	ts, ok := Timestamp(v)
	if !ok {
		ts = now.UTC().Format(time.RFC3339)
		s.Provenance.TimestampInferred = true
	}
	s.Timestamp = ts
	return true
}

type tokenExtractor struct {
	probe
	field string
	set   func(s *session.Session, n int64)
}

func (e tokenExtractor) Field() string     { return e.field }
func (e tokenExtractor) Aliases() []string { return e.aliases }

func (e tokenExtractor) Extract(entry *session.Object, s *session.Session, _ time.Time) bool {
	if v, _, ok := e.find(entry); ok {
		n, _ := session.ToInt(v)
		e.set(s, n)
	}
	return true
}

type costExtractor struct{ probe }

func (e costExtractor) Field() string     { return session.FieldTotalCost }
func (e costExtractor) Aliases() []string { return e.aliases }

func (e costExtractor) Extract(entry *session.Object, s *session.Session, _ time.Time) bool {
	if v, _, ok := e.find(entry); ok {
		s.TotalCost, _ = session.ToFloat(v)
	}
	return true
}

type modelExtractor struct{ probe }

func (e modelExtractor) Field() string     { return session.FieldModel }
func (e modelExtractor) Aliases() []string { return e.aliases }

func (e modelExtractor) Extract(entry *session.Object, s *session.Session, _ time.Time) bool {
	s.Model = constants.UnknownModel
	if v, _, ok := e.find(entry); ok {
		s.Model = session.ToString(v)
	}
	return true
}

type optionalExtractor struct {
	probe
	field string
	set   func(s *session.Session, v *string)
}

func (e optionalExtractor) Field() string     { return e.field }
func (e optionalExtractor) Aliases() []string { return e.aliases }

func (e optionalExtractor) Extract(entry *session.Object, s *session.Session, _ time.Time) bool {
	if v, _, ok := e.find(entry); ok {
		e.set(s, session.OptionalString(v))
	}
	return true
}

// DefaultExtractors returns the field extractors in the order they run.
// The session id extractor comes first so entries without an id are
// discarded before any other work.
func DefaultExtractors() []FieldExtractor {
	return []FieldExtractor{
		idExtractor{probe{aliases: []string{"session_id", "id", "conversation_id", "uuid"}, keep: validID}},
		timestampExtractor{probe{aliases: []string{"timestamp", "created_at", "date", "start_time"}, keep: present}},
		tokenExtractor{
			probe: probe{aliases: []string{"input_tokens", "prompt_tokens", "inputs"}, keep: countable},
			field: session.FieldInputTokens,
			set:   func(s *session.Session, n int64) { s.InputTokens = n },
		},
		tokenExtractor{
			probe: probe{aliases: []string{"output_tokens", "completion_tokens", "outputs"}, keep: countable},
			field: session.FieldOutputTokens,
			set:   func(s *session.Session, n int64) { s.OutputTokens = n },
		},
		costExtractor{probe{aliases: []string{"total_cost", "cost", "price"}, keep: chargeable}},
		modelExtractor{probe{aliases: []string{"model", "model_name", "model_id"}, keep: named}},
		optionalExtractor{
			probe: probe{aliases: []string{"project", "project_name"}, keep: present},
			field: session.FieldProject,
			set:   func(s *session.Session, v *string) { s.Project = v },
		},
		optionalExtractor{
			probe: probe{aliases: []string{"title", "conversation_title"}, keep: present},
			field: session.FieldTitle,
			set:   func(s *session.Session, v *string) { s.Title = v },
		},
	}
}
