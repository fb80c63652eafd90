// Package session defines the canonical usage record and the bookkeeping
// types produced while reconciling exports from several machines.
package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentstation/usagesync/pkg/errors"
)

// Canonical field names.
const (
	FieldSessionID    = "session_id"
	FieldTimestamp    = "timestamp"
	FieldInputTokens  = "input_tokens"
	FieldOutputTokens = "output_tokens"
	FieldTotalCost    = "total_cost"
	FieldModel        = "model"
	FieldProject      = "project"
	FieldTitle        = "title"
)

// Provenance keys written alongside each session.
const (
	KeyMachineID         = "_machine_id"
	KeySourceFile        = "_source_file"
	KeyFileModified      = "_file_modified"
	KeyTimestampInferred = "_timestamp_inferred"
)

// CanonicalFields lists the canonical field names in output order.
var CanonicalFields = []string{
	FieldSessionID,
	FieldTimestamp,
	FieldInputTokens,
	FieldOutputTokens,
	FieldTotalCost,
	FieldModel,
	FieldProject,
	FieldTitle,
}

// IsCanonical reports whether name is a canonical field name.
func IsCanonical(name string) bool {
	for _, f := range CanonicalFields {
		if f == name {
			return true
		}
	}
	return false
}

// Provenance records where a session came from. It never takes part in
// identity or completeness comparisons.
type Provenance struct {
	MachineID         string
	SourceFile        string
	FileModified      float64 // unix seconds
	TimestampInferred bool
}

// Session is one canonical usage record.
type Session struct {
	SessionID    string
	Timestamp    string
	InputTokens  int64
	OutputTokens int64
	TotalCost    float64
	Model        string
	Project      *string
	Title        *string

	// Extra holds source fields outside the canonical set, in source order.
	Extra *Object

	Provenance Provenance
}

// TotalTokens returns input plus output tokens.
func (s *Session) TotalTokens() int64 {
	return s.InputTokens + s.OutputTokens
}

// SameContent reports whether two sessions agree on tokens, cost, model and timestamp.
func (s *Session) SameContent(o *Session) bool {
	return s.InputTokens == o.InputTokens &&
		s.OutputTokens == o.OutputTokens &&
		s.TotalCost == o.TotalCost &&
		s.Model == o.Model &&
		s.Timestamp == o.Timestamp
}

// Completeness counts the truthy non-provenance fields of the session,
// extras included.
func (s *Session) Completeness() int {
	n := 0
	for _, ok := range []bool{
		s.SessionID != "",
		s.Timestamp != "",
		s.InputTokens != 0,
		s.OutputTokens != 0,
		s.TotalCost != 0,
		s.Model != "",
		s.Project != nil && *s.Project != "",
		s.Title != nil && *s.Title != "",
	} {
		if ok {
			n++
		}
	}
	for key, v := range s.Extra.All() {
		if !strings.HasPrefix(key, "_") && Truthy(v) {
			n++
		}
	}
	return n
}

// ExtraInt returns an extra field coerced to an integer, or 0.
func (s *Session) ExtraInt(key string) int64 {
	v, ok := s.Extra.Get(key)
	if !ok {
		return 0
	}
	n, ok := ToInt(v)
	if !ok {
		return 0
	}
	return n
}

// MarshalJSON writes canonical fields, then extras, then provenance keys.
func (s *Session) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	write := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		return writeMember(&buf, key, value)
	}

	members := []Field{
		{FieldSessionID, s.SessionID},
		{FieldTimestamp, s.Timestamp},
		{FieldInputTokens, s.InputTokens},
		{FieldOutputTokens, s.OutputTokens},
		{FieldTotalCost, s.TotalCost},
		{FieldModel, s.Model},
		{FieldProject, s.Project},
		{FieldTitle, s.Title},
	}
	for _, m := range members {
		if err := write(m.Key, m.Value); err != nil {
			return nil, err
		}
	}
	for key, value := range s.Extra.All() {
		if IsCanonical(key) || strings.HasPrefix(key, "_") {
			continue
		}
		if err := write(key, value); err != nil {
			return nil, err
		}
	}
	if s.Provenance.MachineID != "" {
		if err := write(KeyMachineID, s.Provenance.MachineID); err != nil {
			return nil, err
		}
	}
	if s.Provenance.SourceFile != "" {
		if err := write(KeySourceFile, s.Provenance.SourceFile); err != nil {
			return nil, err
		}
	}
	if s.Provenance.FileModified != 0 {
		if err := write(KeyFileModified, s.Provenance.FileModified); err != nil {
			return nil, err
		}
	}
	if s.Provenance.TimestampInferred {
		if err := write(KeyTimestampInferred, true); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a session previously written by MarshalJSON.
func (s *Session) UnmarshalJSON(data []byte) error {
	var obj Object
	if err := obj.UnmarshalJSON(data); err != nil {
		return err
	}
	decoded, err := FromObject(&obj)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

// FromObject builds a session from an object already in canonical shape,
// such as an entry of a reconciled sessions file.
func FromObject(obj *Object) (*Session, error) {
	s := &Session{Extra: NewObject()}
	for key, v := range obj.All() {
		switch key {
		case FieldSessionID:
			s.SessionID = ToString(v)
		case FieldTimestamp:
			s.Timestamp = ToString(v)
		case FieldInputTokens:
			s.InputTokens, _ = ToInt(v)
		case FieldOutputTokens:
			s.OutputTokens, _ = ToInt(v)
		case FieldTotalCost:
			s.TotalCost, _ = ToFloat(v)
		case FieldModel:
			s.Model = ToString(v)
		case FieldProject:
			s.Project = OptionalString(v)
		case FieldTitle:
			s.Title = OptionalString(v)
		case KeyMachineID:
			s.Provenance.MachineID = ToString(v)
		case KeySourceFile:
			s.Provenance.SourceFile = ToString(v)
		case KeyFileModified:
			s.Provenance.FileModified, _ = ToFloat(v)
		case KeyTimestampInferred:
			s.Provenance.TimestampInferred, _ = v.(bool)
		default:
			if !strings.HasPrefix(key, "_") {
				s.Extra.Set(key, v)
			}
		}
	}
	if s.SessionID == "" {
		return nil, &errors.ValidationError{Field: FieldSessionID, Message: "is required"}
	}
	return s, nil
}

// Truthy reports whether v counts as present: nil, false, zero numbers,
// empty strings, empty lists and empty objects do not.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	case int:
		return t != 0
	case int64:
		return t != 0
	case int32:
		return t != 0
	case []any:
		return len(t) > 0
	case *Object:
		return t.Len() > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

// ToString renders a scalar the way it appeared in the source document.
func ToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case *Object, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}

// OptionalString returns nil for a null value and the stringified value otherwise.
func OptionalString(v any) *string {
	if v == nil {
		return nil
	}
	s := ToString(v)
	return &s
}

// ToInt coerces v to an integer. Floats are truncated toward zero and
// numeric strings are accepted.
func ToInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, true
		}
		f, err := t.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	case float64:
		return int64(t), true
	case int:
		return int64(t), true
	case int64:
		return t, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
			return n, true
		}
		return 0, false
	default:
		return 0, false
	}
}

// ToFloat coerces v to a float. Numeric strings are accepted.
func ToFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
