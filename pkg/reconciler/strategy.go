package reconciler

import (
	"strings"

	"github.com/agentstation/usagesync/pkg/session"
)

// StrategyType represents the type of resolution strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

// Name returns the name of the strategy type.
func (s StrategyType) Name() string {
	words := strings.Split(s.String(), "_")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

// Resolution returns the conflict resolution recorded when the strategy wins.
func (s StrategyType) Resolution() session.Resolution {
	return session.Resolution(s)
}

const (
	// StrategyTypeIdenticalContent selects the newest duplicate when all agree.
	StrategyTypeIdenticalContent StrategyType = StrategyType(session.ResolutionIdentical)
	// StrategyTypeMostComplete selects the duplicate with the most populated fields.
	StrategyTypeMostComplete StrategyType = StrategyType(session.ResolutionMostComplete)
	// StrategyTypeMostRecent selects the duplicate from the newest file.
	StrategyTypeMostRecent StrategyType = StrategyType(session.ResolutionMostRecent)
)

// Strategy is one step of the duplicate resolution chain.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// Select picks a winner among candidates ordered newest file first.
	// It returns false to defer to the next strategy.
	Select(candidates []*session.Session) (*session.Session, bool)

	// RecordsMachine reports whether the winner's machine is noted on the conflict.
	RecordsMachine() bool
}

// baseStrategy provides common strategy functionality.
type baseStrategy struct {
	typ           StrategyType
	description   string
	recordMachine bool
}

// Type returns the strategy type.
func (s *baseStrategy) Type() StrategyType {
	return s.typ
}

// Description returns a human-readable description.
func (s *baseStrategy) Description() string {
	return s.description
}

// RecordsMachine reports whether the winner's machine is noted on the conflict.
func (s *baseStrategy) RecordsMachine() bool {
	return s.recordMachine
}

// IdenticalContentStrategy wins when every duplicate agrees on tokens, cost,
// model and timestamp.
type IdenticalContentStrategy struct {
	baseStrategy
}

// NewIdenticalContentStrategy creates the identical content strategy.
func NewIdenticalContentStrategy() Strategy {
	return &IdenticalContentStrategy{
		baseStrategy: baseStrategy{
			typ:         StrategyTypeIdenticalContent,
			description: "Keeps the most recent duplicate when all duplicates carry the same tokens, cost, model and timestamp",
		},
	}
}

// Select returns the first candidate when all candidates match it.
func (s *IdenticalContentStrategy) Select(candidates []*session.Session) (*session.Session, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	first := candidates[0]
	for _, c := range candidates[1:] {
		if !first.SameContent(c) {
			return nil, false
		}
	}
	return first, true
}

// MostCompleteStrategy prefers the duplicate with the most truthy fields,
// then the most tokens. Ties keep the more recent candidate.
type MostCompleteStrategy struct {
	baseStrategy
}

// NewMostCompleteStrategy creates the most complete record strategy.
func NewMostCompleteStrategy() Strategy {
	return &MostCompleteStrategy{
		baseStrategy: baseStrategy{
			typ:           StrategyTypeMostComplete,
			description:   "Keeps the duplicate with the most populated fields, then the most tokens",
			recordMachine: true,
		},
	}
}

// Select returns the most complete candidate.
func (s *MostCompleteStrategy) Select(candidates []*session.Session) (*session.Session, bool) {
	var (
		best      *session.Session
		maxFields int
		maxTokens int64
	)
	for _, c := range candidates {
		fields := c.Completeness()
		tokens := c.TotalTokens()
		if best == nil || fields > maxFields || (fields == maxFields && tokens > maxTokens) {
			best, maxFields, maxTokens = c, fields, tokens
		}
	}
	return best, best != nil
}

// MostRecentStrategy keeps the duplicate from the most recently modified file.
type MostRecentStrategy struct {
	baseStrategy
}

// NewMostRecentStrategy creates the most recent strategy.
func NewMostRecentStrategy() Strategy {
	return &MostRecentStrategy{
		baseStrategy: baseStrategy{
			typ:           StrategyTypeMostRecent,
			description:   "Keeps the duplicate from the most recently modified file",
			recordMachine: true,
		},
	}
}

// Select returns the first candidate.
func (s *MostRecentStrategy) Select(candidates []*session.Session) (*session.Session, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	return candidates[0], true
}

// DefaultStrategies returns the resolution chain in the order it is tried.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewIdenticalContentStrategy(),
		NewMostCompleteStrategy(),
		NewMostRecentStrategy(),
	}
}
