package reconciler

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/usagesync/pkg/provenance"
	"github.com/agentstation/usagesync/pkg/session"
)

// comparedFields are tracked per candidate when duplicates are resolved.
var comparedFields = []string{
	session.FieldInputTokens,
	session.FieldOutputTokens,
	session.FieldTotalCost,
	session.FieldModel,
	session.FieldTimestamp,
}

// resolver reduces each group of duplicates to one session.
type resolver struct {
	strategies []Strategy
	tracker    provenance.Tracker
	logger     *zerolog.Logger
}

// resolve returns the resolved set and one conflict per duplicated id.
func (r *resolver) resolve(groups []*group) (*ResolvedSet, []session.Conflict) {
	set := NewResolvedSet()
	conflicts := []session.Conflict{}

	for _, g := range groups {
		if len(g.sessions) == 1 {
			winner := g.sessions[0]
			set.add(winner)
			r.track(g.id, []*session.Session{winner}, winner, "single_source", false)
			continue
		}

		winner, conflict := r.resolveGroup(g)
		set.add(winner)
		conflicts = append(conflicts, conflict)

		r.logger.Debug().
			Str("session_id", g.id).
			Int("duplicates", conflict.Duplicates).
			Str("resolution", conflict.Resolution.String()).
			Str("selected_machine", winner.Provenance.MachineID).
			Msg("Resolved duplicate session")
	}

	r.logger.Info().Msgf("Reconciled %d unique sessions", set.Len())
	r.logger.Info().Msgf("Resolved %d conflicts", len(conflicts))
	return set, conflicts
}

// resolveGroup runs the strategy chain over a group of two or more duplicates.
func (r *resolver) resolveGroup(g *group) (*session.Session, session.Conflict) {
	candidates := append([]*session.Session{}, g.sessions...)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Provenance.FileModified > candidates[j].Provenance.FileModified
	})

	conflict := session.Conflict{
		SessionID:  g.id,
		Duplicates: len(candidates),
		Machines:   machines(candidates),
	}

	for _, strategy := range r.strategies {
		winner, ok := strategy.Select(candidates)
		if !ok {
			continue
		}
		conflict.Resolution = strategy.Type().Resolution()
		if strategy.RecordsMachine() {
			conflict.SelectedMachine = winner.Provenance.MachineID
		}
		r.track(g.id, candidates, winner, conflict.Resolution.String(), true)
		return winner, conflict
	}

	// An empty chain still has to pick one record per id.
	winner := candidates[0]
	conflict.Resolution = session.ResolutionMostRecent
	conflict.SelectedMachine = winner.Provenance.MachineID
	r.track(g.id, candidates, winner, conflict.Resolution.String(), true)
	return winner, conflict
}

// track records where each candidate came from and which one won.
func (r *resolver) track(id string, candidates []*session.Session, winner *session.Session, reason string, fields bool) {
	for _, c := range candidates {
		p := provenance.Provenance{
			MachineID:  c.Provenance.MachineID,
			SourceFile: c.Provenance.SourceFile,
			Modified:   modifiedTime(c.Provenance.FileModified),
			Selected:   c == winner,
		}
		if p.Selected {
			p.Reason = reason
		}

		record := p
		record.Value = c.Completeness()
		r.tracker.Track(id, provenance.RecordField, record)

		if !fields {
			continue
		}
		for _, field := range comparedFields {
			fp := p
			fp.Value = fieldValue(c, field)
			r.tracker.Track(id, field, fp)
		}
	}
}

func fieldValue(s *session.Session, field string) any {
	switch field {
	case session.FieldInputTokens:
		return s.InputTokens
	case session.FieldOutputTokens:
		return s.OutputTokens
	case session.FieldTotalCost:
		return s.TotalCost
	case session.FieldModel:
		return s.Model
	case session.FieldTimestamp:
		return s.Timestamp
	default:
		return nil
	}
}

func modifiedTime(unix float64) time.Time {
	sec, frac := math.Modf(unix)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// machines returns the distinct machine ids of candidates, sorted.
func machines(candidates []*session.Session) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, c := range candidates {
		if _, ok := seen[c.Provenance.MachineID]; ok {
			continue
		}
		seen[c.Provenance.MachineID] = struct{}{}
		ids = append(ids, c.Provenance.MachineID)
	}
	sort.Strings(ids)
	return ids
}
