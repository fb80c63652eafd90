// Package stats aggregates reconciled sessions into all-time and windowed
// usage figures: totals, per-model and per-day breakdowns, recent daily
// averages and a monthly estimate.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/agentstation/usagesync/pkg/constants"
	"github.com/agentstation/usagesync/pkg/errors"
	"github.com/agentstation/usagesync/pkg/report"
	"github.com/agentstation/usagesync/pkg/session"
)

// Extra keys carrying prompt cache token counts.
const (
	KeyCacheCreationTokens = "cache_creation_tokens"
	KeyCacheReadTokens     = "cache_read_tokens"
)

// AllTime is the period name of the unbounded analysis.
const AllTime = "all_time"

// DayLayout formats day buckets.
const DayLayout = "2006-01-02"

// Totals are summed usage figures.
type Totals struct {
	InputTokens         int64   `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens        int64   `json:"output_tokens" yaml:"output_tokens"`
	CacheCreationTokens int64   `json:"cache_creation_tokens" yaml:"cache_creation_tokens"`
	CacheReadTokens     int64   `json:"cache_read_tokens" yaml:"cache_read_tokens"`
	Cost                float64 `json:"cost_usd" yaml:"cost_usd"`
	Requests            int     `json:"requests" yaml:"requests"`
}

// Tokens returns input, output and cache creation tokens. Cache reads are
// not counted as new tokens.
func (t Totals) Tokens() int64 {
	return t.InputTokens + t.OutputTokens + t.CacheCreationTokens
}

func (t *Totals) add(s *session.Session) {
	t.InputTokens += s.InputTokens
	t.OutputTokens += s.OutputTokens
	t.CacheCreationTokens += s.ExtraInt(KeyCacheCreationTokens)
	t.CacheReadTokens += s.ExtraInt(KeyCacheReadTokens)
	t.Cost += s.TotalCost
	t.Requests++
}

// Day is the usage of one calendar day.
type Day struct {
	Date string `json:"date" yaml:"date"`
	Totals
}

// Period is the analysis of one window.
type Period struct {
	Name  string     `json:"name" yaml:"name"`
	Days  int        `json:"days,omitempty" yaml:"days,omitempty"`
	Since *time.Time `json:"since,omitempty" yaml:"since,omitempty"`

	Totals      Totals            `json:"totals" yaml:"totals"`
	TotalTokens int64             `json:"total_tokens" yaml:"total_tokens"`
	Models      map[string]Totals `json:"models" yaml:"models"`
	Daily       []Day             `json:"daily" yaml:"daily"`

	ActiveDays       int     `json:"active_days" yaml:"active_days"`
	RecentDays       int     `json:"recent_days" yaml:"recent_days"`
	DailyAvgTokens   float64 `json:"daily_avg_tokens" yaml:"daily_avg_tokens"`
	DailyAvgCost     float64 `json:"daily_avg_cost" yaml:"daily_avg_cost"`
	MonthlyEstTokens float64 `json:"monthly_est_tokens" yaml:"monthly_est_tokens"`
	MonthlyEstCost   float64 `json:"monthly_est_cost" yaml:"monthly_est_cost"`
}

// Report holds the all-time period followed by one period per window.
type Report struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Timezone    string    `json:"timezone" yaml:"timezone"`
	Sessions    int       `json:"sessions" yaml:"sessions"`
	Undated     int       `json:"undated" yaml:"undated"`
	Periods     []Period  `json:"periods" yaml:"periods"`
}

// Period returns the period named name.
func (r *Report) Period(name string) (*Period, bool) {
	for i := range r.Periods {
		if r.Periods[i].Name == name {
			return &r.Periods[i], true
		}
	}
	return nil, false
}

// WindowName names the period of a window of days.
func WindowName(days int) string {
	return fmt.Sprintf("%d_days", days)
}

type options struct {
	windows  []int
	location *time.Location
	now      time.Time
}

// Option configures Analyze.
type Option func(*options) error

// WithWindows sets the window lengths in days.
func WithWindows(days ...int) Option {
	return func(o *options) error {
		for _, d := range days {
			if d <= 0 {
				return &errors.ValidationError{
					Field:   "windows",
					Value:   d,
					Message: "window must be a positive number of days",
				}
			}
		}
		o.windows = append([]int{}, days...)
		return nil
	}
}

// WithLocation sets the zone days are bucketed in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) error {
		if loc == nil {
			return &errors.ValidationError{Field: "location", Message: "cannot be nil"}
		}
		o.location = loc
		return nil
	}
}

// WithTimezone sets the zone days are bucketed in by IANA name.
func WithTimezone(name string) Option {
	return func(o *options) error {
		loc, err := time.LoadLocation(name)
		if err != nil {
			return &errors.ValidationError{Field: "timezone", Value: name, Message: err.Error()}
		}
		o.location = loc
		return nil
	}
}

// WithNow sets the time windows are measured back from.
func WithNow(now time.Time) Option {
	return func(o *options) error {
		o.now = now
		return nil
	}
}

// dated is a session with a usable timestamp.
type dated struct {
	session *session.Session
	at      time.Time
}

// Analyze computes the all-time period and one period per window.
// Sessions whose timestamp was inferred at load time or cannot be parsed
// count in the all-time totals and model breakdown only.
func Analyze(sessions []*session.Session, opts ...Option) (*Report, error) {
	o := &options{
		windows:  append([]int{}, constants.DefaultWindows...),
		location: time.Local,
		now:      time.Now(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	var withTime []dated
	for _, s := range sessions {
		if s.Provenance.TimestampInferred {
			continue
		}
		at, ok := report.ParseTimestamp(s.Timestamp)
		if !ok {
			continue
		}
		withTime = append(withTime, dated{session: s, at: at})
	}

	r := &Report{
		GeneratedAt: o.now,
		Timezone:    o.location.String(),
		Sessions:    len(sessions),
		Undated:     len(sessions) - len(withTime),
	}

	all := newPeriod(AllTime)
	for _, s := range sessions {
		all.Totals.add(s)
		all.model(s)
	}
	all.finish(withTime, o.location)
	r.Periods = append(r.Periods, *all)

	for _, days := range o.windows {
		since := o.now.Add(-time.Duration(days) * 24 * time.Hour)
		p := newPeriod(WindowName(days))
		p.Days = days
		p.Since = &since

		var in []dated
		for _, d := range withTime {
			if d.at.Before(since) {
				continue
			}
			in = append(in, d)
			p.Totals.add(d.session)
			p.model(d.session)
		}
		p.finish(in, o.location)
		r.Periods = append(r.Periods, *p)
	}

	return r, nil
}

func newPeriod(name string) *Period {
	return &Period{
		Name:   name,
		Models: make(map[string]Totals),
		Daily:  []Day{},
	}
}

func (p *Period) model(s *session.Session) {
	name := s.Model
	if name == "" {
		name = constants.UnknownModel
	}
	t := p.Models[name]
	t.add(s)
	p.Models[name] = t
}

// finish fills the daily breakdown, newest day first, and the averages
// derived from the most recent active days.
func (p *Period) finish(sessions []dated, loc *time.Location) {
	p.TotalTokens = p.Totals.Tokens()
	p.Totals.Cost = report.Round(p.Totals.Cost, constants.CostPrecision)

	byDay := make(map[string]*Totals)
	for _, d := range sessions {
		key := d.at.In(loc).Format(DayLayout)
		t, ok := byDay[key]
		if !ok {
			t = &Totals{}
			byDay[key] = t
		}
		t.add(d.session)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	for _, k := range keys {
		t := *byDay[k]
		t.Cost = report.Round(t.Cost, constants.CostPrecision)
		p.Daily = append(p.Daily, Day{Date: k, Totals: t})
	}
	p.ActiveDays = len(p.Daily)

	recent := p.Daily
	if len(recent) > constants.RecentDays {
		recent = recent[:constants.RecentDays]
	}
	p.RecentDays = len(recent)

	var tokens int64
	var cost float64
	for _, d := range recent {
		tokens += d.Tokens()
		cost += d.Cost
	}
	count := max(len(recent), 1)
	p.DailyAvgTokens = float64(tokens) / float64(count)
	p.DailyAvgCost = cost / float64(count)
	p.MonthlyEstTokens = p.DailyAvgTokens * constants.MonthDays
	p.MonthlyEstCost = p.DailyAvgCost * constants.MonthDays
}

// ModelNames returns the models of a period by descending cost, then name.
func (p *Period) ModelNames() []string {
	names := report.SortedKeys(p.Models)
	sort.SliceStable(names, func(i, j int) bool {
		return p.Models[names[i]].Cost > p.Models[names[j]].Cost
	})
	return names
}
