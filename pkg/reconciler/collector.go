package reconciler

import (
	"github.com/agentstation/usagesync/pkg/session"
)

// group holds every loaded copy of one session id.
type group struct {
	id       string
	sessions []*session.Session
}

// collector groups sessions by id, remembering the order ids were first seen.
type collector struct {
	groups map[string]*group
	order  []string
}

// newCollector creates an empty collector.
func newCollector() *collector {
	return &collector{groups: make(map[string]*group)}
}

// add appends sessions to their groups.
func (c *collector) add(sessions ...*session.Session) {
	for _, s := range sessions {
		g, ok := c.groups[s.SessionID]
		if !ok {
			g = &group{id: s.SessionID}
			c.groups[s.SessionID] = g
			c.order = append(c.order, s.SessionID)
		}
		g.sessions = append(g.sessions, s)
	}
}

// list returns the groups in first-seen order.
func (c *collector) list() []*group {
	groups := make([]*group, 0, len(c.order))
	for _, id := range c.order {
		groups = append(groups, c.groups[id])
	}
	return groups
}
