// Package highlight manages transient visual markers correlated to playback
// times. The player calls into it but does not own its contents; the server
// exposes the current set to the dashboard.
package highlight

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Highlight is one marker on the playback timeline.
type Highlight struct {
	ID     string `json:"id"`
	NodeID int    `json:"node_id,omitempty"`
	TimeMs int64  `json:"time_ms"`
	Text   string `json:"text,omitempty"`
	Color  string `json:"color,omitempty"`
}

// Controller holds the active highlight set.
// Thread-safe for concurrent use.
type Controller struct {
	mu    sync.RWMutex
	items map[string]Highlight
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{items: make(map[string]Highlight)}
}

// AddHighlight registers a marker, assigning an ID when none is set,
// and returns the ID.
func (c *Controller) AddHighlight(h Highlight) string {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[h.ID] = h
	return h.ID
}

// RemoveHighlight removes the marker with the given ID, if present.
func (c *Controller) RemoveHighlight(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
}

// ClearAllHighlights removes every marker.
func (c *Controller) ClearAllHighlights() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]Highlight)
}

// Snapshot returns the current markers ordered by time.
func (c *Controller) Snapshot() []Highlight {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Highlight, 0, len(c.items))
	for _, h := range c.items {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeMs != out[j].TimeMs {
			return out[i].TimeMs < out[j].TimeMs
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of active markers.
func (c *Controller) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
