// Package scroll derives navigation state from the page's scroll position.
//
// Everything here is a pure recomputation from the metrics of a single scroll
// event, so coalesced or out-of-order events cannot corrupt the state. The
// only thing carried between events is the last active section, which stays
// put when no section crosses the activation line.
package scroll

import (
	"math"
	"sync"

	"github.com/Harish-Uta17/portfolio/internal/section"
)

const (
	// NavThreshold is the offset past which the nav bar turns opaque.
	NavThreshold = 20
	// BackToTopThreshold is the offset past which the back-to-top control shows.
	BackToTopThreshold = 400
	// ActivationLine is the viewport y coordinate that decides the active section.
	ActivationLine = 150
)

// Box is a section's bounding box in viewport coordinates.
type Box struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// Contains reports whether the horizontal line at y crosses the box.
func (b Box) Contains(y float64) bool {
	return b.Top <= y && b.Bottom >= y
}

// Metrics is what a scroll event carries. Sections missing from the map are
// not rendered.
type Metrics struct {
	Offset         float64            `json:"offset"`
	DocumentHeight float64            `json:"documentHeight"`
	ViewportHeight float64            `json:"viewportHeight"`
	Sections       map[section.ID]Box `json:"sections,omitempty"`
}

// State is the derived navigation state.
type State struct {
	ScrolledPastThreshold bool       `json:"scrolled"`
	Percent               float64    `json:"percent"`
	ShowBackToTop         bool       `json:"showBackToTop"`
	Active                section.ID `json:"active"`
}

// Percent returns how far the page is scrolled, in [0,100]. A page no taller
// than its viewport reports 0.
func Percent(offset, documentHeight, viewportHeight float64) float64 {
	span := documentHeight - viewportHeight
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		return 0
	}
	p := 100 * offset / span
	switch {
	case math.IsNaN(p) || p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// ActiveSection returns the first section, in declaration order, whose box
// contains the activation line. When none does, previous is returned.
func ActiveSection(boxes map[section.ID]Box, previous section.ID) section.ID {
	for _, id := range section.All {
		box, ok := boxes[id]
		if ok && box.Contains(ActivationLine) {
			return id
		}
	}
	return previous
}

// Compute derives the full state for m.
func Compute(m Metrics, previous section.ID) State {
	return State{
		ScrolledPastThreshold: m.Offset > NavThreshold,
		Percent:               Percent(m.Offset, m.DocumentHeight, m.ViewportHeight),
		ShowBackToTop:         m.Offset > BackToTopThreshold,
		Active:                ActiveSection(m.Sections, previous),
	}
}

// Tracker keeps the last computed state for one page session.
type Tracker struct {
	mu    sync.Mutex
	state State
}

// NewTracker returns a tracker positioned at the top of the page.
func NewTracker() *Tracker {
	return &Tracker{state: State{Active: section.Home}}
}

// OnScroll recomputes the state from m and returns it.
func (t *Tracker) OnScroll(m Metrics) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = Compute(m, t.state.Active)
	return t.state
}

// State returns the last computed state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
