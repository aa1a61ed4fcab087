package scroll

import (
	"sync"

	"github.com/Harish-Uta17/portfolio/internal/section"
)

// Layout places one section in document coordinates.
type Layout struct {
	ID     section.ID
	Top    float64
	Height float64
}

// Page is an in-memory Viewport over a fixed layout. Scrolls land
// immediately; the requested behavior is only recorded.
type Page struct {
	mu             sync.Mutex
	layout         []Layout
	viewportHeight float64
	documentHeight float64
	offset         float64
	lastBehavior   Behavior
}

// NewPage builds a page whose document ends at the bottom of its lowest
// section, or at the viewport height if that is taller.
func NewPage(viewportHeight float64, layout ...Layout) *Page {
	doc := viewportHeight
	for _, l := range layout {
		if b := l.Top + l.Height; b > doc {
			doc = b
		}
	}
	return &Page{
		layout:         layout,
		viewportHeight: viewportHeight,
		documentHeight: doc,
	}
}

// MaxScroll is the largest reachable offset.
func (p *Page) MaxScroll() float64 {
	return p.documentHeight - p.viewportHeight
}

func (p *Page) Offset() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset
}

// LastBehavior returns the behavior of the most recent ScrollTo.
func (p *Page) LastBehavior() Behavior {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastBehavior
}

func (p *Page) SectionOffset(id section.ID) (float64, bool) {
	for _, l := range p.layout {
		if l.ID == id {
			return l.Top, true
		}
	}
	return 0, false
}

// ScrollTo moves to offset, clamped to the scrollable range.
func (p *Page) ScrollTo(offset float64, behavior Behavior) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if offset > p.MaxScroll() {
		offset = p.MaxScroll()
	}
	if offset < 0 {
		offset = 0
	}
	p.offset = offset
	p.lastBehavior = behavior
}

// Metrics reports the page as a scroll event would.
func (p *Page) Metrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	boxes := make(map[section.ID]Box, len(p.layout))
	for _, l := range p.layout {
		top := l.Top - p.offset
		boxes[l.ID] = Box{Top: top, Bottom: top + l.Height}
	}
	return Metrics{
		Offset:         p.offset,
		DocumentHeight: p.documentHeight,
		ViewportHeight: p.viewportHeight,
		Sections:       boxes,
	}
}

// StackedLayout lays the given sections out top to bottom with the given
// heights, in order, reusing heights cyclically. It returns nil when heights
// is empty.
func StackedLayout(ids []section.ID, heights []float64) []Layout {
	if len(heights) == 0 {
		return nil
	}
	out := make([]Layout, 0, len(ids))
	var top float64
	for i, id := range ids {
		h := heights[i%len(heights)]
		out = append(out, Layout{ID: id, Top: top, Height: h})
		top += h
	}
	return out
}
