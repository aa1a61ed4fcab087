package scroll

import (
	"sync"

	"github.com/Harish-Uta17/portfolio/internal/section"
)

// Behavior is how a scroll request should be animated.
type Behavior string

const (
	Smooth  Behavior = "smooth"
	Instant Behavior = "instant"
)

// Viewport is the surface navigation drives: a browser tab on the other end
// of a socket, or an in-memory Page.
type Viewport interface {
	// SectionOffset returns the document offset of the top of id, and false
	// when id is not rendered.
	SectionOffset(id section.ID) (float64, bool)
	ScrollTo(offset float64, behavior Behavior)
}

// Navigator handles nav clicks, the back-to-top control and the mobile menu
// overlay.
type Navigator struct {
	vp Viewport

	mu       sync.Mutex
	menuOpen bool
}

func NewNavigator(vp Viewport) *Navigator {
	return &Navigator{vp: vp}
}

// ScrollToSection aligns the top of id with the top of the viewport and
// closes the mobile menu. Unknown or unrendered sections are ignored and
// false is returned.
func (n *Navigator) ScrollToSection(id section.ID) bool {
	offset, ok := n.vp.SectionOffset(id)
	if !ok {
		return false
	}
	n.vp.ScrollTo(offset, Smooth)
	n.mu.Lock()
	n.menuOpen = false
	n.mu.Unlock()
	return true
}

// ScrollToTop scrolls to offset 0.
func (n *Navigator) ScrollToTop() {
	n.vp.ScrollTo(0, Smooth)
}

// ToggleMenu flips the mobile menu and returns the new value.
func (n *Navigator) ToggleMenu() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.menuOpen = !n.menuOpen
	return n.menuOpen
}

func (n *Navigator) MenuOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.menuOpen
}
