package web

import (
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/Harish-Uta17/portfolio/internal/profileimage"
	"github.com/Harish-Uta17/portfolio/internal/scroll"
	"github.com/Harish-Uta17/portfolio/internal/section"
)

// The zero CheckOrigin rejects cross-origin upgrades.
var upgrader = websocket.Upgrader{}

const (
	writeWait = 10 * time.Second
	sendQueue = 16
)

var errSessionClosed = errors.New("view session closed")

// viewEvent is what the page sends.
type viewEvent struct {
	Type    string          `json:"type"` // scroll, navigate, top, menu
	Metrics *scroll.Metrics `json:"metrics,omitempty"`
	Section string          `json:"section,omitempty"`
}

// viewMessage is what the server sends back.
type viewMessage struct {
	Type     string          `json:"type"` // state, scrollTo, avatar, error
	State    *scroll.State   `json:"state,omitempty"`
	MenuOpen bool            `json:"menuOpen"`
	Top      float64         `json:"top"`
	Behavior scroll.Behavior `json:"behavior,omitempty"`
	HTML     template.HTML   `json:"html,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// viewConn owns one socket. All writes go through out and are performed by
// writeLoop, so a slow tab never blocks anyone else.
type viewConn struct {
	id    string
	admin bool
	conn  *websocket.Conn
	out   chan viewMessage
	done  chan struct{}
	once  sync.Once
}

func newViewConn(conn *websocket.Conn, admin bool) *viewConn {
	return &viewConn{
		id:    uuid.NewString(),
		admin: admin,
		conn:  conn,
		out:   make(chan viewMessage, sendQueue),
		done:  make(chan struct{}),
	}
}

// send queues m for this session, waiting for room.
func (vc *viewConn) send(m viewMessage) error {
	select {
	case vc.out <- m:
		return nil
	case <-vc.done:
		return errSessionClosed
	}
}

// trySend queues m unless the queue is full; it reports whether m was queued.
func (vc *viewConn) trySend(m viewMessage) bool {
	select {
	case <-vc.done:
		return false
	default:
	}
	select {
	case vc.out <- m:
		return true
	default:
		return false
	}
}

func (vc *viewConn) writeLoop(log *slog.Logger) {
	for {
		select {
		case m := <-vc.out:
			vc.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := vc.conn.WriteJSON(m); err != nil {
				log.Debug("websocket write", "error", err)
				vc.close()
				return
			}
		case <-vc.done:
			return
		}
	}
}

// close ends the session; the read loop sees the closed socket and returns.
func (vc *viewConn) close() {
	vc.once.Do(func() {
		close(vc.done)
		vc.conn.Close()
	})
}

// remoteViewport is the browser tab as seen through its last scroll event.
type remoteViewport struct {
	vc   *viewConn
	last scroll.Metrics
}

func (rv *remoteViewport) SectionOffset(id section.ID) (float64, bool) {
	box, ok := rv.last.Sections[id]
	if !ok {
		return 0, false
	}
	return rv.last.Offset + box.Top, true
}

func (rv *remoteViewport) ScrollTo(offset float64, behavior scroll.Behavior) {
	rv.vc.send(viewMessage{Type: "scrollTo", Top: offset, Behavior: behavior})
}

// handleView runs one page session: a tracker and navigator per tab.
func (s *Server) handleView(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade", "error", err)
		return
	}
	vc := newViewConn(conn, s.auth.authorized(c.Request))
	log := s.log.With("session", vc.id)
	s.hub.add(vc)
	defer func() {
		s.hub.remove(vc)
		vc.close()
	}()
	go vc.writeLoop(log)
	log.Debug("view session opened")

	vp := &remoteViewport{vc: vc}
	tracker := scroll.NewTracker()
	nav := scroll.NewNavigator(vp)

	sendState := func(st scroll.State) error {
		return vc.send(viewMessage{Type: "state", State: &st, MenuOpen: nav.MenuOpen()})
	}
	if err := sendState(tracker.State()); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("websocket read", "error", err)
			}
			return
		}

		var ev viewEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			vc.send(viewMessage{Type: "error", Error: "invalid message format"})
			continue
		}

		switch ev.Type {
		case "scroll":
			if ev.Metrics == nil {
				vc.send(viewMessage{Type: "error", Error: "metrics are required"})
				continue
			}
			vp.last = *ev.Metrics
			err = sendState(tracker.OnScroll(vp.last))
		case "navigate":
			id, ok := section.Parse(ev.Section)
			if ok && nav.ScrollToSection(id) {
				err = sendState(tracker.State())
			}
		case "top":
			nav.ScrollToTop()
		case "menu":
			nav.ToggleMenu()
			err = sendState(tracker.State())
		default:
			err = vc.send(viewMessage{Type: "error", Error: "unknown message type: " + ev.Type})
		}
		if err != nil {
			return
		}
	}
}

// avatarChanged pushes the new avatar to every open page.
func (s *Server) avatarChanged(d profileimage.Display) {
	if s.tmpl == nil {
		return
	}
	public, err := s.renderAvatar(d, false)
	if err != nil {
		s.log.Error("rendering avatar", "error", err)
		return
	}
	admin, err := s.renderAvatar(d, true)
	if err != nil {
		s.log.Error("rendering avatar", "error", err)
		return
	}
	s.hub.broadcast(func(vc *viewConn) viewMessage {
		if vc.admin {
			return viewMessage{Type: "avatar", HTML: admin}
		}
		return viewMessage{Type: "avatar", HTML: public}
	}, s.log)
}

// hub tracks open view sessions.
type hub struct {
	mu    sync.Mutex
	conns map[*viewConn]struct{}
}

func newHub() *hub {
	return &hub{conns: make(map[*viewConn]struct{})}
}

func (h *hub) add(vc *viewConn) {
	h.mu.Lock()
	h.conns[vc] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(vc *viewConn) {
	h.mu.Lock()
	delete(h.conns, vc)
	h.mu.Unlock()
}

func (h *hub) snapshot() []*viewConn {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*viewConn, 0, len(h.conns))
	for vc := range h.conns {
		out = append(out, vc)
	}
	return out
}

// broadcast queues a message for every session without waiting on any of
// them. Sessions whose queue is full miss the update.
func (h *hub) broadcast(msg func(*viewConn) viewMessage, log *slog.Logger) {
	for _, vc := range h.snapshot() {
		if !vc.trySend(msg(vc)) {
			log.Debug("dropped broadcast for slow session", "session", vc.id)
		}
	}
}

func (h *hub) closeAll() {
	for _, vc := range h.snapshot() {
		vc.close()
	}
}
