package web

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Harish-Uta17/portfolio/internal/contact"
	"github.com/Harish-Uta17/portfolio/internal/content"
	"github.com/Harish-Uta17/portfolio/internal/profileimage"
	"github.com/Harish-Uta17/portfolio/internal/scroll"
	"github.com/Harish-Uta17/portfolio/internal/section"
)

type navItem struct {
	ID     section.ID
	Label  string
	Active bool
}

type avatarView struct {
	Image     bool
	Src       string
	Initials  string
	Notice    string
	Failed    bool
	CanChange bool
}

type pageView struct {
	*content.Portfolio
	Nav         []navItem
	Avatar      avatarView
	State       scroll.State
	MailEnabled bool
	Admin       bool
	Year        int
}

func (s *Server) avatarView(d profileimage.Display, admin bool) avatarView {
	v := avatarView{Initials: d.Initials, CanChange: admin}
	if d.Kind != profileimage.KindImage {
		return v
	}
	v.Image = true
	v.Src = d.Source
	if d.Override {
		// Data URLs are served from their own endpoint; html/template
		// would refuse them in src.
		v.Src = "/profile/image?v=" + d.Version
	}
	return v
}

func navItems(active section.ID) []navItem {
	items := make([]navItem, len(section.All))
	for i, id := range section.All {
		items[i] = navItem{ID: id, Label: section.Label(id), Active: id == active}
	}
	return items
}

func (s *Server) handleIndex(c *gin.Context) {
	state := scroll.NewTracker().State()
	admin := s.auth.authorized(c.Request)
	c.HTML(http.StatusOK, "index.html", pageView{
		Portfolio:   s.opts.Content,
		Nav:         navItems(state.Active),
		Avatar:      s.avatarView(s.images.Display(), admin),
		State:       state,
		MailEnabled: s.opts.Mailer != nil,
		Admin:       admin,
		Year:        time.Now().Year(),
	})
}

func (s *Server) handleAvatar(c *gin.Context) {
	c.HTML(http.StatusOK, "avatar", s.avatarView(s.images.Display(), s.auth.authorized(c.Request)))
}

// handleImage serves a chosen override, or redirects to the remote default.
// Only decodable raster images are ever served from this origin.
func (s *Server) handleImage(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	if ct, data, ok := s.images.Image(); ok {
		c.Header("Content-Security-Policy", "default-src 'none'; sandbox")
		c.Header("Cache-Control", "private, max-age=31536000, immutable")
		c.Data(http.StatusOK, ct, data)
		return
	}
	if d := s.images.Display(); d.Kind == profileimage.KindImage && !d.Override {
		c.Redirect(http.StatusFound, d.Source)
		return
	}
	c.Status(http.StatusNotFound)
}

// multipartSlack covers the form encoding around the file part.
const multipartSlack = 64 << 10

func (s *Server) denyUpload(c *gin.Context) {
	v := s.avatarView(s.images.Display(), false)
	v.Notice, v.Failed = "Log in to change the photo.", true
	c.HTML(http.StatusUnauthorized, "avatar", v)
}

func (s *Server) handleUpload(c *gin.Context) {
	limit := s.opts.MaxUploadBytes
	if limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartSlack)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		v := s.avatarView(s.images.Display(), true)
		v.Failed = true
		status := http.StatusBadRequest
		if tooLarge(err) || (limit > 0 && c.Request.ContentLength > limit+multipartSlack) {
			status = http.StatusRequestEntityTooLarge
			v.Notice = tooLargeNotice
		} else {
			v.Notice = "No photo was selected."
		}
		c.HTML(status, "avatar", v)
		return
	}

	f, err := fh.Open()
	if err == nil {
		err = s.images.SetImage(c.Request.Context(), f)
		f.Close()
	}

	v := s.avatarView(s.images.Display(), true)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, profileimage.ErrPersist):
		v.Notice = "Photo updated, but it could not be saved for your next visit."
	case errors.Is(err, profileimage.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
		v.Notice, v.Failed = tooLargeNotice, true
	default:
		s.log.Warn("profile image upload failed", "file", fh.Filename, "error", err)
		v.Notice, v.Failed = "That file could not be read. Your photo was not changed.", true
	}
	c.HTML(status, "avatar", v)
}

const tooLargeNotice = "That file is too large. Your photo was not changed."

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

type scrollRequest struct {
	scroll.Metrics
	Active string `json:"active"`
}

// handleScroll is the stateless form of the tracker: the caller passes back
// the last active section it was given.
func (s *Server) handleScroll(c *gin.Context) {
	var req scrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scroll metrics"})
		return
	}
	prev, ok := section.Parse(req.Active)
	if !ok {
		prev = section.Home
	}
	c.JSON(http.StatusOK, scroll.Compute(req.Metrics, prev))
}

func (s *Server) handleContactForm(c *gin.Context) {
	c.HTML(http.StatusOK, "contact-form", gin.H{
		"title":   "Contact Me",
		"enabled": s.opts.Mailer != nil,
	})
}

func (s *Server) handleContact(c *gin.Context) {
	msg := contact.Message{
		Name:  c.PostForm("fullName"),
		Email: c.PostForm("email"),
		Body:  c.PostForm("message"),
	}
	if err := msg.Validate(); err != nil {
		c.HTML(http.StatusOK, "contact-result", gin.H{"error": "Please fill in every field: " + err.Error() + "."})
		return
	}
	if s.opts.Mailer == nil {
		c.HTML(http.StatusOK, "contact-result", gin.H{"error": "Sorry, there was an error sending your message. Please try again later."})
		return
	}
	if err := s.opts.Mailer.Deliver(msg); err != nil {
		c.HTML(http.StatusOK, "contact-result", gin.H{"error": "Sorry, there was an error sending your message. Please try again later."})
		return
	}
	c.HTML(http.StatusOK, "contact-result", gin.H{"success": "Thank you for your message! I'll get back to you soon."})
}

// renderAvatar renders the avatar fragment for pushes over the socket.
func (s *Server) renderAvatar(d profileimage.Display, admin bool) (template.HTML, error) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "avatar", s.avatarView(d, admin)); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
