// Package web serves the portfolio page and the endpoints behind its
// interactive parts.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Harish-Uta17/portfolio/internal/contact"
	"github.com/Harish-Uta17/portfolio/internal/content"
	"github.com/Harish-Uta17/portfolio/internal/kv"
	"github.com/Harish-Uta17/portfolio/internal/profileimage"
	"github.com/Harish-Uta17/portfolio/internal/section"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Options wires a Server.
type Options struct {
	Addr            string
	Content         *content.Portfolio
	Store           kv.Store
	Mailer          *contact.Mailer // nil disables the contact form
	DefaultImageURL string
	ImageLoader     profileimage.Loader
	// MaxUploadBytes caps a chosen file. Zero means no cap.
	MaxUploadBytes int64
	// AdminUser and AdminPassword gate profile picture uploads. An empty
	// password disables them.
	AdminUser     string
	AdminPassword string
	Logger        *slog.Logger
}

// Server is the portfolio HTTP server.
type Server struct {
	opts   Options
	log    *slog.Logger
	images *profileimage.Store
	auth   *adminAuth
	tmpl   *template.Template
	hub    *hub
	engine *gin.Engine
}

// New builds the server and its image store. Call Start to serve.
func New(opts Options) (*Server, error) {
	if opts.Content == nil {
		return nil, errors.New("web: content is required")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		opts: opts,
		log:  log.With("component", "web"),
		hub:  newHub(),
	}
	s.images = profileimage.New(opts.Store, profileimage.Options{
		DefaultURL: opts.DefaultImageURL,
		Initials:   opts.Content.Profile.Initials,
		Loader:     opts.ImageLoader,
		Logger:     log,
		OnChange:   s.avatarChanged,
		MaxBytes:   opts.MaxUploadBytes,
	})

	auth, err := newAdminAuth(opts.AdminUser, opts.AdminPassword, s.log)
	if err != nil {
		return nil, err
	}
	s.auth = auth

	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	s.tmpl = tmpl
	s.engine = s.buildRouter()
	return s, nil
}

var templateFuncs = template.FuncMap{
	"join":  strings.Join,
	"label": func(id section.ID) string { return section.Label(id) },
}

func (s *Server) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(requestID(), gin.Logger(), gin.Recovery())
	r.SetHTMLTemplate(s.tmpl)
	if s.opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = s.opts.MaxUploadBytes + multipartSlack
	}

	static, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.handleIndex)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/profile/avatar", s.handleAvatar)
	r.GET("/profile/image", s.handleImage)
	r.POST("/profile/image", s.auth.require(s.denyUpload), s.handleUpload)

	r.GET("/admin/login", s.auth.handleLoginPage)
	r.POST("/admin/login", s.auth.handleLogin)
	r.GET("/admin/logout", s.auth.handleLogout)

	r.POST("/api/scroll", s.handleScroll)
	r.GET("/ws/view", s.handleView)

	r.GET("/contact-form", s.handleContactForm)
	r.POST("/contact", s.handleContact)
	return r
}

// requestID tags every request so access logs and app logs can be joined.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Images returns the profile image store.
func (s *Server) Images() *profileimage.Store { return s.images }

// Start loads the saved profile image and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.images.Initialize(ctx); err != nil {
		s.log.Warn("using default profile image", "error", err)
	}

	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("portfolio listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.closeAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
