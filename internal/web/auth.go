package web

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const adminCookie = "admin_token"

// adminAuth guards the endpoints that change what every visitor sees. The
// session token and the IP hashing salt are regenerated on every start, so
// a restart logs the owner out.
type adminAuth struct {
	user     string
	password string
	token    string
	salt     string
	log      *slog.Logger
}

func newAdminAuth(user, password string, log *slog.Logger) (*adminAuth, error) {
	token, err := randomHex()
	if err != nil {
		return nil, fmt.Errorf("generating admin token: %w", err)
	}
	salt, err := randomHex()
	if err != nil {
		return nil, fmt.Errorf("generating hashing salt: %w", err)
	}
	if user == "" {
		user = "admin"
	}
	a := &adminAuth{user: user, password: password, token: token, salt: salt, log: log}
	if a.enabled() {
		log.Info("admin login available", "path", "/admin/login")
		if gin.Mode() == gin.DebugMode {
			log.Debug("admin token (dev only)", "token", token)
		}
	} else {
		log.Warn("no admin password set, profile picture uploads disabled")
	}
	return a, nil
}

func randomHex() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (a *adminAuth) enabled() bool { return a.password != "" }

// authorized reports whether the request carries the current admin cookie.
func (a *adminAuth) authorized(r *http.Request) bool {
	if !a.enabled() {
		return false
	}
	ck, err := r.Cookie(adminCookie)
	return err == nil && subtle.ConstantTimeCompare([]byte(ck.Value), []byte(a.token)) == 1
}

// require aborts with deny unless the request is authorized.
func (a *adminAuth) require(deny gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.authorized(c.Request) {
			a.log.Warn("unauthorized admin request", "path", c.Request.URL.Path, "client", a.hashIP(c.ClientIP()))
			deny(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

// hashIP keeps client addresses out of the logs while still letting repeated
// attempts from one address be correlated.
func (a *adminAuth) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + a.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (a *adminAuth) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(adminCookie, value, maxAge, "/", "", c.Request.TLS != nil, true)
}

func (a *adminAuth) handleLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "admin-login", gin.H{"title": "Admin Login", "enabled": a.enabled()})
}

func (a *adminAuth) handleLogin(c *gin.Context) {
	if !a.enabled() {
		c.HTML(http.StatusForbidden, "admin-login", gin.H{"title": "Admin Login", "error": "Admin login is disabled."})
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(c.PostForm("username")), []byte(a.user)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(c.PostForm("password")), []byte(a.password)) == 1
	if !userOK || !passOK {
		a.log.Warn("failed admin login", "client", a.hashIP(c.ClientIP()))
		c.HTML(http.StatusUnauthorized, "admin-login", gin.H{"title": "Admin Login", "enabled": true, "error": "Invalid credentials"})
		return
	}
	a.setCookie(c, a.token, 3600*24)
	a.log.Info("admin login", "client", a.hashIP(c.ClientIP()))
	c.Redirect(http.StatusFound, "/")
}

func (a *adminAuth) handleLogout(c *gin.Context) {
	a.setCookie(c, "", -1)
	c.Redirect(http.StatusFound, "/")
}
