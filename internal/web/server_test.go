package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Harish-Uta17/portfolio/internal/contact"
	"github.com/Harish-Uta17/portfolio/internal/content"
	"github.com/Harish-Uta17/portfolio/internal/kv"
	"github.com/Harish-Uta17/portfolio/internal/profileimage"
	"github.com/Harish-Uta17/portfolio/internal/scroll"
	"github.com/Harish-Uta17/portfolio/internal/section"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testDefaultURL = "https://images.example.com/me.jpg"

// fakeLoader decodes data URLs for real and accepts the default URL.
type fakeLoader struct{}

func (fakeLoader) Load(ctx context.Context, source string) error {
	if profileimage.IsDataURL(source) {
		return (&profileimage.ImageLoader{}).Load(ctx, source)
	}
	return nil
}

const testAdminPassword = "correct horse"

func newTestServer(t *testing.T, store kv.Store, mailer *contact.Mailer, mods ...func(*Options)) *Server {
	t.Helper()
	if store == nil {
		db, err := kv.OpenMemory()
		if err != nil {
			t.Fatalf("opening test db: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		store = db
	}
	p, err := content.Default()
	if err != nil {
		t.Fatalf("loading content: %v", err)
	}
	opts := Options{
		Content:         p,
		Store:           store,
		Mailer:          mailer,
		DefaultImageURL: testDefaultURL,
		ImageLoader:     fakeLoader{},
		MaxUploadBytes:  1 << 20,
		AdminPassword:   testAdminPassword,
	}
	for _, mod := range mods {
		mod(&opts)
	}
	s, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "me.png")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()
	return &body, mw.FormDataContentType()
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	body, ct := multipartBody(t, field, data)
	req := httptest.NewRequest(http.MethodPost, "/profile/image", body)
	req.Header.Set("Content-Type", ct)
	return req
}

// asAdmin attaches the session cookie a successful login would set.
func asAdmin(s *Server, req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: s.auth.token})
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("got %d %s", w.Code, w.Body.String())
	}
}

func TestIndexRendersEverySection(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, id := range section.All {
		if !strings.Contains(body, `id="`+string(id)+`"`) {
			t.Errorf("section %q not rendered", id)
		}
	}
	for _, want := range []string{"Uta Harish Kumar", "House Price Prediction System", "YBI Foundation", "Prompt Engineering", "width: 88%", "<strong>92%"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// Nothing has been loaded yet, so the initials stand in.
	if !strings.Contains(body, ">UH</div>") {
		t.Error("expected placeholder initials before initialization")
	}
	if strings.Contains(body, "/contact-form") {
		t.Error("contact form should be hidden without a mailer")
	}
}

func TestIndexShowsDefaultImageAfterInit(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.Images().Initialize(testContext(t))
	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Body.String(), `src="`+testDefaultURL+`"`) {
		t.Error("expected default image in page")
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/profile/image", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != testDefaultURL {
		t.Errorf("expected redirect to default, got %d %q", w.Code, w.Header().Get("Location"))
	}
}

func TestImageNotFoundBeforeInit(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := serve(s, httptest.NewRequest(http.MethodGet, "/profile/image", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestUploadPersistsAcrossRestart(t *testing.T) {
	db, err := kv.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	s := newTestServer(t, db, nil)
	s.Images().Initialize(testContext(t))

	img := pngBytes(t)
	w := serve(s, asAdmin(s, uploadRequest(t, "image", img)))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "/profile/image?v=") {
		t.Errorf("avatar fragment should point at the override: %s", w.Body.String())
	}

	w = serve(s, httptest.NewRequest(http.MethodGet, "/profile/image", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" || !bytes.Equal(w.Body.Bytes(), img) {
		t.Fatalf("serving override: %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	restarted := newTestServer(t, db, nil)
	if err := restarted.Images().Initialize(testContext(t)); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	w = serve(restarted, httptest.NewRequest(http.MethodGet, "/profile/image", nil))
	if !bytes.Equal(w.Body.Bytes(), img) {
		t.Error("override lost across restart")
	}
}

func TestUploadWithoutFile(t *testing.T) {
	s := newTestServer(t, nil, nil)
	w := serve(s, asAdmin(s, uploadRequest(t, "other", pngBytes(t))))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "No photo was selected") {
		t.Errorf("missing notice: %s", w.Body.String())
	}
}

func TestUploadQuotaExceeded(t *testing.T) {
	db, err := kv.OpenMemory(kv.WithMaxValueBytes(10))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	s := newTestServer(t, db, nil)

	w := serve(s, asAdmin(s, uploadRequest(t, "image", pngBytes(t))))
	body := w.Body.String()
	if w.Code != http.StatusOK || !strings.Contains(body, "could not be saved") {
		t.Errorf("expected persistence notice, got %d %s", w.Code, body)
	}
	if !strings.Contains(body, "/profile/image?v=") {
		t.Error("new image should still be displayed")
	}
}

func TestAnonymousUploadRejected(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.Images().Initialize(testContext(t))
	before := s.Images().Source()

	w := serve(s, uploadRequest(t, "image", pngBytes(t)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if s.Images().Source() != before {
		t.Error("anonymous upload changed the image")
	}

	req := uploadRequest(t, "image", pngBytes(t))
	req.AddCookie(&http.Cookie{Name: adminCookie, Value: "guess"})
	if w := serve(s, req); w.Code != http.StatusUnauthorized {
		t.Errorf("forged cookie accepted: %d", w.Code)
	}

	page := serve(s, httptest.NewRequest(http.MethodGet, "/", nil)).Body.String()
	if strings.Contains(page, "avatar-form") || strings.Contains(page, "Change Photo") {
		t.Error("upload controls shown to an anonymous visitor")
	}
}

func TestUploadsDisabledWithoutPassword(t *testing.T) {
	s := newTestServer(t, nil, nil, func(o *Options) { o.AdminPassword = "" })
	w := serve(s, asAdmin(s, uploadRequest(t, "image", pngBytes(t))))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with uploads disabled, got %d", w.Code)
	}
	form := url.Values{"username": {"admin"}, "password": {""}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := serve(s, req); w.Code != http.StatusForbidden {
		t.Errorf("expected login to be refused, got %d", w.Code)
	}
}

func TestAdminLogin(t *testing.T) {
	s := newTestServer(t, nil, nil)
	login := func(user, pass string) *httptest.ResponseRecorder {
		form := url.Values{"username": {user}, "password": {pass}}
		req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return serve(s, req)
	}

	if w := login("admin", "wrong"); w.Code != http.StatusUnauthorized || len(w.Result().Cookies()) != 0 {
		t.Errorf("bad password: %d, cookies %v", w.Code, w.Result().Cookies())
	}

	w := login("admin", testAdminPassword)
	if w.Code != http.StatusFound {
		t.Fatalf("expected redirect after login, got %d", w.Code)
	}
	var session *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == adminCookie {
			session = ck
		}
	}
	if session == nil || !session.HttpOnly || session.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected session cookie %+v", session)
	}

	req := uploadRequest(t, "image", pngBytes(t))
	req.AddCookie(session)
	if w := serve(s, req); w.Code != http.StatusOK {
		t.Errorf("upload after login: %d %s", w.Code, w.Body.String())
	}

	page := httptest.NewRequest(http.MethodGet, "/", nil)
	page.AddCookie(session)
	if body := serve(s, page).Body.String(); !strings.Contains(body, "avatar-form") {
		t.Error("upload form missing for the logged-in owner")
	}
}

func TestNonImageUploadNeverServed(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.Images().Initialize(testContext(t))

	payload := []byte("<!DOCTYPE html><html><body><script>alert(document.cookie)</script></body></html>")
	w := serve(s, asAdmin(s, uploadRequest(t, "image", payload)))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d", w.Code)
	}

	check := func() {
		t.Helper()
		w := serve(s, httptest.NewRequest(http.MethodGet, "/profile/image", nil))
		if w.Code == http.StatusOK || strings.Contains(w.Body.String(), "<script>") {
			t.Errorf("non-image served: %d %q", w.Code, w.Header().Get("Content-Type"))
		}
		if loc := w.Header().Get("Location"); strings.HasPrefix(loc, "data:") {
			t.Errorf("redirected to inline data %.40q", loc)
		}
		if w.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing nosniff header")
		}
	}
	check()

	deadline := time.Now().Add(5 * time.Second)
	for s.Images().Display().Status == profileimage.Unverified && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if d := s.Images().Display(); d.Status != profileimage.Broken {
		t.Fatalf("expected broken status, got %+v", d)
	}
	check()
}

func TestUploadOverLimitKeepsImage(t *testing.T) {
	s := newTestServer(t, nil, nil, func(o *Options) { o.MaxUploadBytes = 1024 })
	s.Images().Initialize(testContext(t))
	before := s.Images().Source()

	for _, size := range []int{2048, 512 << 10} {
		w := serve(s, asAdmin(s, uploadRequest(t, "image", bytes.Repeat([]byte{0xff}, size))))
		if w.Code != http.StatusRequestEntityTooLarge || !strings.Contains(w.Body.String(), "too large") {
			t.Errorf("size %d: got %d %s", size, w.Code, w.Body.String())
		}
		if s.Images().Source() != before {
			t.Errorf("size %d: oversized upload replaced the image", size)
		}
	}
}

func TestScrollAPI(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := scrollRequest{
		Metrics: scroll.Metrics{
			Offset: 600, DocumentHeight: 4000, ViewportHeight: 1000,
			Sections: map[section.ID]scroll.Box{
				section.About:      {Top: 100, Bottom: 800},
				section.Experience: {Top: 780, Bottom: 1400},
			},
		},
		Active: "home",
	}
	raw, _ := json.Marshal(req)
	w := serve(s, httptest.NewRequest(http.MethodPost, "/api/scroll", bytes.NewReader(raw)))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st scroll.State
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Active != section.About || !st.ScrolledPastThreshold || !st.ShowBackToTop || st.Percent != 20 {
		t.Errorf("unexpected state %+v", st)
	}

	w = serve(s, httptest.NewRequest(http.MethodPost, "/api/scroll", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", w.Code)
	}
}

func TestContactWithoutMailer(t *testing.T) {
	s := newTestServer(t, nil, nil)
	form := url.Values{"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {"hi"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(s, req)
	if !strings.Contains(w.Body.String(), "error sending your message") {
		t.Errorf("expected error fragment, got %s", w.Body.String())
	}
}

func TestContactSends(t *testing.T) {
	var sent []byte
	mailer := &contact.Mailer{
		Host: "smtp.example.com", Port: "587", User: "owner@example.com", Pass: "pw",
		Send: func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
			sent = msg
			return nil
		},
	}
	s := newTestServer(t, nil, mailer)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(w.Body.String(), "/contact-form") {
		t.Error("contact form should be offered with a mailer")
	}

	form := url.Values{"fullName": {"Ada"}, "email": {"ada@example.com"}, "message": {"Hello there"}}
	req := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(s, req)
	if !strings.Contains(w.Body.String(), "Thank you for your message") {
		t.Errorf("expected success fragment, got %s", w.Body.String())
	}
	if !bytes.Contains(sent, []byte("Hello there")) {
		t.Error("message not delivered")
	}

	form.Set("email", "nope")
	req = httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(s, req)
	body, _ := io.ReadAll(w.Body)
	if !strings.Contains(string(body), "invalid email address") {
		t.Errorf("expected validation error, got %s", body)
	}
}

// testContext stands in for testing.T.Context, which needs Go 1.24: the
// context is canceled when the test finishes.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
