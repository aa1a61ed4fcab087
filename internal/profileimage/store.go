// Package profileimage lets the visitor replace the profile picture with a
// local file. The override is kept as a data URL in the key-value store so it
// survives restarts; without one the remote default is shown, and anything
// that fails to decode falls back to the owner's initials.
package profileimage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/Harish-Uta17/portfolio/internal/kv"
)

// Key is the storage slot holding the override.
const Key = "profileImage"

// DefaultURL is shown until an override is chosen.
const DefaultURL = "https://i.ibb.co/DHbVHgDC/profile-pic.jpg"

// ErrPersist wraps storage failures after the in-memory image was already
// replaced. The new image is displayed but will not survive a restart.
var ErrPersist = errors.New("profile image not persisted")

// ErrTooLarge is returned when a chosen file exceeds Options.MaxBytes. The
// current image is kept.
var ErrTooLarge = errors.New("profile image too large")

// Status is the outcome of the last load check for the active source.
type Status string

const (
	Unverified Status = "unverified"
	Loadable   Status = "loadable"
	Broken     Status = "broken"
)

// Kind says what the avatar slot renders.
type Kind string

const (
	KindImage       Kind = "image"
	KindPlaceholder Kind = "placeholder"
)

// Display is the resolved avatar.
type Display struct {
	Kind     Kind
	Source   string // empty for placeholder
	Initials string
	Status   Status
	Override bool   // Source is a locally chosen image
	Version  string // changes whenever the source does
}

// Options configures a Store.
type Options struct {
	DefaultURL string
	Initials   string
	Loader     Loader
	Logger     *slog.Logger
	// MaxBytes caps the raw size of a chosen file. Zero means no cap.
	MaxBytes int64
	// OnChange is called, outside any lock, after every display change.
	OnChange func(Display)
}

// Store owns the active image source.
type Store struct {
	kv   kv.Store
	opts Options
	log  *slog.Logger

	mu     sync.Mutex
	source string
	status Status
}

func New(store kv.Store, opts Options) *Store {
	if opts.DefaultURL == "" {
		opts.DefaultURL = DefaultURL
	}
	if opts.Initials == "" {
		opts.Initials = "UH"
	}
	if opts.Loader == nil {
		opts.Loader = &ImageLoader{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		kv:     store,
		opts:   opts,
		log:    log.With("component", "profileimage"),
		status: Unverified,
	}
}

// Initialize selects the persisted override, or the default URL when there
// is none, and starts verifying it. A storage read error still leaves the
// default in place and is returned.
func (s *Store) Initialize(ctx context.Context) error {
	saved, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		err = fmt.Errorf("reading saved image: %w", err)
	}
	source := s.opts.DefaultURL
	if ok && saved != "" {
		source = saved
	}

	s.mu.Lock()
	s.source = source
	s.status = Unverified
	d := s.displayLocked()
	s.mu.Unlock()

	s.log.Info("profile image initialized", "override", d.Override)
	s.changed(d)
	s.VerifyLoadable(context.WithoutCancel(ctx), source, nil)
	return err
}

// ChooseImage reads r in the background and hands the result of SetImage to
// done, which may be nil. When selections overlap, the last one to finish
// wins.
func (s *Store) ChooseImage(ctx context.Context, r io.Reader, done func(error)) {
	ctx = context.WithoutCancel(ctx)
	go func() {
		err := s.SetImage(ctx, r)
		if done != nil {
			done(err)
		}
	}()
}

// SetImage reads all of r, makes it the active source and persists it.
//
// A read error leaves the current image untouched. A storage error is
// returned wrapped in ErrPersist after the display has already switched.
func (s *Store) SetImage(ctx context.Context, r io.Reader) error {
	if s.opts.MaxBytes > 0 {
		r = io.LimitReader(r, s.opts.MaxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		s.log.Warn("reading chosen image failed", "error", err)
		return fmt.Errorf("reading image: %w", err)
	}
	if s.opts.MaxBytes > 0 && int64(len(data)) > s.opts.MaxBytes {
		s.log.Warn("chosen image rejected", "limit", humanize.Bytes(uint64(s.opts.MaxBytes)))
		return fmt.Errorf("%w: over %s", ErrTooLarge, humanize.Bytes(uint64(s.opts.MaxBytes)))
	}
	encoded := EncodeDataURL(data)

	s.mu.Lock()
	s.source = encoded
	s.status = Unverified
	d := s.displayLocked()
	persistErr := s.kv.Set(ctx, Key, encoded)
	s.mu.Unlock()

	s.changed(d)
	s.VerifyLoadable(context.WithoutCancel(ctx), encoded, nil)

	if persistErr != nil {
		s.log.Warn("profile image shown but not saved", "size", humanize.Bytes(uint64(len(encoded))), "error", persistErr)
		return fmt.Errorf("%w: %w", ErrPersist, persistErr)
	}
	s.log.Info("profile image override saved", "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// VerifyLoadable checks source in the background. The outcome only applies
// if source is still active when the check finishes. done, if non-nil,
// receives the load error.
func (s *Store) VerifyLoadable(ctx context.Context, source string, done func(error)) {
	go func() {
		err := s.opts.Loader.Load(ctx, source)
		status := Loadable
		if err != nil {
			status = Broken
		}

		s.mu.Lock()
		current := s.source == source
		if current {
			s.status = status
		}
		d := s.displayLocked()
		s.mu.Unlock()

		if current {
			if err != nil {
				s.log.Info("profile image failed to load, showing initials", "override", d.Override, "error", err)
			}
			s.changed(d)
		}
		if done != nil {
			done(err)
		}
	}()
}

// Display resolves what the avatar slot shows right now.
func (s *Store) Display() Display {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayLocked()
}

// Image returns the bytes of a locally chosen image. ok is false when the
// active source is remote, missing, known to be broken, or not a raster
// image type.
func (s *Store) Image() (contentType string, data []byte, ok bool) {
	s.mu.Lock()
	source, status := s.source, s.status
	s.mu.Unlock()

	if status == Broken || !IsDataURL(source) {
		return "", nil, false
	}
	ct, data, err := DecodeDataURL(source)
	if err != nil || !IsRasterType(ct) {
		return "", nil, false
	}
	return ct, data, true
}

// Source returns the active source, which is empty before Initialize.
func (s *Store) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Store) displayLocked() Display {
	d := Display{
		Kind:     KindPlaceholder,
		Initials: s.opts.Initials,
		Status:   s.status,
	}
	if s.source == "" || s.status == Broken {
		return d
	}
	d.Kind = KindImage
	d.Source = s.source
	d.Override = IsDataURL(s.source)
	d.Version = version(s.source)
	return d
}

func (s *Store) changed(d Display) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(d)
	}
}

func version(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:12]
}
