package profileimage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader checks that an image source can actually be displayed.
type Loader interface {
	Load(ctx context.Context, source string) error
}

// ImageLoader decodes the image header of a data URL, or of the body
// returned for an http(s) URL.
type ImageLoader struct {
	Client *http.Client
}

// NewImageLoader returns a loader whose remote fetches give up after timeout.
func NewImageLoader(timeout time.Duration) *ImageLoader {
	return &ImageLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *ImageLoader) Load(ctx context.Context, source string) error {
	switch {
	case IsDataURL(source):
		_, data, err := DecodeDataURL(source)
		if err != nil {
			return fmt.Errorf("decoding data URL: %w", err)
		}
		return decodeHeader(bytes.NewReader(data))
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return l.fetch(ctx, source)
	default:
		return fmt.Errorf("unsupported image source %.32q", source)
	}
}

func (l *ImageLoader) fetch(ctx context.Context, url string) error {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	return decodeHeader(resp.Body)
}

func decodeHeader(r io.Reader) error {
	if _, _, err := image.DecodeConfig(r); err != nil {
		return fmt.Errorf("decoding image: %w", err)
	}
	return nil
}
