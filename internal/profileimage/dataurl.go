package profileimage

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const dataScheme = "data:"

var errNotDataURL = errors.New("not a base64 data URL")

// EncodeDataURL encodes raw file bytes as a self-contained data URL. The
// media type is sniffed from the content; nothing is rejected here.
func EncodeDataURL(data []byte) string {
	mt, _, _ := strings.Cut(mimetype.Detect(data).String(), ";")
	return dataScheme + mt + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL returns the media type and bytes held by a base64 data URL.
func DecodeDataURL(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, errNotDataURL
	}
	meta, payload, ok := strings.Cut(s[len(dataScheme):], ",")
	if !ok {
		return "", nil, errNotDataURL
	}
	mt, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, errNotDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, err
	}
	if mt == "" {
		mt = "text/plain"
	}
	return mt, data, nil
}

// rasterTypes are the media types the loader can decode and the image
// endpoint will serve.
var rasterTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
	"image/webp": true,
}

// IsRasterType reports whether mt is a decodable bitmap format. SVG is not:
// it can carry script.
func IsRasterType(mt string) bool {
	return rasterTypes[mt]
}

// IsDataURL reports whether s carries its bytes inline.
func IsDataURL(s string) bool {
	return strings.HasPrefix(s, dataScheme)
}
