package types

import (
	"fmt"
	"strings"
)

// DefaultMimeType is sent for images whose picker did not report a type.
const DefaultMimeType = "image/jpeg"

// SelectedImage is one image yielded by a selection gateway.
// Empty FileName or MimeType means the picker did not supply it.
type SelectedImage struct {
	URI      string `json:"uri" yaml:"uri"`
	FileName string `json:"fileName,omitempty" yaml:"file_name,omitempty"`
	MimeType string `json:"mimeType,omitempty" yaml:"mime_type,omitempty"`
	Bytes    int64  `json:"bytes,omitempty" yaml:"bytes,omitempty"` // file size, 0 if unknown
}

// Name returns the name used both as the upload file name and as the key
// results are matched against: FileName if present, otherwise the last
// "/"-delimited segment of the URI.
func (s SelectedImage) Name() string {
	if s.FileName != "" {
		return s.FileName
	}
	if i := strings.LastIndex(s.URI, "/"); i >= 0 {
		return s.URI[i+1:]
	}
	return s.URI
}

// ContentType returns the MIME type for the upload part.
func (s SelectedImage) ContentType() string {
	if s.MimeType != "" {
		return s.MimeType
	}
	return DefaultMimeType
}

// String returns a human-readable representation
func (s SelectedImage) String() string {
	return fmt.Sprintf("%s (%s)", s.Name(), s.ContentType())
}

// Size is the natural pixel size of an image.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// UnknownSize stands in for dimensions that have not been probed yet.
// Boxes scaled against it collapse to near-invisible rectangles.
var UnknownSize = Size{Width: 1, Height: 1}

// IsZero reports whether either side is non-positive.
func (s Size) IsZero() bool {
	return s.Width <= 0 || s.Height <= 0
}

// ImageDimensions maps an image URI to its natural size.
type ImageDimensions map[string]Size

// Get returns the size for uri, or UnknownSize when it is not known yet.
func (d ImageDimensions) Get(uri string) Size {
	if s, ok := d[uri]; ok && !s.IsZero() {
		return s
	}
	return UnknownSize
}

// Clone returns an independent copy.
func (d ImageDimensions) Clone() ImageDimensions {
	out := make(ImageDimensions, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
