// Package media resolves selected image URIs to readable files and
// describes image files found on disk.
package media

import (
	"io"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"detectview/internal/errors"
	"detectview/pkg/types"
)

var extensions = []string{"jpg", "jpeg", "png", "gif", "bmp", "webp", "tif", "tiff"}

// DefaultPattern matches the image file names offered for selection.
var DefaultPattern = "*.{" + strings.Join(extensions, ",") + "}"

// Extensions returns the image extensions offered for selection, each with
// its leading dot.
func Extensions() []string {
	out := make([]string, len(extensions))
	for i, ext := range extensions {
		out[i] = "." + ext
	}
	return out
}

// Matcher reports whether a file name looks like a selectable image.
// Matching is case-insensitive.
type Matcher struct {
	pattern string
	g       glob.Glob
}

// NewMatcher compiles pattern. An empty pattern uses DefaultPattern.
func NewMatcher(pattern string) (*Matcher, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, errors.NewConfigError("invalid image pattern", pattern, errors.InvalidConfig, err)
	}
	return &Matcher{pattern: pattern, g: g}, nil
}

var defaultMatcher = glob.MustCompile(DefaultPattern)

// Match reports whether the base name of path matches.
func (m *Matcher) Match(path string) bool {
	return m.g.Match(strings.ToLower(filepath.Base(path)))
}

// Pattern returns the source pattern.
func (m *Matcher) Pattern() string {
	return m.pattern
}

// IsImage reports whether path has a known image extension.
func IsImage(path string) bool {
	return defaultMatcher.Match(strings.ToLower(filepath.Base(path)))
}

// Path converts a URI to a local file path. Plain paths are returned
// unchanged; file:// URIs are decoded.
func Path(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		return uri, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.NewFileError("invalid image uri", uri, errors.InvalidImage, err)
	}
	if u.Scheme != "file" {
		return "", errors.NewFileError("unsupported uri scheme "+u.Scheme, uri, errors.InvalidImage, nil)
	}
	return filepath.FromSlash(u.Path), nil
}

// URI returns the file:// URI for an absolute or relative path.
func URI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Open opens the image behind uri for reading.
func Open(uri string) (io.ReadCloser, error) {
	path, err := Path(uri)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fileError("cannot open image", path, err)
	}
	return f, nil
}

// Describe builds a SelectedImage for the file at path.
func Describe(path string) (types.SelectedImage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.SelectedImage{}, fileError("cannot stat image", path, err)
	}
	if info.IsDir() {
		return types.SelectedImage{}, errors.NewFileError("not a file", path, errors.InvalidImage, nil)
	}
	return types.SelectedImage{
		URI:      URI(path),
		FileName: info.Name(),
		MimeType: MimeType(path),
		Bytes:    info.Size(),
	}, nil
}

// MimeType guesses the content type from the extension. Unknown
// extensions yield "" so the upload default applies.
func MimeType(path string) string {
	t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(t, "image/") {
		return ""
	}
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return t
}

// CheckReadable opens and closes path, mapping failures to error kinds.
func CheckReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fileError("cannot read image", path, err)
	}
	return f.Close()
}

func fileError(msg, path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return errors.NewFileError(msg, path, errors.FileNotFound, err)
	case os.IsPermission(err):
		return errors.NewFileError(msg, path, errors.FileAccessDenied, err)
	default:
		return errors.NewFileError(msg, path, errors.Unknown, err)
	}
}
