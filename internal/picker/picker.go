// Package picker provides selection gateways: the sources a screen asks
// for a batch of images.
package picker

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/pkg/types"
)

// PermissionDeniedMessage is shown when the media library cannot be read.
const PermissionDeniedMessage = "Sorry, we need camera roll permissions to make this work!"

// Limit bounds a selection.
type Limit struct {
	Max   int  // Upper bound when Multi is set
	Multi bool // Whether more than one image may be chosen
}

// Cap returns the number of images the selection may hold.
func (l Limit) Cap() int {
	if !l.Multi {
		return 1
	}
	if l.Max < 1 {
		return 1
	}
	return l.Max
}

// Apply truncates images to the limit.
func (l Limit) Apply(images []types.SelectedImage) []types.SelectedImage {
	if n := l.Cap(); len(images) > n {
		log.Warnf("selection truncated from %d to %d image(s)", len(images), n)
		return images[:n]
	}
	return images
}

// Gateway yields a batch of selected images.
//
// RequestImages returns errors.ErrCancelled (kind Cancelled) when the user
// backs out, and an error of kind PermissionDenied when the image source
// cannot be accessed. On success the images are in selection order.
type Gateway interface {
	RequestImages(ctx context.Context, limit Limit) ([]types.SelectedImage, error)
}

// GatewayFunc adapts a function to Gateway.
type GatewayFunc func(ctx context.Context, limit Limit) ([]types.SelectedImage, error)

// RequestImages implements Gateway.
func (f GatewayFunc) RequestImages(ctx context.Context, limit Limit) ([]types.SelectedImage, error) {
	return f(ctx, limit)
}

// FileGateway selects a fixed list of files, typically from the command line.
type FileGateway struct {
	Paths []string
}

// NewFileGateway creates a FileGateway.
func NewFileGateway(paths ...string) *FileGateway {
	return &FileGateway{Paths: paths}
}

// RequestImages implements Gateway. Every path must be readable; files
// without an image extension are skipped.
func (g *FileGateway) RequestImages(ctx context.Context, limit Limit) ([]types.SelectedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}

	var images []types.SelectedImage
	for _, p := range g.Paths {
		if !media.IsImage(p) {
			log.Warnf("skipping %s: not an image", p)
			continue
		}
		if err := media.CheckReadable(p); err != nil {
			return nil, permissionError(err)
		}
		img, err := media.Describe(p)
		if err != nil {
			return nil, permissionError(err)
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, errors.ErrCancelled
	}
	return limit.Apply(images), nil
}

// GlobGateway selects the images in a directory that match a pattern,
// sorted by name.
type GlobGateway struct {
	Dir     string
	matcher *media.Matcher
}

// NewGlobGateway creates a GlobGateway. An empty pattern selects every image.
func NewGlobGateway(dir, pattern string) (*GlobGateway, error) {
	m, err := media.NewMatcher(pattern)
	if err != nil {
		return nil, err
	}
	return &GlobGateway{Dir: dir, matcher: m}, nil
}

// RequestImages implements Gateway.
func (g *GlobGateway) RequestImages(ctx context.Context, limit Limit) ([]types.SelectedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.ErrCancelled
	}

	paths, err := ListImages(g.Dir, g.matcher)
	if err != nil {
		return nil, err
	}

	var images []types.SelectedImage
	for _, p := range paths {
		img, err := media.Describe(p)
		if err != nil {
			log.LogWithError(err).Warn("skipping unreadable image")
			continue
		}
		images = append(images, img)
	}

	if len(images) == 0 {
		return nil, errors.ErrCancelled
	}
	return limit.Apply(images), nil
}

// ListImages returns the paths of matching regular files in dir, sorted by
// name. A nil matcher accepts every image.
func ListImages(dir string, m *media.Matcher) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, permissionError(err)
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if m != nil && !m.Match(e.Name()) {
			continue
		}
		if m == nil && !media.IsImage(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// StaticGateway returns a preset selection. A nil selection behaves as a
// cancelled picker; Err, when set, is returned instead.
type StaticGateway struct {
	Images []types.SelectedImage
	Err    error
}

// RequestImages implements Gateway.
func (g *StaticGateway) RequestImages(ctx context.Context, limit Limit) ([]types.SelectedImage, error) {
	if g.Err != nil {
		return nil, g.Err
	}
	if len(g.Images) == 0 {
		return nil, errors.ErrCancelled
	}
	out := make([]types.SelectedImage, len(g.Images))
	copy(out, g.Images)
	return limit.Apply(out), nil
}

// permissionError maps access failures onto selection errors so the
// screen shows the permission alert.
func permissionError(err error) error {
	switch {
	case os.IsPermission(err), errors.KindOf(err) == errors.FileAccessDenied:
		return errors.NewSelectionError("media access denied", errors.PermissionDenied, err)
	default:
		return err
	}
}
