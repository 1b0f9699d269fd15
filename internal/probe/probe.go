// Package probe discovers the natural pixel dimensions of images.
package probe

import (
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/rwcarlsen/goexif/exif"

	"detectview/internal/errors"
	"detectview/internal/media"
	"detectview/pkg/types"
)

// Prober returns the natural size of the image behind a URI.
type Prober interface {
	Dimensions(ctx context.Context, uri string) (types.Size, error)
}

// HeaderProber decodes only the image header. By default it reports the
// size of the pixels as stored in the file, the space detection boxes
// come back in.
type HeaderProber struct {
	upright bool
}

// Option configures a HeaderProber.
type Option func(*HeaderProber)

// WithUpright makes JPEGs whose EXIF orientation turns them a quarter turn
// report their upright size. Use it when the detection service applies the
// EXIF orientation before detecting.
func WithUpright(upright bool) Option {
	return func(p *HeaderProber) {
		p.upright = upright
	}
}

// New returns a HeaderProber.
func New(opts ...Option) *HeaderProber {
	p := &HeaderProber{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dimensions implements Prober.
func (p *HeaderProber) Dimensions(ctx context.Context, uri string) (types.Size, error) {
	if err := ctx.Err(); err != nil {
		return types.Size{}, err
	}

	rc, err := media.Open(uri)
	if err != nil {
		return types.Size{}, err
	}
	defer rc.Close()

	cfg, format, err := image.DecodeConfig(rc)
	if err != nil {
		return types.Size{}, errors.NewFileError("cannot decode image header", uri, errors.InvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return types.Size{}, errors.NewFileError("image "+format+" has no area", uri, errors.InvalidImage, nil)
	}
	size := types.Size{Width: cfg.Width, Height: cfg.Height}
	if p.upright && format == "jpeg" && quarterTurn(orientation(uri)) {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

// orientation returns the EXIF orientation of the image, 1 when absent.
func orientation(uri string) int {
	rc, err := media.Open(uri)
	if err != nil {
		return 1
	}
	defer rc.Close()

	x, err := exif.Decode(rc)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	o, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return o
}

// quarterTurn reports whether orientation o is rotated by 90 or 270 degrees.
func quarterTurn(o int) bool {
	return o >= 5 && o <= 8
}

// Func adapts a function to Prober.
type Func func(ctx context.Context, uri string) (types.Size, error)

// Dimensions implements Prober.
func (f Func) Dimensions(ctx context.Context, uri string) (types.Size, error) {
	return f(ctx, uri)
}
