// Package annotate writes copies of selected images with their detection
// rectangles drawn in.
package annotate

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"detectview/internal/errors"
	"detectview/internal/media"
	"detectview/internal/overlay"
)

// Style holds the outline colors and width. Upright draws on the image
// turned by its EXIF orientation instead of the stored pixels.
type Style struct {
	Primary     color.NRGBA
	Secondary   color.NRGBA
	StrokeWidth float64
	Upright     bool
}

func (s Style) colorFor(st overlay.Style) color.NRGBA {
	if st == overlay.Secondary {
		return s.Secondary
	}
	return s.Primary
}

// Render resizes src to the overlay's display slot and outlines every
// rectangle on top of it.
func Render(src image.Image, ov overlay.ImageOverlay, style Style) *image.NRGBA {
	w := int(math.Round(ov.DisplayWidth))
	h := int(math.Round(ov.DisplayHeight))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := imaging.Resize(src, w, h, imaging.Lanczos)

	stroke := int(math.Max(1, math.Round(style.StrokeWidth)))
	for _, r := range ov.Rects {
		outline(dst, r, style.colorFor(r.Style), stroke)
	}
	return dst
}

// outline draws the border of r inside its bounds, clipped to the image.
func outline(dst *image.NRGBA, r overlay.Rect, c color.NRGBA, stroke int) {
	x0 := int(math.Round(r.Left))
	y0 := int(math.Round(r.Top))
	x1 := int(math.Round(r.Right()))
	y1 := int(math.Round(r.Bottom()))
	if x1 <= x0 || y1 <= y0 {
		return
	}

	src := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(x0, y0, x1, min(y0+stroke, y1)), // top
		image.Rect(x0, max(y1-stroke, y0), x1, y1), // bottom
		image.Rect(x0, y0, min(x0+stroke, x1), y1), // left
		image.Rect(max(x1-stroke, x0), y0, x1, y1), // right
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// File renders the image behind ov.Image.URI and saves it to dstPath. The
// output format follows dstPath's extension.
func File(ov overlay.ImageOverlay, dstPath string, style Style) error {
	path, err := media.Path(ov.Image.URI)
	if err != nil {
		return err
	}

	src, err := imaging.Open(path, imaging.AutoOrientation(style.Upright))
	if err != nil {
		return errors.NewFileError("cannot decode image", path, errors.InvalidImage, err)
	}

	if err := imaging.Save(Render(src, ov, style), dstPath); err != nil {
		return errors.NewFileError("cannot save annotated image", dstPath, errors.FileAccessDenied, err)
	}
	return nil
}

// OutputPath returns dir/<name>_detected<ext>, keeping formats imaging can
// encode and falling back to PNG otherwise.
func OutputPath(dir, name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if _, err := imaging.FormatFromExtension(ext); err != nil || ext == "" {
		ext = ".png"
	}
	return filepath.Join(dir, base+"_detected"+ext)
}
