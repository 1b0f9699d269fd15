package annotate

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"detectview/internal/errors"
	"detectview/internal/media"
	"detectview/internal/overlay"
	"detectview/pkg/testutils"
	"detectview/pkg/types"
)

var (
	blue  = color.NRGBA{B: 255, A: 255}
	red   = color.NRGBA{R: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, white)
		}
	}
	return img
}

func sampleOverlay(uri string) overlay.ImageOverlay {
	img := types.SelectedImage{URI: uri}
	results := []types.DetectionResult{{
		Filename:        img.Name(),
		MainModel:       &types.ModelBoxes{Boxes: []types.DetectionBox{{10, 10, 20, 20}}},
		SubModelResults: []types.ModelBoxes{{Boxes: []types.DetectionBox{{50, 50, 30, 30}}}},
	}}
	dims := types.ImageDimensions{uri: {Width: 100, Height: 100}}
	return overlay.Render([]types.SelectedImage{img}, results, dims, 100)[0]
}

func TestRender(t *testing.T) {
	ov := sampleOverlay("file:///tmp/car.png")
	out := Render(whiteImage(100, 100), ov, Style{Primary: blue, Secondary: red, StrokeWidth: 2})

	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

	// Borders of the primary box
	assert.Equal(t, blue, out.NRGBAAt(10, 15))
	assert.Equal(t, blue, out.NRGBAAt(11, 15))
	assert.Equal(t, blue, out.NRGBAAt(15, 29))
	// Interior stays untouched
	assert.Equal(t, white, out.NRGBAAt(20, 20))

	// Secondary box uses the second color
	assert.Equal(t, red, out.NRGBAAt(50, 60))
	assert.Equal(t, red, out.NRGBAAt(79, 60))
	assert.Equal(t, white, out.NRGBAAt(65, 65))

	assert.Equal(t, white, out.NRGBAAt(5, 5))
}

func TestRenderResizesToDisplaySlot(t *testing.T) {
	img := types.SelectedImage{URI: "file:///tmp/wide.png"}
	dims := types.ImageDimensions{img.URI: {Width: 200, Height: 100}}
	ov := overlay.Render([]types.SelectedImage{img}, nil, dims, 50)[0]

	out := Render(whiteImage(200, 100), ov, Style{Primary: blue, Secondary: red, StrokeWidth: 1})
	assert.Equal(t, 50, out.Bounds().Dx())
	assert.Equal(t, 25, out.Bounds().Dy())
}

func TestRenderClipsOversizedRects(t *testing.T) {
	ov := overlay.ImageOverlay{
		DisplayWidth:  20,
		DisplayHeight: 20,
		Rects: []overlay.Rect{
			{ScreenRect: types.ScreenRect{Left: 15, Top: 15, Width: 100, Height: 100}, Style: overlay.Primary},
			{ScreenRect: types.ScreenRect{Left: 5, Top: 5, Width: 0, Height: 3}, Style: overlay.Primary},
		},
	}
	out := Render(whiteImage(20, 20), ov, Style{Primary: blue, Secondary: red, StrokeWidth: 1})
	assert.Equal(t, blue, out.NRGBAAt(15, 18))
	assert.Equal(t, white, out.NRGBAAt(5, 6))
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "car.png")
	f, err := os.Create(srcPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, whiteImage(100, 100)))
	require.NoError(t, f.Close())

	ov := sampleOverlay(media.URI(srcPath))
	dst := OutputPath(dir, ov.Image.Name())
	assert.Equal(t, filepath.Join(dir, "car_detected.png"), dst)

	require.NoError(t, File(ov, dst, Style{Primary: blue, Secondary: red, StrokeWidth: 2}))

	saved, err := imaging.Open(dst)
	require.NoError(t, err)
	r, g, b, _ := saved.At(10, 15).RGBA()
	assert.Equal(t, uint32(0), r)
	assert.Equal(t, uint32(0), g)
	assert.Equal(t, uint32(0xffff), b)

	err = File(sampleOverlay(media.URI(filepath.Join(dir, "missing.png"))), filepath.Join(dir, "x.png"), Style{})
	assert.Equal(t, errors.InvalidImage, errors.KindOf(err))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a_detected.jpg"), OutputPath("out", "a.JPG"))
	assert.Equal(t, filepath.Join("out", "a_detected.png"), OutputPath("out", "a.webp"))
	assert.Equal(t, filepath.Join("out", "noext_detected.png"), OutputPath("out", "noext"))
}

func isRed(c color.NRGBA) bool   { return c.R > 200 && c.G < 80 && c.B < 80 }
func isWhite(c color.NRGBA) bool { return c.R > 200 && c.G > 200 && c.B > 200 }

func TestFileOrientation(t *testing.T) {
	// Stored 40x20 with a red left half; orientation 6 shows it turned
	// clockwise, red on top
	stored := whiteImage(40, 20)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			stored.SetNRGBA(x, y, red)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, stored, &jpeg.Options{Quality: 100}))
	dir := t.TempDir()
	src := filepath.Join(dir, "phone.jpg")
	require.NoError(t, os.WriteFile(src, testutils.WithEXIFOrientation(buf.Bytes(), 6), 0644))

	ov := overlay.ImageOverlay{
		Image:         types.SelectedImage{URI: media.URI(src)},
		DisplayWidth:  40,
		DisplayHeight: 20,
	}

	open := func(upright bool) *image.NRGBA {
		dst := filepath.Join(dir, "out.png")
		require.NoError(t, File(ov, dst, Style{Primary: blue, Secondary: red, StrokeWidth: 1, Upright: upright}))
		img, err := imaging.Open(dst)
		require.NoError(t, err)
		return imaging.Clone(img)
	}

	asStored := open(false)
	assert.True(t, isRed(asStored.NRGBAAt(5, 10)))
	assert.True(t, isWhite(asStored.NRGBAAt(35, 3)))
	assert.True(t, isWhite(asStored.NRGBAAt(35, 17)))

	turned := open(true)
	assert.True(t, isRed(turned.NRGBAAt(35, 3)))
	assert.True(t, isWhite(turned.NRGBAAt(35, 17)))
}
