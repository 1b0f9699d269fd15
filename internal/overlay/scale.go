package overlay

import "detectview/pkg/types"

// ScaleBox maps box from the natural pixel space of an image into the
// on-screen space of an image rendered displayWidth wide.
//
// The vertical factor is derived from the horizontal one corrected by the
// image's own aspect ratio, so the image must be drawn at DisplaySize for
// boxes to line up. Callers pass types.UnknownSize while dimensions are
// still being probed.
func ScaleBox(box types.DetectionBox, natural types.Size, displayWidth float64) types.ScreenRect {
	if natural.IsZero() {
		natural = types.UnknownSize
	}
	w := float64(natural.Width)
	h := float64(natural.Height)

	scaleX := displayWidth / w
	scaleY := scaleX * (h / w)

	return types.ScreenRect{
		Left:   box.X() * scaleX,
		Top:    box.Y() * scaleY,
		Width:  box.Width() * scaleX,
		Height: box.Height() * scaleY,
	}
}

// DisplaySize returns the slot an image must occupy for ScaleBox output
// to align: displayWidth wide, height following the natural aspect ratio.
func DisplaySize(natural types.Size, displayWidth float64) (width, height float64) {
	if natural.IsZero() {
		natural = types.UnknownSize
	}
	return displayWidth, displayWidth * float64(natural.Height) / float64(natural.Width)
}
