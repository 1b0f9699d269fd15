// Package overlay projects detection results onto displayed images.
// Everything here is pure: the same inputs always give the same rectangles.
package overlay

import (
	"fmt"

	"detectview/pkg/types"
)

// Style distinguishes main-model boxes from sub-model boxes.
type Style int

const (
	// Primary marks main-model boxes.
	Primary Style = iota
	// Secondary marks sub-model boxes.
	Secondary
)

func (s Style) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("style(%d)", int(s))
	}
}

// Rect is one outlined rectangle drawn above an image.
type Rect struct {
	types.ScreenRect
	Style Style
}

// ImageOverlay is everything needed to draw one selected image.
type ImageOverlay struct {
	Image         types.SelectedImage
	DisplayWidth  float64
	DisplayHeight float64
	Rects         []Rect
	Pending       bool // natural size not probed yet; front-ends hide Rects
}

// Match returns the results whose filename equals the image's name, in
// result order.
func Match(img types.SelectedImage, results []types.DetectionResult) []types.DetectionResult {
	name := img.Name()
	var out []types.DetectionResult
	for _, r := range results {
		if r.Filename == name {
			out = append(out, r)
		}
	}
	return out
}

// Rects returns the rectangles for one image: the main-model boxes of every
// matched result first, then the sub-model boxes flattened in sub-model order.
func Rects(img types.SelectedImage, results []types.DetectionResult, natural types.Size, displayWidth float64) []Rect {
	matched := Match(img, results)
	var rects []Rect
	for _, r := range matched {
		for _, box := range r.MainBoxes() {
			rects = append(rects, Rect{ScreenRect: ScaleBox(box, natural, displayWidth), Style: Primary})
		}
	}
	for _, r := range matched {
		for _, sub := range r.SubModelResults {
			for _, box := range sub.Boxes {
				rects = append(rects, Rect{ScreenRect: ScaleBox(box, natural, displayWidth), Style: Secondary})
			}
		}
	}
	return rects
}

// Render builds one ImageOverlay per selected image, in selection order.
// Images without known dimensions are scaled against types.UnknownSize.
func Render(images []types.SelectedImage, results []types.DetectionResult, dims types.ImageDimensions, displayWidth float64) []ImageOverlay {
	out := make([]ImageOverlay, 0, len(images))
	for _, img := range images {
		natural := dims.Get(img.URI)
		_, known := dims[img.URI]
		w, h := DisplaySize(natural, displayWidth)
		out = append(out, ImageOverlay{
			Image:         img,
			DisplayWidth:  w,
			DisplayHeight: h,
			Rects:         Rects(img, results, natural, displayWidth),
			Pending:       !known,
		})
	}
	return out
}

// Count returns main-model plus all sub-model boxes of r.
func Count(r types.DetectionResult) int {
	n := CountMain(r)
	for _, sub := range r.SubModelResults {
		n += len(sub.Boxes)
	}
	return n
}

// CountMain returns the number of main-model boxes of r.
func CountMain(r types.DetectionResult) int {
	return len(r.MainBoxes())
}

// CountFunc counts the objects of one result.
type CountFunc func(types.DetectionResult) int

// CountForImage sums count over the results matching img; 0 when none match.
func CountForImage(img types.SelectedImage, results []types.DetectionResult, count CountFunc) int {
	if count == nil {
		count = Count
	}
	total := 0
	for _, r := range Match(img, results) {
		total += count(r)
	}
	return total
}

// Summary is one line of the detected-objects list.
type Summary struct {
	Filename string
	Count    int
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: %d objects detected", s.Filename, s.Count)
}

// Summarize returns one Summary per result, in result order.
func Summarize(results []types.DetectionResult, count CountFunc) []Summary {
	if count == nil {
		count = Count
	}
	out := make([]Summary, 0, len(results))
	for _, r := range results {
		out = append(out, Summary{Filename: r.Filename, Count: count(r)})
	}
	return out
}

// Total sums count over all results.
func Total(results []types.DetectionResult, count CountFunc) int {
	if count == nil {
		count = Count
	}
	n := 0
	for _, r := range results {
		n += count(r)
	}
	return n
}
