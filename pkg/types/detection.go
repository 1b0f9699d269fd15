package types

import (
	"encoding/json"
	"fmt"
)

// DetectionBox is an axis-aligned box [x, y, width, height] in the pixel
// space of the original uploaded image.
type DetectionBox [4]float64

// X returns the left edge
func (b DetectionBox) X() float64 { return b[0] }

// Y returns the top edge
func (b DetectionBox) Y() float64 { return b[1] }

// Width returns the box width
func (b DetectionBox) Width() float64 { return b[2] }

// Height returns the box height
func (b DetectionBox) Height() float64 { return b[3] }

// UnmarshalJSON accepts a JSON array of at least four numbers. Values past
// the fourth, such as a score or class id, are ignored. Shorter arrays are
// rejected rather than padded.
func (b *DetectionBox) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 4 {
		return fmt.Errorf("detection box must have 4 values, got %d", len(raw))
	}
	copy(b[:], raw[:4])
	return nil
}

// ModelBoxes is the box list produced by one detection model.
type ModelBoxes struct {
	Boxes []DetectionBox `json:"boxes" yaml:"boxes"`
}

// UnmarshalJSON decodes the box list, dropping boxes that are not valid
// DetectionBox values so one bad box does not cost the image its results.
func (m *ModelBoxes) UnmarshalJSON(data []byte) error {
	var raw struct {
		Boxes []json.RawMessage `json:"boxes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Boxes = nil
	if raw.Boxes == nil {
		return nil
	}
	m.Boxes = make([]DetectionBox, 0, len(raw.Boxes))
	for _, r := range raw.Boxes {
		var b DetectionBox
		if err := json.Unmarshal(r, &b); err != nil {
			continue
		}
		m.Boxes = append(m.Boxes, b)
	}
	return nil
}

// DetectionResult is one entry of the detection service's "results" array.
type DetectionResult struct {
	Filename        string       `json:"filename" yaml:"filename"`
	MainModel       *ModelBoxes  `json:"main_model,omitempty" yaml:"main_model,omitempty"`
	SubModelResults []ModelBoxes `json:"sub_model_results,omitempty" yaml:"sub_model_results,omitempty"`
}

// MainBoxes returns the main-model boxes, or nil.
func (r DetectionResult) MainBoxes() []DetectionBox {
	if r.MainModel == nil {
		return nil
	}
	return r.MainModel.Boxes
}

// DetectionResponse is the body returned by the detection service.
// A missing "results" key decodes to a nil slice.
type DetectionResponse struct {
	Results []DetectionResult `json:"results"`
}
