package types

// ScreenRect is a rectangle in displayed (on-screen) coordinates.
type ScreenRect struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// Right returns the right edge
func (r ScreenRect) Right() float64 { return r.Left + r.Width }

// Bottom returns the bottom edge
func (r ScreenRect) Bottom() float64 { return r.Top + r.Height }
