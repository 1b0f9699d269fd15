package gui

import (
	"context"
	"image/color"
	"sync"

	"detectview/internal/config"
	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/internal/overlay"
	"detectview/internal/session"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/disintegration/imaging"
)

const (
	pickLabel      = "Pick Images"
	uploadingLabel = "Uploading..."
	summaryTitle   = "Detected Objects"
)

// ScreenView renders one controller: the pick button, the selected images
// with their boxes, and the detected-objects list.
type ScreenView struct {
	ctx  context.Context
	ctrl *session.Controller

	displayWidth float64
	strokeWidth  float32
	primary      color.NRGBA
	secondary    color.NRGBA
	upright      bool

	pickButton   *widget.Button
	images       *fyne.Container
	summaryTitle *widget.Label
	summary      *fyne.Container
	container    fyne.CanvasObject

	mu    sync.Mutex
	slots []*imageSlot
}

type imageSlot struct {
	image *canvas.Image
	rects []*canvas.Rectangle
}

// NewScreenView builds the view and subscribes it to ctrl.
func NewScreenView(ctx context.Context, ctrl *session.Controller, cfg *config.Config) *ScreenView {
	primary, secondary := cfg.Colors()
	v := &ScreenView{
		ctx:          ctx,
		ctrl:         ctrl,
		displayWidth: cfg.Display.Width,
		strokeWidth:  float32(cfg.Display.StrokeWidth),
		primary:      primary,
		secondary:    secondary,
		upright:      cfg.Upload.UprightBoxes,
	}

	v.pickButton = widget.NewButtonWithIcon(pickLabel, theme.FolderOpenIcon(), v.pick)
	v.pickButton.Importance = widget.HighImportance

	v.images = container.NewVBox()
	v.summaryTitle = widget.NewLabelWithStyle(summaryTitle, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	v.summary = container.NewVBox()

	scroll := container.NewVScroll(container.NewVBox(v.images, v.summaryTitle, v.summary))
	v.container = container.NewBorder(container.NewPadded(v.pickButton), nil, nil, nil, scroll)

	ctrl.Subscribe(v.Refresh)
	v.Refresh()
	return v
}

// Controller returns the screen's controller.
func (v *ScreenView) Controller() *session.Controller {
	return v.ctrl
}

// Container returns the root object of the screen.
func (v *ScreenView) Container() fyne.CanvasObject {
	return v.container
}

// PickButton returns the pick button.
func (v *ScreenView) PickButton() *widget.Button {
	return v.pickButton
}

func (v *ScreenView) pick() {
	go func() {
		err := v.ctrl.Pick(v.ctx)
		switch {
		case err == nil:
		case errors.IsCancelled(err):
		case errors.IsUploadInProgress(err):
			log.Debugf("pick ignored: %v", err)
		default:
			// The controller has already alerted the user
			log.Debugf("pick failed: %v", err)
		}
	}()
}

// Refresh redraws the view from the controller's state.
func (v *ScreenView) Refresh() {
	v.mu.Lock()
	defer v.mu.Unlock()

	snap := v.ctrl.Snapshot()

	if snap.Uploading() {
		v.pickButton.SetText(uploadingLabel)
	} else {
		v.pickButton.SetText(pickLabel)
	}
	if snap.Busy() {
		v.pickButton.Disable()
	} else {
		v.pickButton.Enable()
	}

	v.slots = v.slots[:0]
	var objects []fyne.CanvasObject
	for _, ov := range v.ctrl.Overlays(v.displayWidth) {
		slot := v.newSlot(ov)
		v.slots = append(v.slots, slot)

		children := []fyne.CanvasObject{slot.image}
		for _, r := range slot.rects {
			children = append(children, r)
		}
		objects = append(objects, container.NewWithoutLayout(children...))
	}
	v.images.Objects = objects
	v.images.Refresh()

	var lines []fyne.CanvasObject
	for _, s := range v.ctrl.Summaries() {
		lines = append(lines, widget.NewLabel(s.String()))
	}
	v.summary.Objects = lines
	v.summary.Refresh()
	if len(lines) > 0 {
		v.summaryTitle.Show()
	} else {
		v.summaryTitle.Hide()
	}
}

// loadImage shows the stored pixels, or the EXIF-upright image when boxes
// come back in that frame.
func (v *ScreenView) loadImage(uri string) *canvas.Image {
	path, err := media.Path(uri)
	if err != nil {
		log.LogWithError(err).Warn("cannot display image")
		return canvas.NewImageFromResource(theme.BrokenImageIcon())
	}
	if !v.upright {
		return canvas.NewImageFromFile(path)
	}
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		log.LogWithFields(log.F("file", path), log.F("error", err)).Warn("cannot display image")
		return canvas.NewImageFromResource(theme.BrokenImageIcon())
	}
	return canvas.NewImageFromImage(src)
}

func (v *ScreenView) newSlot(ov overlay.ImageOverlay) *imageSlot {
	size := fyne.NewSize(float32(ov.DisplayWidth), float32(ov.DisplayHeight))

	img := v.loadImage(ov.Image.URI)
	img.FillMode = canvas.ImageFillStretch
	img.SetMinSize(size)
	img.Resize(size)

	slot := &imageSlot{image: img}
	if ov.Pending {
		return slot
	}
	for _, r := range ov.Rects {
		rect := canvas.NewRectangle(color.Transparent)
		rect.StrokeColor = v.primary
		if r.Style == overlay.Secondary {
			rect.StrokeColor = v.secondary
		}
		rect.StrokeWidth = v.strokeWidth
		rect.Move(fyne.NewPos(float32(r.Left), float32(r.Top)))
		rect.Resize(fyne.NewSize(float32(r.Width), float32(r.Height)))
		slot.rects = append(slot.rects, rect)
	}
	return slot
}

// ImageCount returns the number of images shown.
func (v *ScreenView) ImageCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.slots)
}

// Rectangles returns the boxes drawn over the i-th image.
func (v *ScreenView) Rectangles(i int) []*canvas.Rectangle {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i < 0 || i >= len(v.slots) {
		return nil
	}
	return v.slots[i].rects
}

// SummaryLines returns the text of the detected-objects list.
func (v *ScreenView) SummaryLines() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	var out []string
	for _, o := range v.summary.Objects {
		if l, ok := o.(*widget.Label); ok {
			out = append(out, l.Text)
		}
	}
	return out
}
