// Package session holds the screen controller: the single owner of the
// selected images, the uploading state, the accumulated results and the
// probed image dimensions of one screen.
package session

import (
	"context"
	"fmt"
	"sync"

	"detectview/internal/config"
	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/overlay"
	"detectview/internal/picker"
	"detectview/internal/probe"
	"detectview/pkg/types"
)

// UploadCompleteMessage is shown after every batch, whatever its outcome.
const UploadCompleteMessage = "Upload Complete!"

// State is the controller's position in the pick/upload cycle.
type State int

const (
	Idle State = iota
	Selecting
	Uploading
	IdleWithResults
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Selecting:
		return "selecting"
	case Uploading:
		return "uploading"
	case IdleWithResults:
		return "idle-with-results"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Uploader sends a batch and returns the accumulated results.
type Uploader interface {
	UploadAll(ctx context.Context, images []types.SelectedImage) []types.DetectionResult
}

// Notifier shows a blocking message to the user.
type Notifier interface {
	Alert(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

// Alert implements Notifier.
func (f NotifierFunc) Alert(message string) { f(message) }

// Deps are the collaborators of a Controller.
type Deps struct {
	Gateway  picker.Gateway
	Uploader Uploader
	Prober   probe.Prober
	Notifier Notifier // optional; alerts are logged when nil
}

// Snapshot is a copy of the view state.
type Snapshot struct {
	State      State
	Images     []types.SelectedImage
	Results    []types.DetectionResult
	Dimensions types.ImageDimensions
}

// Uploading reports whether a batch is in flight.
func (s Snapshot) Uploading() bool {
	return s.State == Uploading
}

// Busy reports whether a pick would be rejected.
func (s Snapshot) Busy() bool {
	return s.State == Selecting || s.State == Uploading
}

// Controller drives one screen: pick, upload, then expose the state the
// renderer draws from. All methods are safe for concurrent use.
type Controller struct {
	screen config.Screen
	deps   Deps
	count  overlay.CountFunc

	mu         sync.Mutex
	state      State
	images     []types.SelectedImage
	results    []types.DetectionResult
	dims       types.ImageDimensions
	generation int

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int

	probes sync.WaitGroup
}

// New creates a Controller for screen.
func New(screen config.Screen, deps Deps) *Controller {
	count := overlay.CountMain
	if screen.CountSubModels {
		count = overlay.Count
	}
	return &Controller{
		screen:    screen,
		deps:      deps,
		count:     count,
		dims:      types.ImageDimensions{},
		listeners: map[int]func(){},
	}
}

// Screen returns the screen profile the controller runs.
func (c *Controller) Screen() config.Screen {
	return c.screen
}

// Limit returns the selection bound passed to the gateway.
func (c *Controller) Limit() picker.Limit {
	return picker.Limit{Max: c.screen.MaxSelection, Multi: c.screen.MultiSelect}
}

// Subscribe registers fn to run after every state change. The returned
// function removes it.
func (c *Controller) Subscribe(fn func()) (unsubscribe func()) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Controller) notify() {
	c.listenersMu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (c *Controller) alert(msg string) {
	if c.deps.Notifier == nil {
		log.LogWithFields(log.F("screen", c.screen.Name)).Info(msg)
		return
	}
	c.deps.Notifier.Alert(msg)
}

// Snapshot returns a copy of the current view state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	images := make([]types.SelectedImage, len(c.images))
	copy(images, c.images)
	results := make([]types.DetectionResult, len(c.results))
	copy(results, c.results)

	return Snapshot{
		State:      c.state,
		Images:     images,
		Results:    results,
		Dimensions: c.dims.Clone(),
	}
}

// Pick runs one full cycle: ask the gateway for images, upload them and
// store the results.
//
// A pick while another is selecting or uploading fails with
// errors.ErrUploadInProgress. A cancelled selection leaves the state as it
// was and returns the cancellation error. A permission failure shows the
// permission alert and also leaves the state untouched.
func (c *Controller) Pick(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Selecting || c.state == Uploading {
		c.mu.Unlock()
		return errors.ErrUploadInProgress
	}
	prev := c.state
	c.state = Selecting
	c.mu.Unlock()
	c.notify()

	logger := log.LogWithFields(log.F("screen", c.screen.Name))

	images, err := c.deps.Gateway.RequestImages(ctx, c.Limit())
	if err == nil && len(images) == 0 {
		err = errors.ErrCancelled
	}
	if err != nil {
		c.mu.Lock()
		c.state = prev
		c.mu.Unlock()
		c.notify()

		switch {
		case errors.IsCancelled(err):
			logger.Debug("selection cancelled")
		case errors.IsPermissionDenied(err):
			logger.WithError(err).Warn("media permission denied")
			c.alert(picker.PermissionDeniedMessage)
		default:
			logger.WithError(err).Error("selection failed")
			c.alert(err.Error())
		}
		return err
	}

	images = c.Limit().Apply(images)

	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.images = images
	c.results = nil
	c.dims = types.ImageDimensions{}
	c.state = Uploading
	c.mu.Unlock()
	c.notify()

	for _, img := range images {
		c.probes.Add(1)
		go c.probe(ctx, gen, img.URI)
	}

	results := c.deps.Uploader.UploadAll(ctx, images)
	if results == nil {
		results = []types.DetectionResult{}
	}

	c.mu.Lock()
	c.results = results
	c.state = IdleWithResults
	c.mu.Unlock()
	c.notify()

	logger.With(log.F("images", len(images)), log.F("results", len(results))).Info("upload complete")
	c.alert(UploadCompleteMessage)
	return nil
}

// probe discovers the natural size of one image. Results for a superseded
// selection are dropped.
func (c *Controller) probe(ctx context.Context, gen int, uri string) {
	defer c.probes.Done()
	if c.deps.Prober == nil {
		return
	}

	size, err := c.deps.Prober.Dimensions(ctx, uri)
	if err != nil {
		log.LogWithError(err).With(log.F("uri", uri)).Warn("could not read image dimensions")
		return
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.dims[uri] = size
	c.mu.Unlock()
	c.notify()
}

// WaitProbes blocks until every dimension probe started so far finished.
func (c *Controller) WaitProbes() {
	c.probes.Wait()
}

// Overlays projects the current state for a display displayWidth wide.
// Screens that do not show overlays get images without rectangles.
func (c *Controller) Overlays(displayWidth float64) []overlay.ImageOverlay {
	snap := c.Snapshot()
	out := overlay.Render(snap.Images, snap.Results, snap.Dimensions, displayWidth)
	if !c.screen.ShowOverlays {
		for i := range out {
			out[i].Rects = nil
		}
	}
	return out
}

// Summaries returns the detected-objects list for the current results.
func (c *Controller) Summaries() []overlay.Summary {
	snap := c.Snapshot()
	return overlay.Summarize(snap.Results, c.count)
}

// CountForImage returns the detected-object count shown for img.
func (c *Controller) CountForImage(img types.SelectedImage) int {
	snap := c.Snapshot()
	return overlay.CountForImage(img, snap.Results, c.count)
}
