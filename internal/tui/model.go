// Package tui is the terminal front end: a directory browser that picks
// images and runs them through a screen controller.
package tui

import (
	"context"
	"fmt"
	"os"
	"sync"

	"detectview/internal/config"
	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/internal/overlay"
	"detectview/internal/picker"
	"detectview/internal/probe"
	"detectview/internal/session"
	"detectview/internal/tui/common"
	"detectview/internal/tui/components"
	"detectview/internal/tui/messages"
	"detectview/internal/tui/views"
	"detectview/pkg/types"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Options configure a Model.
type Options struct {
	Dir      string
	Screen   config.Screen
	Uploader session.Uploader
	Prober   probe.Prober   // defaults to the header prober
	Matcher  *media.Matcher // nil lists every image
}

// selection is the gateway the controller reads: it hands over whatever
// the user marked before pressing upload.
type selection struct {
	mu     sync.Mutex
	images []types.SelectedImage
}

func (s *selection) set(images []types.SelectedImage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = images
}

func (s *selection) RequestImages(ctx context.Context, limit picker.Limit) ([]types.SelectedImage, error) {
	s.mu.Lock()
	images := s.images
	s.images = nil
	s.mu.Unlock()
	if len(images) == 0 {
		return nil, errors.ErrCancelled
	}
	return limit.Apply(images), nil
}

// alerts collects controller messages until the model shows them.
type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, message)
}

func (a *alerts) drain() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.msgs
	a.msgs = nil
	return out
}

type Model struct {
	ctx     context.Context
	ctrl    *session.Controller
	sel     *selection
	alerts  *alerts
	matcher *media.Matcher

	currentDir string
	images     []common.ImageEntry
	cursor     int
	selected   []string // paths in selection order
	uploading  bool
	showHelp   bool

	status *components.StatusBar
}

// New creates a model browsing opts.Dir.
func New(ctx context.Context, opts Options) *Model {
	dir := opts.Dir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		} else {
			dir = "."
		}
	}
	prober := opts.Prober
	if prober == nil {
		prober = probe.New()
	}

	sel := &selection{}
	al := &alerts{}
	ctrl := session.New(opts.Screen, session.Deps{
		Gateway:  sel,
		Uploader: opts.Uploader,
		Prober:   prober,
		Notifier: al,
	})

	return &Model{
		ctx:        ctx,
		ctrl:       ctrl,
		sel:        sel,
		alerts:     al,
		matcher:    opts.Matcher,
		currentDir: dir,
		status:     components.NewStatusBar(),
	}
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return m.scan()
}

// View implements tea.Model
func (m *Model) View() string {
	return views.RenderMainView(m)
}

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case messages.ScanCompleteMsg:
		m.applyScan(msg)
		return m, nil
	case messages.PickDoneMsg:
		m.finishPick(msg)
		return m, nil
	}

	return m, m.status.Update(msg)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	if m.uploading {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.images)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Toggle):
		if len(m.images) > 0 {
			m.toggle(m.images[m.cursor].Path)
		}
	case key.Matches(msg, keys.Upload):
		return m, m.startPick()
	case key.Matches(msg, keys.Rescan):
		return m, m.scan()
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// toggle flips path's selection. A single-select screen swaps the current
// choice; a multi-select screen refuses to exceed its limit.
func (m *Model) toggle(path string) {
	for i, p := range m.selected {
		if p == path {
			m.selected = append(m.selected[:i], m.selected[i+1:]...)
			return
		}
	}

	limit := m.ctrl.Limit()
	if len(m.selected) >= limit.Cap() {
		if !limit.Multi {
			m.selected = []string{path}
			return
		}
		m.status.SetError(fmt.Sprintf("At most %d images can be selected", limit.Cap()))
		return
	}
	m.selected = append(m.selected, path)
	m.status.SetText("")
}

func (m *Model) startPick() tea.Cmd {
	if len(m.selected) == 0 {
		m.status.SetError("Select at least one image first")
		return nil
	}

	var images []types.SelectedImage
	for _, p := range m.selected {
		img, err := media.Describe(p)
		if err != nil {
			log.LogWithError(err).Warn("skipping image")
			continue
		}
		images = append(images, img)
	}
	m.sel.set(images)

	m.uploading = true
	m.status.SetText("Uploading...")
	m.status.SetLoading(true)

	ctx, ctrl, al := m.ctx, m.ctrl, m.alerts
	pick := func() tea.Msg {
		err := ctrl.Pick(ctx)
		return messages.PickDoneMsg{Err: err, Alerts: al.drain()}
	}
	return tea.Batch(m.status.Tick(), pick)
}

func (m *Model) finishPick(msg messages.PickDoneMsg) {
	m.uploading = false
	m.status.SetLoading(false)

	switch {
	case msg.Err == nil:
		m.selected = nil
		text := session.UploadCompleteMessage
		if len(msg.Alerts) > 0 {
			text = msg.Alerts[len(msg.Alerts)-1]
		}
		m.status.SetSuccess(text)
	case errors.IsCancelled(msg.Err):
		m.status.SetText("Nothing to upload")
	case len(msg.Alerts) > 0:
		m.status.SetError(msg.Alerts[len(msg.Alerts)-1])
	default:
		m.status.SetError(msg.Err.Error())
	}
}

func (m *Model) scan() tea.Cmd {
	dir, matcher := m.currentDir, m.matcher
	return func() tea.Msg {
		images, err := scanDirectory(dir, matcher)
		return messages.ScanCompleteMsg{Images: images, Err: err}
	}
}

func (m *Model) applyScan(msg messages.ScanCompleteMsg) {
	if msg.Err != nil {
		m.status.SetError(msg.Err.Error())
		return
	}
	m.images = msg.Images

	present := make(map[string]bool, len(m.images))
	for _, img := range m.images {
		present[img.Path] = true
	}
	kept := m.selected[:0]
	for _, p := range m.selected {
		if present[p] {
			kept = append(kept, p)
		}
	}
	m.selected = kept

	if m.cursor >= len(m.images) {
		m.cursor = len(m.images) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func scanDirectory(dir string, matcher *media.Matcher) ([]common.ImageEntry, error) {
	paths, err := picker.ListImages(dir, matcher)
	if err != nil {
		return nil, err
	}
	images := make([]common.ImageEntry, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		images = append(images, common.ImageEntry{
			Name:    info.Name(),
			Path:    p,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return images, nil
}

// Getters

func (m *Model) Title() string {
	return m.ctrl.Screen().Title
}

func (m *Model) CurrentDir() string {
	return m.currentDir
}

func (m *Model) Images() []common.ImageEntry {
	return m.images
}

func (m *Model) Cursor() int {
	return m.cursor
}

func (m *Model) IsSelected(path string) bool {
	return m.SelectionOrder(path) > 0
}

// SelectionOrder returns path's 1-based position in the selection, or 0.
func (m *Model) SelectionOrder(path string) int {
	for i, p := range m.selected {
		if p == path {
			return i + 1
		}
	}
	return 0
}

// Selected returns the selected paths in selection order.
func (m *Model) Selected() []string {
	out := make([]string, len(m.selected))
	copy(out, m.selected)
	return out
}

func (m *Model) Limit() picker.Limit {
	return m.ctrl.Limit()
}

func (m *Model) Uploading() bool {
	return m.uploading
}

func (m *Model) Summaries() []overlay.Summary {
	return m.ctrl.Summaries()
}

func (m *Model) StatusView() string {
	return m.status.View()
}

// Status returns the plain status text.
func (m *Model) Status() string {
	return m.status.Text()
}

func (m *Model) ShowHelp() bool {
	return m.showHelp
}

// Controller returns the screen controller behind the model.
func (m *Model) Controller() *session.Controller {
	return m.ctrl
}

// SetCursor sets the cursor position
func (m *Model) SetCursor(pos int) {
	if pos >= 0 && pos < len(m.images) {
		m.cursor = pos
	}
}
