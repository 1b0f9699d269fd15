package gui

import (
	"context"
	"os"
	"path/filepath"

	"detectview/internal/config"
	"detectview/internal/log"
	"detectview/internal/picker"
	"detectview/internal/probe"
	"detectview/internal/session"
	"detectview/internal/upload"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// UploaderFactory builds the uploader a screen posts through.
type UploaderFactory func(screen config.Screen) session.Uploader

// App is the GUI application
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window
	cfg        *config.Config
	ctx        context.Context

	gateway     picker.Gateway
	prober      probe.Prober
	newUploader UploaderFactory

	screens []*ScreenView
	current *ScreenView

	title   *widget.Label
	body    *fyne.Container
	menu    *SideMenu
	content *fyne.Container
}

// Option configures an App.
type Option func(*App)

// WithFyneApp runs the GUI on an existing fyne application, such as the
// test driver.
func WithFyneApp(fa fyne.App) Option {
	return func(a *App) {
		a.fyneApp = fa
	}
}

// WithGateway replaces the file dialog as the image source.
func WithGateway(g picker.Gateway) Option {
	return func(a *App) {
		a.gateway = g
	}
}

// WithUploaderFactory replaces the HTTP upload pipeline.
func WithUploaderFactory(f UploaderFactory) Option {
	return func(a *App) {
		a.newUploader = f
	}
}

// WithProber replaces the image header prober.
func WithProber(p probe.Prober) Option {
	return func(a *App) {
		a.prober = p
	}
}

// WithContext sets the context picks run under.
func WithContext(ctx context.Context) Option {
	return func(a *App) {
		a.ctx = ctx
	}
}

// NewApp creates a new GUI application
func NewApp(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		ctx:    context.Background(),
		prober: probe.New(probe.WithUpright(cfg.Upload.UprightBoxes)),
	}
	a.newUploader = func(screen config.Screen) session.Uploader {
		return upload.New(screen.EndpointBaseURL, upload.WithTimeout(cfg.Upload.RequestTimeout))
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.fyneApp == nil {
		// Create app with a unique ID for preferences storage
		a.fyneApp = app.NewWithID("io.github.detectview")
	}
	loadIcon(a.fyneApp)

	a.mainWindow = a.fyneApp.NewWindow("detectview")
	if a.gateway == nil {
		a.gateway = NewDialogGateway(a.mainWindow)
	}

	a.setupMainWindow()
	return a
}

func loadIcon(fa fyne.App) {
	iconPath := "icon.png"
	if _, err := os.Stat(iconPath); os.IsNotExist(err) {
		altPath := filepath.Join("internal", "gui", "icon.png")
		if _, errStat := os.Stat(altPath); errStat == nil {
			iconPath = altPath
		}
	}
	if icon, err := fyne.LoadResourceFromPath(iconPath); err == nil {
		fa.SetIcon(icon)
	} else {
		log.Debugf("No app icon at %s: %v", iconPath, err)
	}
}

// GetMainWindow returns the main window instance
func (a *App) GetMainWindow() fyne.Window {
	return a.mainWindow
}

// Screens returns the screen views in menu order.
func (a *App) Screens() []*ScreenView {
	return a.screens
}

// CurrentScreen returns the visible screen view.
func (a *App) CurrentScreen() *ScreenView {
	return a.current
}

// Menu returns the side menu.
func (a *App) Menu() *SideMenu {
	return a.menu
}

// Run starts the GUI application
func (a *App) Run() {
	a.mainWindow.Show()
	a.fyneApp.Run()
}

func (a *App) setupMainWindow() {
	a.mainWindow.Resize(fyne.NewSize(float32(a.cfg.Display.Width)+48, 720))

	notifier := session.NotifierFunc(a.ShowInfo)
	var entries []MenuEntry
	for _, screen := range a.cfg.EnabledScreens() {
		ctrl := session.New(screen, session.Deps{
			Gateway:  a.gateway,
			Uploader: a.newUploader(screen),
			Prober:   a.prober,
			Notifier: notifier,
		})
		view := NewScreenView(a.ctx, ctrl, a.cfg)
		a.screens = append(a.screens, view)
		entries = append(entries, MenuEntry{Name: screen.Name, Title: screen.Title})
	}

	a.title = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	a.body = container.NewStack()
	a.menu = NewSideMenu(a.cfg.Menu.Title, entries, a.ShowScreen)

	menuButton := widget.NewButtonWithIcon("", theme.MenuIcon(), a.menu.Toggle)
	top := container.NewBorder(nil, nil, menuButton, nil, a.title)

	a.content = container.NewBorder(top, nil, a.menu.Container(), nil, a.body)
	a.mainWindow.SetContent(a.content)

	start := a.cfg.DefaultScreen
	if a.screenView(start) == nil && len(a.screens) > 0 {
		start = a.screens[0].Controller().Screen().Name
	}
	a.ShowScreen(start)
}

func (a *App) screenView(name string) *ScreenView {
	for _, s := range a.screens {
		if s.Controller().Screen().Name == name {
			return s
		}
	}
	return nil
}

// ShowScreen switches the body to the named screen and closes the menu.
func (a *App) ShowScreen(name string) {
	view := a.screenView(name)
	if view == nil {
		log.Warnf("no enabled screen named %q", name)
		return
	}
	a.current = view
	a.title.SetText(view.Controller().Screen().Title)
	a.body.Objects = []fyne.CanvasObject{view.Container()}
	a.body.Refresh()
	a.menu.Hide()
}

// ShowError displays an error dialog
func (a *App) ShowError(title string, err error) {
	if err == nil {
		return
	}
	log.LogWithError(err).Error(title)
	dialog.ShowError(err, a.mainWindow)
}

// ShowInfo displays an information dialog
func (a *App) ShowInfo(message string) {
	dialog.ShowInformation("detectview", message, a.mainWindow)
}
