package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// MenuEntry is one navigation item.
type MenuEntry struct {
	Name  string
	Title string
}

// SideMenu is the sliding navigation panel listing the screens.
type SideMenu struct {
	title    string
	entries  []MenuEntry
	onSelect func(name string)

	buttons   []*widget.Button
	panel     *fyne.Container
	container *fyne.Container
	open      bool
}

// NewSideMenu creates a hidden menu. onSelect receives the entry's Name.
func NewSideMenu(title string, entries []MenuEntry, onSelect func(name string)) *SideMenu {
	m := &SideMenu{title: title, entries: entries, onSelect: onSelect}

	header := widget.NewLabelWithStyle(title, fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	items := container.NewVBox(header, widget.NewSeparator())
	for _, e := range entries {
		e := e
		b := widget.NewButton(e.Title, func() {
			if m.onSelect != nil {
				m.onSelect(e.Name)
			}
		})
		b.Alignment = widget.ButtonAlignLeading
		b.Importance = widget.LowImportance
		m.buttons = append(m.buttons, b)
		items.Add(b)
	}

	m.panel = container.NewPadded(items)
	m.container = container.NewStack()
	return m
}

// Container returns the object placed in the window.
func (m *SideMenu) Container() fyne.CanvasObject {
	return m.container
}

// Title returns the menu header text.
func (m *SideMenu) Title() string {
	return m.title
}

// Buttons returns the navigation buttons in entry order.
func (m *SideMenu) Buttons() []*widget.Button {
	return m.buttons
}

// IsOpen reports whether the menu is showing.
func (m *SideMenu) IsOpen() bool {
	return m.open
}

// Show slides the menu in.
func (m *SideMenu) Show() {
	m.open = true
	m.container.Objects = []fyne.CanvasObject{m.panel}
	m.container.Refresh()
}

// Hide slides the menu out.
func (m *SideMenu) Hide() {
	m.open = false
	m.container.Objects = nil
	m.container.Refresh()
}

// Toggle flips the menu.
func (m *SideMenu) Toggle() {
	if m.open {
		m.Hide()
		return
	}
	m.Show()
}
