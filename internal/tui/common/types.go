// Package common holds the types shared by the TUI model and its views.
package common

import (
	"time"

	"detectview/internal/overlay"
	"detectview/internal/picker"
)

// ImageEntry is one image file listed in the browser.
type ImageEntry struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// ModelReader defines the interface that views use to read model state
type ModelReader interface {
	Title() string
	CurrentDir() string
	Images() []ImageEntry
	Cursor() int
	IsSelected(path string) bool
	SelectionOrder(path string) int
	Limit() picker.Limit
	Uploading() bool
	Summaries() []overlay.Summary
	StatusView() string
	ShowHelp() bool
}
