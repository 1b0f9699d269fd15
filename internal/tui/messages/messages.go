package messages

import "detectview/internal/tui/common"

// ScanCompleteMsg carries a fresh directory listing.
type ScanCompleteMsg struct {
	Images []common.ImageEntry
	Err    error
}

// PickDoneMsg reports the end of a pick/upload cycle.
type PickDoneMsg struct {
	Err    error
	Alerts []string
}
