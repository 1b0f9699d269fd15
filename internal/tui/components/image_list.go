package components

import (
	"fmt"
	"strings"

	"detectview/internal/tui/common"
	"detectview/internal/tui/styles"

	"github.com/dustin/go-humanize"
)

// ImageList renders the browsable image listing.
type ImageList struct {
	images     []common.ImageEntry
	cursor     int
	currentDir string
	order      func(path string) int
}

// NewImageList creates a list. order returns the 1-based selection
// position of a path, or 0 when it is not selected.
func NewImageList(dir string, images []common.ImageEntry, cursor int, order func(path string) int) *ImageList {
	return &ImageList{
		images:     images,
		cursor:     cursor,
		currentDir: dir,
		order:      order,
	}
}

func (l *ImageList) View() string {
	var s strings.Builder

	s.WriteString(styles.Theme.Help.Render("Directory: "+l.currentDir) + "\n\n")

	if len(l.images) == 0 {
		s.WriteString("No images found\n")
		return s.String()
	}

	for i, img := range l.images {
		style := styles.Theme.Unselected
		mark := "[ ]"
		if n := l.order(img.Path); n > 0 {
			style = styles.Theme.Selected
			mark = fmt.Sprintf("[%d]", n)
		}

		cursor := " "
		if i == l.cursor {
			cursor = styles.Theme.Cursor.Render(">")
		}

		details := fmt.Sprintf(" %8s  %s", humanize.Bytes(uint64(img.Size)), humanize.Time(img.ModTime))

		s.WriteString(fmt.Sprintf("%s %s %s%s\n",
			cursor,
			mark,
			style.Render(img.Name),
			styles.Theme.Help.Render(details)))
	}

	return s.String()
}
