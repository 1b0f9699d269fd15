package views

import (
	"fmt"
	"strings"

	"detectview/internal/tui/common"
	"detectview/internal/tui/components"
	"detectview/internal/tui/styles"
)

const summaryTitle = "Detected Objects"

func RenderMainView(m common.ModelReader) string {
	var sb strings.Builder

	sb.WriteString(styles.Theme.Title.Render(m.Title()) + "\n")

	list := components.NewImageList(m.CurrentDir(), m.Images(), m.Cursor(), m.SelectionOrder)
	sb.WriteString(list.View())

	limit := m.Limit()
	selected := 0
	for _, img := range m.Images() {
		if m.IsSelected(img.Path) {
			selected++
		}
	}
	sb.WriteString("\n" + styles.Theme.Help.Render(fmt.Sprintf("Selected %d of %d", selected, limit.Cap())) + "\n")

	if summaries := m.Summaries(); len(summaries) > 0 {
		sb.WriteString("\n" + styles.Theme.Selected.Render(summaryTitle) + "\n")
		for _, s := range summaries {
			sb.WriteString("  " + s.String() + "\n")
		}
	}

	if status := m.StatusView(); status != "" {
		sb.WriteString("\n" + status + "\n")
	}

	if m.ShowHelp() {
		sb.WriteString("\n" + RenderHelp())
	}
	sb.WriteString("\n" + RenderKeyCommands(m.Uploading()))

	return styles.Theme.App.Render(sb.String())
}

func RenderKeyCommands(uploading bool) string {
	if uploading {
		return styles.Theme.Help.Render("Uploading...  [q] Quit")
	}
	return styles.Theme.Help.Render("[↑/k] Up  [↓/j] Down  [Space] Select  [Enter] Upload  [r] Rescan  [q] Quit  [?] Help")
}

func RenderHelp() string {
	return styles.Theme.Help.Render(`Select images with Space, then press Enter to upload them one by one.
Each image is sent to the detection service and the objects found are
counted below the list. Picking again replaces the previous results.`)
}
