package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"detectview/internal/media"
	"detectview/internal/probe"
	"detectview/internal/tui"
	"detectview/internal/upload"
)

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [directory]",
		Short: "Browse a directory in the terminal and upload selected images",
		Args:  cobra.MaximumNArgs(1),
		Annotations: map[string]string{
			ownsTerminal: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := opts.activeScreen()
			if err != nil {
				return err
			}
			matcher, err := media.NewMatcher(opts.cfg.Watch.Pattern)
			if err != nil {
				return err
			}

			var dir string
			if len(args) > 0 {
				dir = args[0]
			}

			model := tui.New(cmd.Context(), tui.Options{
				Dir:      dir,
				Screen:   screen,
				Uploader: upload.New(screen.EndpointBaseURL, upload.WithTimeout(opts.cfg.Upload.RequestTimeout)),
				Prober:   probe.New(probe.WithUpright(opts.cfg.Upload.UprightBoxes)),
				Matcher:  matcher,
			})

			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			if err == tea.ErrProgramKilled {
				return nil
			}
			return err
		},
	}
}
