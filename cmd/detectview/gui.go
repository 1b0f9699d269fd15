package main

import (
	"github.com/spf13/cobra"

	"detectview/internal/gui"
)

func newGUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Open the graphical interface",
		Long:  `Open a window with one screen per enabled screen profile and a side menu to switch between them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.screen != "" {
				if _, err := opts.activeScreen(); err != nil {
					return err
				}
				opts.cfg.DefaultScreen = opts.screen
			}
			app := gui.NewApp(opts.cfg, gui.WithContext(cmd.Context()))
			app.Run()
			return nil
		},
	}
}
