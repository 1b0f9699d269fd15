package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/media"
	"detectview/internal/probe"
	"detectview/internal/session"
	"detectview/internal/upload"
	"detectview/internal/watch"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var pattern string

	cmd := &cobra.Command{
		Use:   "watch <directory>...",
		Short: "Upload images as they land in watched directories",
		Long: `Watch directories for new images. Once a directory has been quiet for
the settle period, the new images are uploaded as one batch and the
detected object counts are printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := opts.activeScreen()
			if err != nil {
				return err
			}
			if pattern == "" {
				pattern = opts.cfg.Watch.Pattern
			}
			matcher, err := media.NewMatcher(pattern)
			if err != nil {
				return err
			}

			w, err := watch.New(matcher)
			if err != nil {
				return err
			}
			for _, dir := range args {
				if err := w.AddDirectory(dir); err != nil {
					return err
				}
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			out := cmd.OutOrStdout()
			ctrl := session.New(screen, session.Deps{
				Gateway:  watch.NewGateway(w, opts.cfg.Watch.Settle),
				Uploader: upload.New(screen.EndpointBaseURL, upload.WithTimeout(opts.cfg.Upload.RequestTimeout)),
				Prober:   probe.New(probe.WithUpright(opts.cfg.Upload.UprightBoxes)),
				Notifier: session.NotifierFunc(func(msg string) { log.Debugf("alert: %s", msg) }),
			})

			printf(out, "%s\n", headerText(fmt.Sprintf("Watching %d directories for %s", len(args), matcher.Pattern())))
			return watchLoop(cmd, ctrl, w)
		},
	}

	cmd.Flags().StringVar(&pattern, "pattern", "", "glob selecting images (default from config)")
	return cmd
}

// watchLoop runs picks until the command's context ends.
func watchLoop(cmd *cobra.Command, ctrl *session.Controller, w *watch.Watcher) error {
	ctx := cmd.Context()
	for {
		err := ctrl.Pick(ctx)
		switch {
		case err == nil:
			ctrl.WaitProbes()
			printSummary(cmd.OutOrStdout(), ctrl, nil)
		case errors.IsCancelled(err):
			if ctx.Err() != nil {
				return nil
			}
			if !w.IsRunning() {
				return errors.New("watcher stopped")
			}
		default:
			log.LogError(err, "watch batch failed")
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}
