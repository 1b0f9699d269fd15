package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"detectview/internal/annotate"
	"detectview/internal/config"
	"detectview/internal/errors"
	"detectview/internal/log"
	"detectview/internal/overlay"
	"detectview/internal/picker"
	"detectview/internal/probe"
	"detectview/internal/session"
	"detectview/internal/upload"
	"detectview/pkg/types"
)

func newDetectCmd(opts *rootOptions) *cobra.Command {
	var (
		dir         string
		pattern     string
		annotateDir string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "detect [images...]",
		Short: "Upload images and print what was detected",
		Long: `Upload the given images, or the images found in --dir, to the
detection service of the active screen and print the number of objects
detected in each. With --annotate-dir a copy of every image is written with
its bounding boxes drawn in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			screen, err := opts.activeScreen()
			if err != nil {
				return err
			}

			var gateway picker.Gateway
			switch {
			case dir != "" && len(args) > 0:
				return errors.New("pass either image paths or --dir, not both")
			case dir != "":
				if pattern == "" {
					pattern = opts.cfg.Watch.Pattern
				}
				gateway, err = picker.NewGlobGateway(dir, pattern)
				if err != nil {
					return err
				}
			case len(args) > 0:
				gateway = picker.NewFileGateway(args...)
			default:
				return errors.New("no images given")
			}

			// With --json, stdout carries the results alone
			out := cmd.OutOrStdout()
			status := out
			if asJSON {
				status = cmd.ErrOrStderr()
			}
			uploader := upload.New(screen.EndpointBaseURL,
				upload.WithTimeout(opts.cfg.Upload.RequestTimeout),
				upload.WithProgress(func(index, total int, img types.SelectedImage) {
					printf(status, "%s\n", infoText(fmt.Sprintf("[%d/%d] %s (%s)", index+1, total, img.Name(), humanize.Bytes(uint64(img.Bytes)))))
				}),
			)

			var alerts []string
			ctrl := session.New(screen, session.Deps{
				Gateway:  gateway,
				Uploader: uploader,
				Prober:   probe.New(probe.WithUpright(opts.cfg.Upload.UprightBoxes)),
				Notifier: session.NotifierFunc(func(msg string) { alerts = append(alerts, msg) }),
			})

			printf(status, "%s\n", headerText(fmt.Sprintf("%s -> %s", screen.Title, screen.EndpointBaseURL)))
			if err := ctrl.Pick(cmd.Context()); err != nil {
				if errors.IsCancelled(err) {
					return errors.New("no readable images selected")
				}
				if errors.IsPermissionDenied(err) {
					return errors.Wrap(err, picker.PermissionDeniedMessage)
				}
				return err
			}
			ctrl.WaitProbes()

			if asJSON {
				return writeJSON(out, ctrl.Snapshot().Results)
			}
			printSummary(out, ctrl, alerts)

			if annotateDir != "" {
				return writeAnnotated(out, ctrl, opts.cfg, annotateDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "upload the images in this directory")
	cmd.Flags().StringVar(&pattern, "pattern", "", "glob selecting images in --dir (default from config)")
	cmd.Flags().StringVar(&annotateDir, "annotate-dir", "", "write annotated copies of the images here")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw detection results as JSON")

	return cmd
}

func printSummary(w io.Writer, ctrl *session.Controller, alerts []string) {
	snap := ctrl.Snapshot()

	printf(w, "\n%s\n", headerText("Detected Objects"))
	for _, img := range snap.Images {
		if len(overlay.Match(img, snap.Results)) == 0 {
			printf(w, "  %s\n", warningText(img.Name()+": no result"))
			continue
		}
		line := fmt.Sprintf("%s: %s detected", img.Name(), pluralObjects(ctrl.CountForImage(img)))
		if size, ok := snap.Dimensions[img.URI]; ok {
			line += fmt.Sprintf(" (%dx%d)", size.Width, size.Height)
		}
		printf(w, "  %s\n", line)
	}

	total := 0
	for _, img := range snap.Images {
		total += ctrl.CountForImage(img)
	}
	printf(w, "\n%s\n", successText(fmt.Sprintf("%s in %s", pluralObjects(total), humanize.Comma(int64(len(snap.Images)))+" images")))
	for _, a := range alerts {
		log.Debugf("alert: %s", a)
	}
}

func pluralObjects(n int) string {
	if n == 1 {
		return "1 object"
	}
	return fmt.Sprintf("%s objects", humanize.Comma(int64(n)))
}

func writeAnnotated(w io.Writer, ctrl *session.Controller, cfg *config.Config, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewFileError("cannot create output directory", dir, errors.FileAccessDenied, err)
	}

	primary, secondary := cfg.Colors()
	style := annotate.Style{
		Primary:     primary,
		Secondary:   secondary,
		StrokeWidth: cfg.Display.StrokeWidth,
		Upright:     cfg.Upload.UprightBoxes,
	}

	var failed int
	for _, ov := range ctrl.Overlays(cfg.Display.Width) {
		dst := annotate.OutputPath(dir, ov.Image.Name())
		if err := annotate.File(ov, dst, style); err != nil {
			log.LogError(err, "annotation failed")
			failed++
			continue
		}
		printf(w, "%s\n", successText("wrote "+dst))
	}
	if failed > 0 {
		return errors.Newf("%d annotated images could not be written", failed)
	}
	return nil
}

func writeJSON(w io.Writer, results []types.DetectionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(types.DetectionResponse{Results: results})
}

