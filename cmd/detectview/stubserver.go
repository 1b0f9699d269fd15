package main

import (
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"detectview/internal/log"
	"detectview/internal/stubserver"
)

func newStubServerCmd(opts *rootOptions) *cobra.Command {
	var (
		addr     string
		fixtures string
	)

	cmd := &cobra.Command{
		Use:   "stub-server",
		Short: "Run a local detection service that replays fixture results",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !log.DebugEnabled() {
				gin.SetMode(gin.ReleaseMode)
			}

			var f stubserver.Fixtures
			if fixtures != "" {
				var err error
				if f, err = stubserver.LoadFixtures(fixtures); err != nil {
					return err
				}
			}

			printf(cmd.OutOrStdout(), "%s\n", infoText("Serving stub detection results on "+addr))
			return stubserver.New(f).Run(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8000", "listen address")
	cmd.Flags().StringVar(&fixtures, "fixtures", "", "YAML file of results keyed by file name")
	return cmd
}
