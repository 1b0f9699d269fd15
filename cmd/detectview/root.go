package main

import (
	"io"

	"github.com/spf13/cobra"

	"detectview/internal/config"
	"detectview/internal/log"
)

// ownsTerminal marks commands that draw to the terminal themselves. Their
// logs go to --log-file only.
const ownsTerminal = "owns-terminal"

// rootOptions are the persistent flags and the configuration they resolve to.
type rootOptions struct {
	cfgFile  string
	screen   string
	endpoint string
	envFile  string
	logFile  string
	logJSON  bool
	debug    bool

	cfg *config.Config
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "detectview",
		Short: "Send images to an object detection service and draw what it finds",
		Long: `detectview picks images, uploads them one at a time to an object
detection service and shows the bounding boxes it returns, scaled onto
each image, along with a count of detected objects per image.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.config/detectview/config.yaml)")
	flags.StringVar(&opts.screen, "screen", "", "screen profile to run (default from config)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "detection service base URL for every screen")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file read before the environment")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to this file (the only log output of tui)")
	flags.BoolVar(&opts.logJSON, "log-json", false, "write logs as JSON lines")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(newDetectCmd(opts))
	rootCmd.AddCommand(newGUICmd(opts))
	rootCmd.AddCommand(newTUICmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newStubServerCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))

	return rootCmd
}

// load configures logging and resolves the configuration. An unreadable
// config file falls back to the defaults with a warning; flag and
// environment overrides must still validate.
func (o *rootOptions) load(cmd *cobra.Command) error {
	var logOpts []log.Option
	if o.logJSON {
		logOpts = append(logOpts, log.WithJSON())
	}
	switch {
	case cmd.Annotations[ownsTerminal] != "" && o.logFile != "":
		logOpts = append(logOpts, log.WithFileOnly(o.logFile))
	case cmd.Annotations[ownsTerminal] != "":
		logOpts = append(logOpts, log.WithOutput(io.Discard))
	case o.logFile != "":
		logOpts = append(logOpts, log.WithFile(o.logFile))
	}
	log.Configure(logOpts...)

	if err := config.LoadDotEnv(o.envFile); err != nil {
		log.LogWithError(err).Warn("ignoring dotenv file")
	}

	var err error
	if o.cfgFile != "" {
		o.cfg, err = config.LoadConfigFile(o.cfgFile)
	} else {
		o.cfg, err = config.LoadConfig()
	}
	if err != nil {
		printf(cmd.ErrOrStderr(), "%s\n", warningText(err.Error()))
		printf(cmd.ErrOrStderr(), "%s\n", infoText("Using default settings. Run 'detectview config init' to write a config file."))
		o.cfg = config.New()
	}

	if env := o.cfg.ApplyEnv(); env != "" {
		log.Debugf("endpoint overridden from %s", config.EndpointEnvVar)
	}
	o.cfg.OverrideEndpoint(o.endpoint)
	if err := o.cfg.Validate(); err != nil {
		return err
	}

	log.SetDebug(o.debug || o.cfg.Debug)
	return nil
}

// activeScreen resolves --screen against the loaded configuration.
func (o *rootOptions) activeScreen() (config.Screen, error) {
	return o.cfg.ActiveScreen(o.screen)
}
