package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cwatch-dashboard/backend/config"
	"cwatch-dashboard/backend/system"
)

// globalOptions are the persistent flags shared by every command. Flags win
// over the environment, which wins over the config file.
type globalOptions struct {
	configPath string
	apiBase    string
	interval   time.Duration
	logLevel   string
}

// NewRootCmd creates the root cwatch-dashboard command.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "cwatch-dashboard",
		Short: "Live dashboard for the CWatch security API",
		Long: `cwatch-dashboard polls the CWatch dashboard API, keeps a consistent view of
traffic, suspicious and blocked IPs, and serves it over HTTP or in the terminal.`,
		SilenceUsage: true,
	}

	opts.bind(root)

	root.AddCommand(
		newServeCmd(opts),
		newTopCmd(opts),
		newSnapshotCmd(opts),
		newSeriesCmd(opts),
		newConfigCmd(),
	)

	return root
}

// Execute runs the root command until it returns or the process is signalled.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func (o *globalOptions) bind(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to a YAML config file")
	flags.StringVar(&o.apiBase, "api-base", "", "CWatch dashboard API base URL")
	flags.DurationVar(&o.interval, "interval", 0, "poll interval")
	flags.StringVar(&o.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// load resolves the effective configuration for cmd.
func (o *globalOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("api-base") {
		cfg.API.BaseURL = o.apiBase
	}
	if flags.Changed("interval") {
		cfg.Poll.Interval = o.interval
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, cfg.Validate()
}

// initLogging starts the file logger. Console mirrors entries to stdout.
func initLogging(cfg config.Config, console bool) {
	err := system.InitLogger(system.LoggerOptions{
		Dir:     cfg.Logging.Dir,
		Level:   system.ParseLogLevel(cfg.Logging.Level),
		Console: console,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize file logger: %v\n", err)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "init-config [path]",
		Short:   "Write an example config file",
		Args:    cobra.MaximumNArgs(1),
		Example: "  cwatch-dashboard init-config cwatch.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "cwatch-dashboard.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
