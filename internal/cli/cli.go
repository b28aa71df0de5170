// Package cli defines the pulsectl command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	service "github.com/okian/devpulse/internal/app"
	"github.com/okian/devpulse/internal/config"
	"github.com/okian/devpulse/internal/notify"
	"github.com/okian/devpulse/pkg/logger"
)

// Output formats.
const (
	OutputTable = "table"
	OutputJSON  = "json"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath string
	output     string
	noColor    bool
	logLevel   string
}

// runtime is the service stack a command runs against.
type runtime struct {
	cfg      *config.Config
	svc      *service.Service
	notifier *notify.Notifier
}

func (r *runtime) close() {
	r.svc.Stop()
}

// NewRootCommand builds pulsectl. Output is written to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pulsectl",
		Short:         "Query contribution leaderboards and the support roster",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			switch opts.output {
			case OutputTable, OutputJSON:
			default:
				return fmt.Errorf("unknown output %q: use %s or %s", opts.output, OutputTable, OutputJSON)
			}
			return nil
		},
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv(config.EnvConfigFile), "Path to a YAML config file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", OutputTable, "Output format: table or json")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")

	root.AddCommand(
		newLeaderboardCommand(opts),
		newSupportCommand(opts),
		newNotifyCommand(opts),
	)
	return root
}

// Execute runs pulsectl against os.Args and returns the process exit code.
func Execute() int {
	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// start loads configuration and starts a service. Logs go to stderr so
// table and JSON output stay clean.
func start(ctx context.Context, opts *options) (*runtime, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.InitWith(os.Stderr, cfg.LogFormat); err != nil {
		return nil, err
	}
	if err := logger.SetLevelString(opts.logLevel); err != nil {
		return nil, err
	}

	svc := service.NewFromConfig(cfg)
	if err := svc.Start(ctx); err != nil {
		return nil, err
	}
	return &runtime{
		cfg:      cfg,
		svc:      svc,
		notifier: notify.New(svc, notify.ConfigOptions(cfg)...),
	}, nil
}
