// Command docrisk submits documents to the risk analysis service and prints
// the score and risky clauses.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"doc-risk-eval/internal/config"
	"doc-risk-eval/internal/riskapi"
	"doc-risk-eval/internal/store"
)

// options carries the persistent flags and the resolved configuration.
type options struct {
	server      string
	timeout     time.Duration
	configPath  string
	historyPath string
	logLevel    string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "docrisk",
		Short: "Analyze contracts for risky clauses",
		Long: `docrisk uploads documents to the risk analysis service and renders
the overall risk score, the risk gauge and every risky clause the
service reports.

Configuration is read from a YAML file (--config or DOCRISK_CONFIG),
then environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "analysis service base URL (default "+riskapi.DefaultBaseURL+")")
	flags.DurationVar(&opts.timeout, "timeout", 0, "request timeout (default 2m)")
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.historyPath, "history", "", "sqlite file that records every analysis")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newAnalyzeCmd(opts), newHealthCmd(opts), newHistoryCmd(opts))
	return rootCmd
}

func (o *options) resolve(cmd *cobra.Command) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Service.BaseURL = o.server
	}
	if flags.Changed("timeout") {
		cfg.Service.Timeout = o.timeout
	}
	if flags.Changed("history") {
		cfg.History.Path = o.historyPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.Log.Apply()
	o.cfg = cfg
	return nil
}

func (o *options) client() *riskapi.Client {
	return riskapi.NewClient(o.cfg.ServiceClientConfig())
}

// openHistory returns nil when no history path is configured.
func (o *options) openHistory() (*store.Database, error) {
	if o.cfg.History.Path == "" {
		return nil, nil
	}
	return store.Open(o.cfg.History.Path, o.cfg.Log.Level != "debug")
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
