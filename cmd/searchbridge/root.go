package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchbridge/internal/config"
	logpkg "github.com/kailas-cloud/searchbridge/internal/logger"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	env      string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "searchbridge",
		Short: "Rule-based search over Elasticsearch with record reconciliation",
		Long: `searchbridge compiles search criteria into Elasticsearch queries, runs them
rule by rule and maps the hits back to persisted records.

Example usage:
  searchbridge serve                               # Start the HTTP API
  searchbridge search posts "golang" --page 1      # Query a record type
  searchbridge search posts "golang" --scope lang=en
  searchbridge count posts "golang"`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(), "config environment (config/<env>.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCmd(opts),
		newSearchCmd(opts),
		newCountCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the environment's config and builds the logger.
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	level := o.logLevel
	if level == "" {
		level = cfg.Logging.Level
	}
	logger, err := logpkg.NewLogger(o.env, level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return &cfg, logger, nil
}
