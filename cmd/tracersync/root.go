package main

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/bootstrap"
	"github.com/tracerstudy/tracer-sync/internal/config"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// importerFactory opens an ImportService and returns a function releasing it.
type importerFactory func(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (services.ImportService, func(), error)

type cli struct {
	configPath   string
	out          io.Writer
	cfg          *config.Config
	lgr          zerolog.Logger
	newImporter  importerFactory
	newOperators operatorFactory
}

func openImporter(_ context.Context, cfg *config.Config, lgr zerolog.Logger) (services.ImportService, func(), error) {
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, nil, err
	}
	deps := bootstrap.BuildDependencies(cfg, database, lgr)
	return deps.ImportService, database.Close, nil
}

func newRootCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tracersync",
		Short:         "Tracer study CSV ingestion and reconciliation",
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Argument errors have been reported by now; failures past this point are results.
			cmd.SilenceUsage = true
			cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(c.configPath)
			if err != nil {
				return err
			}
			c.cfg, c.lgr = cfg, lgr
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&c.configPath, "config", bootstrap.DefaultConfigPath, "Path to the YAML configuration file")

	for _, ic := range ingestCommands {
		cmd.AddCommand(newIngestCmd(c, ic))
	}
	cmd.AddCommand(newPreviewCmd(c))
	cmd.AddCommand(newMigrateCmd(c))
	cmd.AddCommand(newServeCmd(c))
	cmd.AddCommand(newTokenCmd(c))
	cmd.AddCommand(newOperatorCmd(c))
	return cmd
}

// execute runs the command line and returns the process exit status.
func execute(args []string, out io.Writer) int {
	c := &cli{out: out, newImporter: openImporter, newOperators: openOperators}
	return run(c, args)
}

func run(c *cli, args []string) int {
	cmd := newRootCmd(c)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	logger.Error().Err(err).Msg("Command failed")
	if werr := writeJSONLine(c.out, dto.NewCommandError(err)); werr != nil {
		logger.Error().Err(werr).Msg("Failed to write result")
	}
	return 1
}
