package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/bootstrap"
)

type ingestCommand struct {
	use   string
	short string
	mode  models.Mode
}

var ingestCommands = []ingestCommand{
	{use: "import <file>", short: "Insert or update alumni from a master list", mode: models.ModeImport},
	{use: "responden <file>", short: "Reconcile tracer-study respondents", mode: models.ModeTracer},
	{use: "alumni-total <file>", short: "Recount graduates per program from a roster", mode: models.ModeAlumniTotal},
}

func readSource(path string) (services.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Source{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return services.Source{Name: filepath.Base(path), Data: data}, nil
}

func newIngestCmd(c *cli, ic ingestCommand) *cobra.Command {
	return &cobra.Command{
		Use:   ic.use,
		Short: ic.short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}

			svc, release, err := c.newImporter(cmd.Context(), c.cfg, c.lgr)
			if err != nil {
				return err
			}
			defer release()

			outcome, err := svc.Import(cmd.Context(), ic.mode, src)
			if err != nil {
				return err
			}
			return writeJSONLine(c.out, dto.NewOutcomeResponse(outcome))
		},
	}
}

func newPreviewCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the inferred column mapping and the first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			src, err := readSource(args[0])
			if err != nil {
				return err
			}

			preview, err := services.PreviewSource(src, bootstrap.IngestOptions(c.cfg))
			if err != nil {
				return err
			}
			return writeJSONLine(c.out, dto.NewPreviewResponse(preview))
		},
	}
}
