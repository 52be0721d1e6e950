package main

import (
	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/bootstrap"
)

type migrateResult struct {
	Success bool     `json:"success"`
	Applied []string `json:"applied"`
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed reference data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := bootstrap.SetupDatabase(c.cfg, c.lgr)
			if err != nil {
				return err
			}
			defer database.Close()

			applied, err := bootstrap.MigrateAndSeed(cmd.Context(), c.cfg, database, c.lgr)
			if err != nil {
				return err
			}
			if applied == nil {
				applied = []string{}
			}
			return writeJSONLine(c.out, migrateResult{Success: true, Applied: applied})
		},
	}
}
