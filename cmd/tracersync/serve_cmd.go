package main

import (
	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/server"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := server.NewServer(c.cfg, c.lgr)
			if err != nil {
				return err
			}
			if err := srv.Run(); err != nil {
				return err
			}
			c.lgr.Info().Msg("Application finished gracefully.")
			return writeJSONLine(c.out, struct {
				Success bool `json:"success"`
			}{Success: true})
		},
	}
}
