package main

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/bootstrap"
	"github.com/tracerstudy/tracer-sync/internal/config"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
)

// operatorFactory opens an OperatorService and returns a function releasing it.
type operatorFactory func(ctx context.Context, cfg *config.Config, lgr zerolog.Logger) (services.OperatorService, func(), error)

func openOperators(_ context.Context, cfg *config.Config, lgr zerolog.Logger) (services.OperatorService, func(), error) {
	database, err := bootstrap.SetupDatabase(cfg, lgr)
	if err != nil {
		return nil, nil, err
	}
	deps := bootstrap.BuildDependencies(cfg, database, lgr)
	return deps.OperatorService, database.Close, nil
}

type operatorResult struct {
	Success bool `json:"success"`
	dto.OperatorResponse
}

type operatorOptions struct {
	username string
	password string
	role     string
}

func newOperatorCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operator",
		Short: "Manage accounts that sign in to the HTTP API",
	}
	cmd.AddCommand(newOperatorCreateCmd(c))
	return cmd
}

func newOperatorCreateCmd(c *cli) *cobra.Command {
	var opts operatorOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an operator account with a bcrypt-hashed password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := auth.ParseRole(opts.role)
			if err != nil {
				return err
			}

			svc, release, err := c.newOperators(cmd.Context(), c.cfg, c.lgr)
			if err != nil {
				return err
			}
			defer release()

			o, err := svc.CreateOperator(cmd.Context(), opts.username, opts.password, role)
			if err != nil {
				return err
			}
			return writeJSONLine(c.out, operatorResult{Success: true, OperatorResponse: dto.NewOperatorResponse(o)})
		},
	}

	cmd.Flags().StringVar(&opts.username, "username", "", "Login name (required)")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password, at least 6 characters (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(auth.RoleAdmin), "Role: viewer or admin")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
