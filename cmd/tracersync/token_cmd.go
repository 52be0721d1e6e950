package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/tracerstudy/tracer-sync/internal/app/models/dto"
	"github.com/tracerstudy/tracer-sync/internal/pkg/auth"
)

type tokenOptions struct {
	operator string
	role     string
	ttl      time.Duration
}

func newTokenCmd(c *cli) *cobra.Command {
	var opts tokenOptions

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateForServer(); err != nil {
				return err
			}
			role, err := auth.ParseRole(opts.role)
			if err != nil {
				return err
			}

			jwt := auth.NewJWTService(auth.JWTConfig{
				SecretKey:      c.cfg.JWT.Secret,
				AccessTokenExp: c.cfg.AccessTokenTTL(),
				TokenIssuer:    c.cfg.JWT.Issuer,
			})
			token, expiresAt, err := jwt.GenerateToken(opts.operator, role, opts.ttl)
			if err != nil {
				return err
			}
			return writeJSONLine(c.out, dto.NewTokenResponse(token, opts.operator, string(role), expiresAt))
		},
	}

	cmd.Flags().StringVar(&opts.operator, "operator", "", "Operator name carried in the token (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(auth.RoleViewer), "Role: viewer or admin")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", 0, "Token lifetime (default: jwt.access_token_expiration)")
	_ = cmd.MarkFlagRequired("operator")
	return cmd
}
