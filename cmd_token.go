package main

import (
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/config"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/auth"
	"github.com/spf13/cobra"
)

var tokenOpts struct {
	uid   string
	email string
	role  string
}

// tokenCmd signs a bearer token with the configured secret, for local development
// and for bootstrapping the first admin.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a signed bearer token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Read(configPath, envFile)
		if err != nil {
			return err
		}
		role, err := identity.ParseRole(tokenOpts.role)
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		signer, err := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
		if err != nil {
			return err
		}
		tok, err := signer.Issue(identity.Identity{UID: tokenOpts.uid, Email: tokenOpts.email, Role: role})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOpts.uid, "uid", "", "subject uid")
	tokenCmd.Flags().StringVar(&tokenOpts.email, "email", "", "subject email")
	tokenCmd.Flags().StringVar(&tokenOpts.role, "role", string(identity.RoleCustomer), "customer or admin")
	_ = tokenCmd.MarkFlagRequired("uid")
}
