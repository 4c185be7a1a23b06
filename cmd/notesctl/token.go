package main

import (
	"errors"
	"fmt"

	"noteforge-server/internal/config"
	"noteforge-server/pkg/jwt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// tokenCmd mints a bearer token signed with JWT_SECRET. Sign-in lives
// elsewhere; this is for local development and smoke tests.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Args:  cobra.NoArgs,
		RunE:  runToken,
	}

	cmd.Flags().String("user-id", "", "User ID to embed (random when empty)")
	cmd.Flags().String("email", "", "Email claim")
	cmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to JWT_EXPIRATION)")

	return cmd
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetString("user-id")
	email, _ := cmd.Flags().GetString("email")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	if userID == "" {
		userID = uuid.New().String()
	}
	if ttl == 0 {
		ttl = cfg.JWT.Expiration
	}
	if ttl < 0 {
		return errors.New("ttl must be positive")
	}

	token, err := jwt.GenerateToken(userID, email, ttl, cfg.JWT.Secret)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
