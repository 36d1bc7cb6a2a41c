package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wellora/wellness-api/internal/auth"
	"github.com/wellora/wellness-api/internal/config"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test authentication configuration",
		Long:  "Test the configured JWKS endpoint by fetching and parsing the key set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Testing JWKS endpoint: %s\n", cfg.JWKSURL)

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			keys := auth.NewKeySource(cfg.JWKSURL)
			set, err := keys.Keys(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch JWKS: %w", err)
			}

			fmt.Printf("✓ JWKS endpoint is accessible (%d keys)\n", set.Len())

			if cfg.JWTIssuer != "" {
				fmt.Printf("Expected token issuer: %s\n", cfg.JWTIssuer)
			} else {
				fmt.Println("Warning: JWT_ISSUER is not set, issuer claims will not be checked")
			}

			return nil
		},
	}

	return cmd
}
