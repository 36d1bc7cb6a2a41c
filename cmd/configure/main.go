package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wellora/wellness-api/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "wellness-configure",
		Short: "Configuration tool for the Wellness API",
		Long:  "CLI tool for managing CORS, rate limit, and authentication settings",
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
