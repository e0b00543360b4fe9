package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dais/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "dais",
	Short: "dais – a shell wrapper with enriched listings",
	Long:  "dais wraps your interactive shell, forwarding everything transparently while enriching directory listings, adding visual history navigation and extending both over SSH sessions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Start()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
