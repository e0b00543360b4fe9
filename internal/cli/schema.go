package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dais/internal/remote"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON Schema of the remote agent payload",
	Long:  "Prints the JSON Schema describing the record array the remote stats agent emits, for validating alternative agent implementations.",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := remote.MarshalSchema(remote.PayloadSchema())
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}
