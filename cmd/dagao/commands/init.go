package commands

import (
	"fmt"

	"dagao/pkg/app"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a dagao repository",
	Long: `Create an empty dagao repository (index/ and store/) or reopen an existing one.
Hash algorithm and compression are fixed when the store is first created.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.InitApp(cmd.Context())
		if err != nil {
			return fmt.Errorf("init failed: %w", err)
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized dagao repository in %s\n", a.RepoPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
