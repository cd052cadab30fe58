package whispers

import (
	"fmt"

	"github.com/adeptex/whispers/internal/ignore"
	"github.com/spf13/cobra"
)

func newIgnoreCmd() *cobra.Command {
	var root string
	cmd := &cobra.Command{
		Use:   "ignore <pattern>...",
		Short: "Add paths or globs to " + ignore.FileName,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range args {
				if err := ignore.Append(root, p); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", ignore.FileName)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "root", ".", "directory holding the ignore file")
	return cmd
}
