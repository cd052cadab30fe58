package whispers

import (
	"fmt"
	"slices"
	"strings"

	"github.com/adeptex/whispers/internal/rules"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newRulesCmd() *cobra.Command {
	var groupsOnly, idsOnly bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List built-in rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			switch {
			case groupsOnly:
				groups, err := rules.Groups()
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintln(out, g)
				}
				return nil
			case idsOnly:
				ids, err := rules.IDs()
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			catalog, err := rules.Catalog()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(catalog))
			for _, rec := range catalog {
				rows = append(rows, []string{rec.Group, rec.ID, rec.Severity, rec.Message})
			}
			slices.SortFunc(rows, func(a, b []string) int {
				return strings.Compare(strings.Join(a, "\x00"), strings.Join(b, "\x00"))
			})
			table := tablewriter.NewWriter(out)
			table.Header("GROUP", "RULE ID", "SEVERITY", "MESSAGE")
			if err := table.Bulk(rows); err != nil {
				return err
			}
			return table.Render()
		},
	}
	cmd.Flags().BoolVar(&groupsOnly, "groups", false, "list rule groups only")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "list rule ids only")
	return cmd
}
