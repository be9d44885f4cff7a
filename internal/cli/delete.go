package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errForceRequired = errors.New("refusing to delete without --force")

func newDeleteCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return errForceRequired
			}

			f, err := a.openFile()
			if err != nil {
				return err
			}
			name := f.FileName()
			if err := f.Delete(); err != nil {
				return err
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": name})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm deletion")
	return cmd
}
