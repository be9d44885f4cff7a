package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlcfg/pkg/sqlcfg"
)

const modulePath = "github.com/mesh-intelligence/sqlcfg"

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sqlcfg version",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{
					"version": sqlcfg.Version,
					"module":  modulePath,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sqlcfg v%s\nmodule: %s\n", sqlcfg.Version, modulePath)
			return nil
		},
	}
}
