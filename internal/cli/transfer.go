package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write a section as YAML",
		Long: "Export writes every value below a section as nested YAML. A path that\n" +
			"holds a value and also has children lists the children as dotted keys.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			f, err := a.openFile()
			if err != nil {
				return err
			}
			defer f.Close()

			s, err := section(f, path)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return s.ExportYAML(cmd.OutOrStdout())
			}
			out, err := os.Create(output)
			if err != nil {
				return systemError("create %s: %w", output, err)
			}
			if err := s.ExportYAML(out); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return systemError("close %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var (
		overwrite bool
		into      string
	)
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Store the values of a YAML file",
		Long: "Import reads a YAML mapping and stores every scalar at its dotted path.\n" +
			"Without --replace an existing value fails the import. Use - for stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer file.Close()
				in = file
			}

			f, err := a.openFile()
			if err != nil {
				return err
			}
			defer f.Close()

			s, err := section(f, into)
			if err != nil {
				return err
			}
			n, err := s.ImportYAML(in, overwrite)
			if err != nil {
				return fmt.Errorf("imported %d values before failing: %w", n, err)
			}

			if a.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]int{"imported": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d values\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "replace", false, "overwrite existing values")
	cmd.Flags().StringVar(&into, "into", "", "section to import below (default: root)")
	return cmd
}
