// Package cli implements the sqlcfg command-line interface.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlcfg/pkg/sqlcfg"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	file      string
	driver    string
	mode      string
	jsonMode  bool
	verbose   bool
}

// app carries the state shared by one command tree.
type app struct {
	flags  rootFlags
	logger *slog.Logger
}

// NewRootCmd creates the top-level "sqlcfg" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	root := &cobra.Command{
		Use:   "sqlcfg",
		Short: "Hierarchical configuration stored in SQLite",
		Long: "sqlcfg reads and writes dotted configuration paths kept in an embedded\n" +
			"SQLite file, one single-row table per value.",
		// Do not print usage on errors returned by subcommands.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if a.flags.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.file, "file", "", "database file (default: ./config.db)")
	pf.StringVar(&a.flags.driver, "driver", "", "database driver: sqlite or sqlite3")
	pf.StringVar(&a.flags.mode, "mode", "", "connection mode: persistent or per_call")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newVersionCmd(a),
		newInitCmd(a),
		newGetCmd(a),
		newSetCmd(a),
		newReplaceCmd(a),
		newUnsetCmd(a),
		newKeysCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newDeleteCmd(a),
		newMonitorCmd(a),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sqlcfg:", err)
		os.Exit(exitCode(err))
	}
}

// sysError marks a failure of the environment rather than of the input.
type sysError struct {
	err error
}

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

func systemError(format string, args ...any) error {
	return &sysError{err: fmt.Errorf(format, args...)}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var se *sysError
	switch {
	case errors.As(err, &se),
		errors.Is(err, types.ErrStorage),
		errors.Is(err, types.ErrFileDeletion):
		return exitSysError
	default:
		return exitUserError
	}
}

// openFile resolves the settings and opens the configuration file. The
// caller must Close it.
func (a *app) openFile() (*sqlcfg.File, error) {
	s, err := a.settings()
	if err != nil {
		return nil, err
	}
	return sqlcfg.Open(s.config, sqlcfg.WithLogger(a.logger))
}

// section returns the section at path, or the root for "".
func section(f *sqlcfg.File, path string) (*sqlcfg.Section, error) {
	if path == "" {
		return f.Section, nil
	}
	return f.Sub(path)
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
