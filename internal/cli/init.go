package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlcfg/internal/health"
	"github.com/mesh-intelligence/sqlcfg/internal/paths"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	File           string `yaml:"file,omitempty"`
	Driver         string `yaml:"driver"`
	Mode           string `yaml:"mode"`
	Debug          bool   `yaml:"debug"`
	HealthInterval string `yaml:"health_interval"`
}

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the configuration directory and database file",
		Long: "Create the configuration directory and config.yaml, then create the\n" +
			"database file. A --file given here is recorded in config.yaml.",
		Args: cobra.NoArgs,
		RunE: a.runInit,
	}
}

func (a *app) runInit(cmd *cobra.Command, args []string) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError("resolve config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return systemError("create config directory: %w", err)
	}

	file := ""
	if a.flags.file != "" {
		if file, err = filepath.Abs(a.flags.file); err != nil {
			return systemError("resolve file: %w", err)
		}
	}
	configPath := filepath.Join(configDir, configFileExt)
	if err := writeConfigIfMissing(configPath, a.initialConfig(file)); err != nil {
		return systemError("write config: %w", err)
	}

	f, err := a.openFile()
	if err != nil {
		return err
	}
	// Creating the connection in per-call mode needs one operation.
	if _, err := f.Contains("sqlcfg"); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return systemError("finalize storage: %w", err)
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), map[string]string{
			"config": configPath,
			"file":   f.FileName(),
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", f.FileName())
	return nil
}

func (a *app) initialConfig(file string) configFile {
	cfg := configFile{
		File:           file,
		Driver:         a.flags.driver,
		Mode:           a.flags.mode,
		HealthInterval: health.DefaultInterval.String(),
	}
	if cfg.Driver == "" {
		cfg.Driver = types.DriverSQLite
	}
	if cfg.Mode == "" {
		cfg.Mode = string(types.ModePersistent)
	}
	return cfg
}

// writeConfigIfMissing creates config.yaml from cfg if the file does not
// exist. If it already exists, the function returns nil.
func writeConfigIfMissing(path string, cfg configFile) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
