package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/sqlcfg/internal/health"
	"github.com/mesh-intelligence/sqlcfg/internal/paths"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	envPrefix = "SQLCFG"

	cfgKeyFile           = "file"
	cfgKeyDriver         = "driver"
	cfgKeyMode           = "mode"
	cfgKeyDebug          = "debug"
	cfgKeyHealthInterval = "health_interval"
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# sqlcfg CLI configuration

# Database driver: sqlite (pure Go) or sqlite3 (cgo)
driver: sqlite

# Connection mode: persistent or per_call
mode: persistent

# Log every SQL statement at debug level
debug: false

# Time between monitor reports
health_interval: 2s

# Database file (optional; overridable by --file)
# file:
`

// settings are the resolved options for one command.
type settings struct {
	configDir string
	config    types.Config
	interval  time.Duration
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run. SQLCFG_DRIVER,
// SQLCFG_MODE, SQLCFG_DEBUG and SQLCFG_HEALTH_INTERVAL override the file.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, systemError("create config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, systemError("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDriver, types.DriverSQLite)
	v.SetDefault(cfgKeyMode, string(types.ModePersistent))
	v.SetDefault(cfgKeyDebug, false)
	v.SetDefault(cfgKeyHealthInterval, health.DefaultInterval)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	// The file key is resolved by paths.ResolveFile, where SQLCFG_FILE
	// ranks below config.yaml, so it is not bound here.
	v.SetEnvPrefix(envPrefix)
	for _, key := range []string{cfgKeyDriver, cfgKeyMode, cfgKeyDebug, cfgKeyHealthInterval} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in configDir.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

// settings resolves flags, config.yaml and the environment into the
// options for one command. Flags win over everything else.
func (a *app) settings() (settings, error) {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return settings{}, systemError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	file, err := paths.ResolveFile(a.flags.file, v.GetString(cfgKeyFile))
	if err != nil {
		return settings{}, systemError("resolve file: %w", err)
	}

	driver := a.flags.driver
	if driver == "" {
		driver = v.GetString(cfgKeyDriver)
	}
	modeName := a.flags.mode
	if modeName == "" {
		modeName = v.GetString(cfgKeyMode)
	}
	mode, err := types.ParseMode(modeName)
	if err != nil {
		return settings{}, fmt.Errorf("mode %q: %w", modeName, err)
	}

	cfg := types.Config{
		Driver:   driver,
		FileName: file,
		Mode:     mode,
		Debug:    v.GetBool(cfgKeyDebug),
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return settings{
		configDir: configDir,
		config:    cfg,
		interval:  v.GetDuration(cfgKeyHealthInterval),
	}, nil
}
