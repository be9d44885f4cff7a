package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// testEnv is an isolated config directory and database file.
type testEnv struct {
	t         *testing.T
	ConfigDir string
	File      string
}

// result holds the output of one command run.
type result struct {
	Stdout string
	Stderr string
	Err    error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	for _, key := range []string{"SQLCFG_FILE", "SQLCFG_DRIVER", "SQLCFG_MODE", "SQLCFG_DEBUG", "SQLCFG_HEALTH_INTERVAL"} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	return &testEnv{
		t:         t,
		ConfigDir: filepath.Join(dir, "config"),
		File:      filepath.Join(dir, "cfg.db"),
	}
}

// run executes the CLI in-process against the environment.
func (e *testEnv) run(args ...string) result {
	return e.runContext(context.Background(), "", args...)
}

func (e *testEnv) runContext(ctx context.Context, stdin string, args ...string) result {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(append([]string{"--config-dir", e.ConfigDir, "--file", e.File}, args...))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(ctx)
	return result{Stdout: stdout.String(), Stderr: stderr.String(), Err: err}
}

func (e *testEnv) mustRun(args ...string) result {
	e.t.Helper()
	r := e.run(args...)
	require.NoError(e.t, r.Err, "sqlcfg %s\nstderr: %s", strings.Join(args, " "), r.Stderr)
	return r
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun("version")
	assert.Contains(t, r.Stdout, "sqlcfg v")
	assert.Contains(t, r.Stdout, modulePath)

	r = env.mustRun("--json", "version")
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, modulePath, out["module"])
}

func TestInit(t *testing.T) {
	env := newTestEnv(t)

	r := env.mustRun("init")
	assert.Contains(t, r.Stdout, "Initialized")

	_, err := os.Stat(env.File)
	require.NoError(t, err, "database file created")

	data, err := os.ReadFile(filepath.Join(env.ConfigDir, configFileExt))
	require.NoError(t, err)
	var cfg configFile
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, env.File, cfg.File)
	assert.Equal(t, types.DriverSQLite, cfg.Driver)
	assert.Equal(t, string(types.ModePersistent), cfg.Mode)

	// Later commands find the file through config.yaml.
	env.mustRun("set", "a", "1")
	var stdout bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"--config-dir", env.ConfigDir, "get", "a"})
	cmd.SetOut(&stdout)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1\n", stdout.String())

	// init is idempotent.
	env.mustRun("init")
}

func TestSetGet(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "server.port", "25565")
	env.mustRun("set", "server.motd", "hello world")
	env.mustRun("set", "server.ratio", "0.5")
	env.mustRun("set", "server.online-mode", "true")
	env.mustRun("set", "world.seed", "--", "-4172144997902289642")

	assert.Equal(t, "25565\n", env.mustRun("get", "server.port").Stdout)
	assert.Equal(t, "hello world\n", env.mustRun("get", "server.motd").Stdout)
	assert.Equal(t, "0.5\n", env.mustRun("get", "server.ratio").Stdout)
	assert.Equal(t, "1\n", env.mustRun("get", "server.onlinemode").Stdout)
	assert.Equal(t, "true\n", env.mustRun("get", "server.onlinemode", "--type", "bool").Stdout)
	assert.Equal(t, "-4172144997902289642\n", env.mustRun("get", "world.seed").Stdout)

	r := env.mustRun("--json", "get", "world.seed")
	var out valueOutput
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, "world.seed", out.Path)
	assert.Equal(t, "long", out.Type)

	r = env.run("get", "missing")
	assert.ErrorIs(t, r.Err, errNoValue)
	assert.Equal(t, exitUserError, exitCode(r.Err))

	r = env.run("get", "missing", "--type", "int")
	assert.ErrorIs(t, r.Err, errNoValue)
}

func TestSetDuplicateAndReplace(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "level", "world")
	r := env.run("set", "level", "nether")
	assert.ErrorIs(t, r.Err, types.ErrDuplicateValue)
	assert.Equal(t, exitUserError, exitCode(r.Err))

	env.mustRun("replace", "level", "nether")
	assert.Equal(t, "nether\n", env.mustRun("get", "level").Stdout)

	env.mustRun("unset", "level")
	r = env.run("get", "level")
	assert.ErrorIs(t, r.Err, errNoValue)
}

func TestSetNegativeValues(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "spawn.y", "--", "-64")
	env.mustRun("set", "spawn.x", "--type", "long", "--", "-7")
	env.mustRun("set", "world.seed", "--", "-4172144997902289642")
	env.mustRun("replace", "ratio", "--type", "double", "--", "-0.5")
	env.mustRun("set", "level", "3", "--type", "long")

	assert.Equal(t, "-64\n", env.mustRun("get", "spawn.y").Stdout)
	assert.Equal(t, "-4172144997902289642\n", env.mustRun("get", "world.seed").Stdout)
	assert.Equal(t, "-0.5\n", env.mustRun("get", "ratio").Stdout)

	r := env.mustRun("--json", "get", "spawn.x")
	var out valueOutput
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, "long", out.Type)
	assert.Equal(t, float64(-7), out.Value)

	r = env.mustRun("--json", "get", "level")
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, "long", out.Type)

	// Without -- the value parses as a shorthand flag.
	r = env.run("set", "spawn.z", "-64")
	require.Error(t, r.Err)
	assert.Contains(t, r.Err.Error(), "put -- before a negative value")
	assert.Equal(t, exitUserError, exitCode(r.Err))
}

func TestSetTyped(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "version", "1.20", "--type", "string")
	r := env.mustRun("--json", "get", "version")
	var out valueOutput
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &out))
	assert.Equal(t, "string", out.Type)
	assert.Equal(t, "1.20", out.Value)

	r = env.run("set", "port", "abc", "--type", "int")
	assert.Error(t, r.Err)

	r = env.run("set", "port", "1", "--type", "list")
	assert.ErrorIs(t, r.Err, types.ErrUnsupportedType)

	r = env.run("set", "bad_path", "1")
	assert.ErrorIs(t, r.Err, types.ErrInvalidPath)
}

func TestKeys(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "a.b", "1")
	env.mustRun("set", "a.c", "2")
	env.mustRun("set", "a.b.d", "3")

	assert.Equal(t, "a\n", env.mustRun("keys").Stdout)
	assert.Equal(t, "b\nc\n", env.mustRun("keys", "a").Stdout)
	assert.Equal(t, "b\nb.d\nc\n", env.mustRun("keys", "a", "--deep").Stdout)

	r := env.mustRun("--json", "keys", "a", "--deep")
	var keys []string
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), &keys))
	assert.Equal(t, []string{"b", "b.d", "c"}, keys)

	r = env.mustRun("--json", "keys", "empty")
	assert.Equal(t, "[]\n", r.Stdout)
}

func TestExportImport(t *testing.T) {
	env := newTestEnv(t)

	env.mustRun("set", "server.port", "25565")
	env.mustRun("set", "server.motd", "hi")

	r := env.mustRun("export")
	assert.Equal(t, "server:\n  motd: hi\n  port: 25565\n", r.Stdout)

	r = env.mustRun("export", "server")
	assert.Equal(t, "motd: hi\nport: 25565\n", r.Stdout)

	out := filepath.Join(t.TempDir(), "dump.yaml")
	env.mustRun("export", "--output", out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)

	other := newTestEnv(t)
	r = other.runContext(context.Background(), string(data), "import", "-")
	require.NoError(t, r.Err)
	assert.Equal(t, "Imported 2 values\n", r.Stdout)
	assert.Equal(t, "25565\n", other.mustRun("get", "server.port").Stdout)

	r = other.run("import", out)
	assert.ErrorIs(t, r.Err, types.ErrDuplicateValue)

	other.mustRun("import", out, "--replace")
	other.mustRun("import", out, "--into", "backup")
	assert.Equal(t, "hi\n", other.mustRun("get", "backup.server.motd").Stdout)

	r = other.run("import", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, r.Err)
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	env.mustRun("set", "a", "1")

	r := env.run("delete")
	assert.ErrorIs(t, r.Err, errForceRequired)
	_, err := os.Stat(env.File)
	require.NoError(t, err)

	r = env.mustRun("delete", "--force")
	assert.Contains(t, r.Stdout, env.File)
	_, err = os.Stat(env.File)
	assert.True(t, os.IsNotExist(err))

	// The file is gone; per-call mode opens nothing before Delete.
	r = env.run("--mode", "per_call", "delete", "--force")
	assert.ErrorIs(t, r.Err, types.ErrFileDeletion)
	assert.Equal(t, exitSysError, exitCode(r.Err))
}

func TestMonitor(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	r := env.runContext(ctx, "", "monitor", "--interval", "20ms")
	require.NoError(t, r.Err)
	lines := strings.Split(strings.TrimSpace(r.Stdout), "\n")
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[0], "locked=")
	assert.Contains(t, lines[0], "sqlite:"+env.File)

	// The file is released when monitor returns.
	env.mustRun("set", "after", "1")
}

func TestMonitor_JSON(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := env.runContext(ctx, "", "--json", "monitor", "--interval", "1h")
	require.NoError(t, r.Err)

	var report reportOutput
	require.NoError(t, json.NewDecoder(strings.NewReader(r.Stdout)).Decode(&report))
	assert.NotEmpty(t, report.ID)
	assert.Contains(t, report.Files, "sqlite:"+env.File)
}

func TestSettings_Precedence(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.MkdirAll(env.ConfigDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.ConfigDir, configFileExt),
		[]byte("mode: per_call\ndriver: sqlite\nhealth_interval: 5s\n"), 0o644))

	a := &app{flags: rootFlags{configDir: env.ConfigDir, file: env.File}}
	s, err := a.settings()
	require.NoError(t, err)
	assert.Equal(t, types.ModePerCall, s.config.Mode)
	assert.Equal(t, 5*time.Second, s.interval)
	assert.Equal(t, env.File, s.config.FileName)

	t.Setenv("SQLCFG_MODE", "persistent")
	s, err = a.settings()
	require.NoError(t, err)
	assert.Equal(t, types.ModePersistent, s.config.Mode, "env overrides config.yaml")

	a.flags.mode = "per-call"
	s, err = a.settings()
	require.NoError(t, err)
	assert.Equal(t, types.ModePerCall, s.config.Mode, "flag overrides env")

	a.flags.mode = "bogus"
	_, err = a.settings()
	assert.ErrorIs(t, err, types.ErrModeUnknown)

	a.flags.mode = ""
	a.flags.driver = "postgres"
	_, err = a.settings()
	assert.ErrorIs(t, err, types.ErrDriverUnknown)
}

func TestSettings_WritesDefaultConfig(t *testing.T) {
	env := newTestEnv(t)

	a := &app{flags: rootFlags{configDir: env.ConfigDir}}
	s, err := a.settings()
	require.NoError(t, err)
	assert.Equal(t, types.DriverSQLite, s.config.Driver)
	assert.Equal(t, 2*time.Second, s.interval)

	data, err := os.ReadFile(filepath.Join(env.ConfigDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(data))
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		kind string
		want types.Value
	}{
		{"42", kindAuto, types.Int(42)},
		{"-2147483648", kindAuto, types.Int(-2147483648)},
		{"2147483648", kindAuto, types.Long(2147483648)},
		{"0.25", kindAuto, types.Double(0.25)},
		{"true", kindAuto, types.Bool(true)},
		{"false", kindAuto, types.Bool(false)},
		{"Inf", kindAuto, types.Text("Inf")},
		{"hello", kindAuto, types.Text("hello")},
		{"42", "long", types.Long(42)},
		{"42", "string", types.Text("42")},
		{"1", "bool", types.Bool(true)},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.kind, tt.in), func(t *testing.T) {
			got, err := parseValue(tt.in, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"invalid path", fmt.Errorf("x: %w", types.ErrInvalidPath), exitUserError},
		{"locked", types.ErrFileLocked, exitUserError},
		{"storage", &types.StorageError{Op: "exec", Err: errors.New("disk I/O error")}, exitSysError},
		{"deletion", types.ErrFileDeletion, exitSysError},
		{"system", systemError("create config dir: %w", os.ErrPermission), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
