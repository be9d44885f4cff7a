package sqlcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

func openTestFile(t *testing.T, mode types.Mode) *File {
	t.Helper()
	f, err := Open(types.Config{
		FileName: filepath.Join(t.TempDir(), "cfg.db"),
		Mode:     mode,
	})
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestEndToEnd(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.db")

	f, err := Open(types.Config{FileName: file})
	require.NoError(t, err)

	require.NoError(t, f.Set("server.port", 25565))

	port, err := f.GetInt("server.port")
	require.NoError(t, err)
	assert.Equal(t, 25565, port)

	server, err := f.Sub("server")
	require.NoError(t, err)
	port, err = server.GetInt("port")
	require.NoError(t, err)
	assert.Equal(t, 25565, port)

	_, err = os.Stat(file)
	require.NoError(t, err)

	require.NoError(t, f.Delete())
	_, err = os.Stat(file)
	assert.True(t, os.IsNotExist(err), "Delete should remove the file")
}

func TestOpen_Modes(t *testing.T) {
	f := openTestFile(t, types.ModePersistent)
	assert.True(t, f.Persistent())
	assert.Equal(t, "open", f.State(), "persistent mode opens eagerly")

	g := openTestFile(t, types.ModePerCall)
	assert.False(t, g.Persistent())
	assert.Equal(t, "unopened", g.State())

	require.NoError(t, g.Set("a", 1))
	assert.Equal(t, "open", g.State(), "per-call mode stays open between operations")
	require.NoError(t, g.Close())
	assert.Equal(t, "closed", g.State())
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(types.Config{})
	assert.ErrorIs(t, err, types.ErrFileNameEmpty)
}

func TestOpen_SameFileTwice(t *testing.T) {
	file := filepath.Join(t.TempDir(), "cfg.db")

	first, err := Open(types.Config{FileName: file})
	require.NoError(t, err)

	_, err = Open(types.Config{FileName: file})
	assert.ErrorIs(t, err, types.ErrFileLocked)

	require.NoError(t, first.Close())

	second, err := Open(types.Config{FileName: file})
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestFile_CloseAndReopen(t *testing.T) {
	f := openTestFile(t, types.ModePersistent)
	require.NoError(t, f.Replace("motd", "hello"))

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	assert.Equal(t, "closed", f.State())

	require.NoError(t, f.Reopen())
	got, err := f.GetString("motd")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	// An operation after Close reopens implicitly.
	require.NoError(t, f.Close())
	got, err = f.GetString("motd")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "open", f.State())
}

func TestFile_DeleteMissingFile(t *testing.T) {
	f := openTestFile(t, types.ModePerCall)
	assert.ErrorIs(t, f.Delete(), types.ErrFileDeletion)
}
