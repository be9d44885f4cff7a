// Package sqlcfg provides a hierarchical, YAML-style configuration API whose
// values live in an embedded SQLite file.
//
// Paths are dotted ("server.port"). Every scalar leaf is stored in its own
// single-row table named after the sanitized path ("server_port"). A
// Section is a cheap view scoped to a path prefix; a File owns the
// underlying connection.
//
// Example:
//
//	f, err := sqlcfg.Open(types.Config{FileName: "cfg.db"})
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//	if err := f.Replace("server.port", 25565); err != nil {
//	    return err
//	}
//	port, err := f.GetInt("server.port")
//
// Reads never fail because a value is missing or unreadable: they return
// the supplied default instead, and they also return it when the engine
// reports any other read error. Use Contains to test for presence.
//
// Operations on one File are serialized. Two Files on the same file name
// cannot be open at once in persistent mode; the second Open fails with
// types.ErrFileLocked. Other processes are not detected.
package sqlcfg

import (
	"log/slog"

	"github.com/mesh-intelligence/sqlcfg/internal/sqlite"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// File is an open configuration file. Its embedded Section is the root.
type File struct {
	*Section
	store *sqlite.Store
}

// Option configures Open.
type Option func(*[]sqlite.Option)

// WithLogger sets the logger for lifecycle and statement logs.
func WithLogger(l *slog.Logger) Option {
	return func(opts *[]sqlite.Option) {
		*opts = append(*opts, sqlite.WithLogger(l))
	}
}

// Open returns a File for config.FileName. In persistent mode the
// connection is opened immediately and held until Close; it fails with
// types.ErrFileLocked if another File in this process holds the same file
// name. In per-call mode nothing is opened until the first operation.
func Open(config types.Config, opts ...Option) (*File, error) {
	var storeOpts []sqlite.Option
	for _, opt := range opts {
		opt(&storeOpts)
	}
	store, err := sqlite.NewStore(config, storeOpts...)
	if err != nil {
		return nil, err
	}
	if store.Persistent() {
		if err := store.Open(); err != nil {
			return nil, err
		}
	}
	f := &File{store: store}
	f.Section = &Section{file: f}
	return f, nil
}

// FileName returns the path of the database file.
func (f *File) FileName() string { return f.store.FileName() }

// Persistent reports whether the connection is held across operations.
func (f *File) Persistent() bool { return f.store.Persistent() }

// State returns the connection lifecycle state: "unopened", "open" or
// "closed".
func (f *File) State() string { return f.store.State().String() }

// Reopen opens the connection again after Close. It is a no-op while the
// connection is open.
func (f *File) Reopen() error { return f.store.Open() }

// Close closes the connection and releases the file. Close is idempotent.
// A later operation reopens the connection.
func (f *File) Close() error { return f.store.Close() }

// Delete closes the file and removes it from disk. It returns an error
// wrapping types.ErrFileDeletion if the file cannot be removed.
func (f *File) Delete() error { return f.store.Delete() }
