package types

import "errors"

// Config holds the parameters for opening a configuration file.
type Config struct {
	// Driver is the database/sql driver name. Empty selects DriverSQLite.
	Driver string `json:"driver" yaml:"driver"`
	// FileName is the path of the embedded database file.
	FileName string `json:"file" yaml:"file"`
	// Mode selects the connection lifecycle. Empty selects ModePersistent.
	Mode Mode `json:"mode" yaml:"mode"`
	// Debug logs every statement at debug level.
	Debug bool `json:"debug" yaml:"debug"`
}

// Supported driver names.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// Mode selects how long a store holds its connection.
type Mode string

const (
	// ModePersistent keeps the connection open across operations until
	// the store is closed.
	ModePersistent Mode = "persistent"
	// ModePerCall opens the connection at the start of every operation and
	// closes it at the end, shrinking the window in which the file is held.
	ModePerCall Mode = "per_call"
)

// Config validation errors.
var (
	ErrFileNameEmpty = errors.New("file name must not be empty")
	ErrDriverUnknown = errors.New("unknown driver")
	ErrModeUnknown   = errors.New("unknown connection mode")
)

var knownDrivers = map[string]bool{
	DriverSQLite:  true,
	DriverSQLite3: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.FileName == "" {
		return ErrFileNameEmpty
	}
	if !knownDrivers[c.DriverName()] {
		return ErrDriverUnknown
	}
	switch c.Mode {
	case "", ModePersistent, ModePerCall:
		return nil
	default:
		return ErrModeUnknown
	}
}

// DriverName returns the configured driver, or DriverSQLite when unset.
func (c Config) DriverName() string {
	if c.Driver == "" {
		return DriverSQLite
	}
	return c.Driver
}

// Persistent reports whether the connection is held across operations.
func (c Config) Persistent() bool {
	return c.Mode != ModePerCall
}

// ParseMode converts a configuration string into a Mode. Both "per_call"
// and "per-call" are accepted.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(ModePersistent):
		return ModePersistent, nil
	case string(ModePerCall), "per-call":
		return ModePerCall, nil
	default:
		return "", ErrModeUnknown
	}
}
