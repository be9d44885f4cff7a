// Package sqlite implements the configuration store: one embedded SQLite
// file holding a single-row table per configuration leaf.
//
// A Store owns the connection lifecycle for its file. In persistent mode
// the connection stays open until Close; in per-call mode every operation
// opens the connection, runs, and closes it again, releasing the file's
// claim in the process-wide lock registry on every exit path.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/sqlcfg/internal/locks"
	"github.com/mesh-intelligence/sqlcfg/internal/pathcodec"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// identityScheme prefixes the file name to form the lock registry key.
const identityScheme = "sqlite:"

// State is the lifecycle state of a Store.
type State int

// A per-call store stays in StateOpen between operations even though its
// connection is released after each one.
const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// WritePolicy selects how Write treats an existing value.
type WritePolicy int

const (
	// InsertOnly fails with types.ErrDuplicateValue if the path holds a value.
	InsertOnly WritePolicy = iota
	// Overwrite replaces any existing value.
	Overwrite
)

// Store is the connection owner for one configuration file.
type Store struct {
	mu       sync.Mutex
	config   types.Config
	identity string
	engine   Engine
	registry *locks.Registry
	logger   *slog.Logger

	conn    Conn
	claimed bool
	session string
	state   State
}

// Option configures a Store.
type Option func(*Store)

// WithEngine replaces the database/sql engine.
func WithEngine(e Engine) Option {
	return func(s *Store) { s.engine = e }
}

// WithRegistry replaces the process-wide lock registry.
func WithRegistry(r *locks.Registry) Option {
	return func(s *Store) { s.registry = r }
}

// WithLogger sets the logger for lifecycle and statement logs.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore validates config and returns an unopened Store.
func NewStore(config types.Config, opts ...Option) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Store{
		config:   config,
		identity: identityScheme + config.FileName,
		registry: locks.Default(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = NewSQLEngine(config.DriverName())
	}
	return s, nil
}

// FileName returns the path of the database file.
func (s *Store) FileName() string { return s.config.FileName }

// Identity returns the lock registry key for the file. Identities are
// compared verbatim, so "cfg.db" and "./cfg.db" are distinct.
func (s *Store) Identity() string { return s.identity }

// Persistent reports whether the connection is held across operations.
func (s *Store) Persistent() bool { return s.config.Persistent() }

// State returns the current lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open claims the file in the lock registry and connects to it. It is a
// no-op if a connection is already open. Returns types.ErrFileLocked if
// another store in this process holds the file.
func (s *Store) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLocked()
}

func (s *Store) openLocked() error {
	if s.conn != nil {
		return nil
	}
	if !s.registry.TryAcquire(s.identity) {
		return fmt.Errorf("%w: %s", types.ErrFileLocked, s.identity)
	}
	conn, err := s.engine.Open(s.config.FileName)
	if err != nil {
		s.registry.Release(s.identity)
		return err
	}
	s.conn = conn
	s.claimed = true
	s.session = uuid.NewString()
	s.state = StateOpen
	s.logger.Debug("configuration file opened", "file", s.identity, "session", s.session)
	return nil
}

// Close closes the connection and releases the file's registry claim.
// Close is idempotent and never releases a claim held by another store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	err := s.releaseLocked()
	s.state = StateClosed
	return err
}

// releaseLocked closes the connection and drops the registry claim without
// leaving StateOpen.
func (s *Store) releaseLocked() error {
	var err error
	if s.conn != nil {
		err = s.conn.Close()
		s.logger.Debug("configuration file closed", "file", s.identity, "session", s.session)
		s.conn = nil
		s.session = ""
	}
	if s.claimed {
		s.registry.Release(s.identity)
		s.claimed = false
	}
	return err
}

// begin makes sure a connection is open for one operation and returns the
// matching end function. In per-call mode end closes the connection; the
// caller must defer it so the claim is released on every path.
func (s *Store) begin() (func(), error) {
	if err := s.openLocked(); err != nil {
		return nil, err
	}
	if s.config.Persistent() {
		return func() {}, nil
	}
	return func() {
		if err := s.releaseLocked(); err != nil {
			s.logger.Warn("closing configuration file", "file", s.identity, "error", err)
		}
	}, nil
}

func (s *Store) exec(table, query string, args ...any) (int64, error) {
	s.trace(query)
	n, err := s.conn.Exec(query, args...)
	return n, withTable(err, table)
}

func (s *Store) query(table, query string, args ...any) (Rows, error) {
	s.trace(query)
	rows, err := s.conn.Query(query, args...)
	return rows, withTable(err, table)
}

func (s *Store) trace(query string) {
	if s.config.Debug {
		s.logger.Debug("statement", "session", s.session, "sql", query)
	}
}

// withTable attaches the table name to a storage error.
func withTable(err error, table string) error {
	if err == nil {
		return nil
	}
	var se *types.StorageError
	if errors.As(err, &se) {
		if se.Table == "" {
			se.Table = table
		}
		return se
	}
	return &types.StorageError{Op: "exec", Table: table, Err: err}
}

// queryFirst scans the first row of query into dest. It reports false when
// the result is empty.
func (s *Store) queryFirst(table, query string, dest ...any) (bool, error) {
	rows, err := s.query(table, query)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return false, withTable(rows.Err(), table)
	}
	if err := rows.Scan(dest...); err != nil {
		return false, &types.StorageError{Op: "scan", Table: table, Err: err}
	}
	return true, nil
}

func checkName(table string) error {
	if err := pathcodec.Validate(table); err != nil {
		return err
	}
	if pathcodec.Reserved(table) {
		return fmt.Errorf("%w: %q uses a reserved name", types.ErrInvalidPath, table)
	}
	return nil
}

// TableExists reports whether a value table exists for table. The probe
// succeeds for a table with zero rows. Any storage error, not only a
// missing table, is reported as false; callers cannot tell the two apart.
// Only structural errors (invalid name, locked file, failed open) are
// returned.
func (s *Store) TableExists(table string) (bool, error) {
	if err := checkName(table); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return false, err
	}
	defer end()

	rows, err := s.query(table, existsSQL(table))
	if err != nil {
		return false, nil
	}
	rows.Close()
	return true, nil
}

// DropTable removes the value table for table. Dropping an absent table is
// not an error.
func (s *Store) DropTable(table string) error {
	if err := checkName(table); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return err
	}
	defer end()

	_, err = s.exec(table, dropTableSQL(table))
	return err
}

// CreateValueTable creates the value table for table if it does not exist.
// kind must be one of int, long, double or string; any other kind returns
// types.ErrUnsupportedType.
func (s *Store) CreateValueTable(table string, kind types.ValueKind) error {
	if err := checkName(table); err != nil {
		return err
	}
	ddl, err := createTableSQL(table, kind)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return err
	}
	defer end()

	_, err = s.exec(table, ddl)
	return err
}

// Write stores v at table. A null value drops the table. Booleans are
// stored as 0 or 1 in an INT column. With InsertOnly an existing row
// returns types.ErrDuplicateValue; Overwrite upserts.
func (s *Store) Write(table string, v types.Value, policy WritePolicy) error {
	if err := checkName(table); err != nil {
		return err
	}
	if v.IsNull() {
		return s.DropTable(table)
	}
	kind, arg := v.Storage()
	ddl, err := createTableSQL(table, kind)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return err
	}
	defer end()

	if _, err := s.exec(table, ddl); err != nil {
		return err
	}

	switch policy {
	case InsertOnly:
		n, err := s.exec(table, insertSQL(table), arg)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", types.ErrDuplicateValue, pathcodec.Logical(table))
		}
		return nil
	case Overwrite:
		_, err := s.exec(table, replaceSQL(table), arg)
		return err
	default:
		return fmt.Errorf("unknown write policy %d", policy)
	}
}

// ReadString returns the string stored at table, or def.
func (s *Store) ReadString(table, def string) (string, error) {
	return readScalar(s, table, def)
}

// ReadInt returns the int stored at table, or def.
func (s *Store) ReadInt(table string, def int) (int, error) {
	return readScalar(s, table, def)
}

// ReadLong returns the int64 stored at table, or def.
func (s *Store) ReadLong(table string, def int64) (int64, error) {
	return readScalar(s, table, def)
}

// ReadDouble returns the float64 stored at table, or def.
func (s *Store) ReadDouble(table string, def float64) (float64, error) {
	return readScalar(s, table, def)
}

// readScalar returns the VALUE column of the first row of table. It
// returns def when the table is absent or empty, when the value is NULL or
// cannot be converted to T, and on any other storage error. Storage errors
// are logged at debug level and otherwise hidden; only structural errors
// are returned.
func readScalar[T any](s *Store, table string, def T) (T, error) {
	if err := checkName(table); err != nil {
		return def, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return def, err
	}
	defer end()

	var id any
	var v sql.Null[T]
	found, err := s.queryFirst(table, selectSQL(table), &id, &v)
	if err != nil {
		s.logger.Debug("read fell back to default", "table", table, "error", err)
		return def, nil
	}
	if !found || !v.Valid {
		return def, nil
	}
	return v.V, nil
}

// ReadValue returns the value stored at table with its kind recovered from
// the storage class and the declared column type. The boolean is false
// when no value is stored. Storage errors read as absent.
func (s *Store) ReadValue(table string) (types.Value, bool, error) {
	if err := checkName(table); err != nil {
		return types.Null(), false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return types.Null(), false, err
	}
	defer end()

	var raw any
	var storage string
	var declared sql.NullString
	found, err := s.queryFirst(table, selectTypedSQL(table), &raw, &storage, &declared)
	if err != nil {
		s.logger.Debug("typed read fell back to absent", "table", table, "error", err)
		return types.Null(), false, nil
	}
	if !found {
		return types.Null(), false, nil
	}
	v, ok := decodeTyped(raw, storage, declared.String)
	return v, ok, nil
}

// ChildKeys returns the keys below prefix, sorted. With deep false each key
// is the immediate child segment; with deep true it is the full physical
// remainder of every table under prefix. An empty prefix is the root.
// Tables whose names are not valid configuration names are ignored.
func (s *Store) ChildKeys(prefix string, deep bool) ([]string, error) {
	if prefix != "" {
		if err := pathcodec.Validate(prefix); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	end, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer end()

	names, err := s.conn.TableNames()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for _, name := range names {
		if pathcodec.Reserved(name) || pathcodec.Validate(name) != nil {
			continue
		}
		if key, ok := pathcodec.ChildKey(prefix, name, deep); ok {
			seen[key] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete closes the store and removes the database file. A failed removal,
// including a missing file, returns types.ErrFileDeletion.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.closeLocked(); err != nil {
		return err
	}
	if err := os.Remove(s.config.FileName); err != nil {
		return fmt.Errorf("%w: %w", types.ErrFileDeletion, err)
	}
	s.logger.Debug("configuration file deleted", "file", s.identity)
	return nil
}
