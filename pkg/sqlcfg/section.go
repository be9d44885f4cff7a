package sqlcfg

import (
	"fmt"

	"github.com/mesh-intelligence/sqlcfg/internal/pathcodec"
	"github.com/mesh-intelligence/sqlcfg/internal/sqlite"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// Section is a view of a File scoped to a path prefix. Sections hold no
// connection state; creating one never touches storage.
type Section struct {
	file   *File
	prefix string // physical name; empty for the root
}

// resolve composes the section prefix with a dotted path.
func (s *Section) resolve(path string) (string, error) {
	return pathcodec.ToPhysical(s.prefix, path)
}

// Root returns the File this section belongs to.
func (s *Section) Root() *File { return s.file }

// CurrentPath returns the dotted path of the section from the root, or ""
// for the root itself.
func (s *Section) CurrentPath() string { return pathcodec.Logical(s.prefix) }

// Name returns the last segment of the section path, or "" for the root.
func (s *Section) Name() string {
	if s.prefix == "" {
		return ""
	}
	return pathcodec.LeafName(s.prefix)
}

// Parent returns the section one segment up. The root has no parent and
// returns nil.
func (s *Section) Parent() *Section {
	if s.prefix == "" {
		return nil
	}
	parent, _ := pathcodec.Parent(s.prefix)
	return &Section{file: s.file, prefix: parent}
}

// Sub returns the section at path below s. It does not check that anything
// is stored there.
func (s *Section) Sub(path string) (*Section, error) {
	name, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return &Section{file: s.file, prefix: name}, nil
}

// Keys returns the keys below this section in dotted notation, sorted.
// With deep false only the immediate child segments are returned. With deep
// true every stored path below the section is returned relative to it;
// intermediate sections that hold no value of their own are not listed.
func (s *Section) Keys(deep bool) ([]string, error) {
	keys, err := s.file.store.ChildKeys(s.prefix, deep)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = pathcodec.Logical(k)
	}
	return keys, nil
}

// Contains reports whether a value is stored at path. It returns false,
// not an error, when the engine fails to read the path for any reason.
func (s *Section) Contains(path string) (bool, error) {
	name, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	return s.file.store.TableExists(name)
}

// Set stores value at path and fails with types.ErrDuplicateValue if a
// value is already there. value may be an int, int64, float64, string,
// bool, types.Value, or nil; nil clears the path. Other types return
// types.ErrUnsupportedType.
func (s *Section) Set(path string, value any) error {
	return s.write(path, value, sqlite.InsertOnly)
}

// Replace stores value at path, overwriting any existing value.
func (s *Section) Replace(path string, value any) error {
	return s.write(path, value, sqlite.Overwrite)
}

// Unset clears path. Clearing an absent path is not an error.
func (s *Section) Unset(path string) error {
	return s.write(path, nil, sqlite.Overwrite)
}

func (s *Section) write(path string, value any, policy sqlite.WritePolicy) error {
	name, err := s.resolve(path)
	if err != nil {
		return err
	}
	v, err := types.ValueOf(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", pathcodec.Logical(name), err)
	}
	return s.file.store.Write(name, v, policy)
}

// Get returns the value at path with its stored kind. Booleans read back
// as ints. The boolean is false when nothing is stored.
func (s *Section) Get(path string) (types.Value, bool, error) {
	name, err := s.resolve(path)
	if err != nil {
		return types.Null(), false, err
	}
	return s.file.store.ReadValue(name)
}

// GetString returns the string at path, or "".
func (s *Section) GetString(path string) (string, error) {
	return s.GetStringOr(path, "")
}

// GetStringOr returns the string at path, or def.
func (s *Section) GetStringOr(path, def string) (string, error) {
	name, err := s.resolve(path)
	if err != nil {
		return def, err
	}
	return s.file.store.ReadString(name, def)
}

// GetInt returns the int at path, or 0.
func (s *Section) GetInt(path string) (int, error) {
	return s.GetIntOr(path, 0)
}

// GetIntOr returns the int at path, or def.
func (s *Section) GetIntOr(path string, def int) (int, error) {
	name, err := s.resolve(path)
	if err != nil {
		return def, err
	}
	return s.file.store.ReadInt(name, def)
}

// GetLong returns the int64 at path, or 0.
func (s *Section) GetLong(path string) (int64, error) {
	return s.GetLongOr(path, 0)
}

// GetLongOr returns the int64 at path, or def.
func (s *Section) GetLongOr(path string, def int64) (int64, error) {
	name, err := s.resolve(path)
	if err != nil {
		return def, err
	}
	return s.file.store.ReadLong(name, def)
}

// GetDouble returns the float64 at path, or 0.
func (s *Section) GetDouble(path string) (float64, error) {
	return s.GetDoubleOr(path, 0)
}

// GetDoubleOr returns the float64 at path, or def.
func (s *Section) GetDoubleOr(path string, def float64) (float64, error) {
	name, err := s.resolve(path)
	if err != nil {
		return def, err
	}
	return s.file.store.ReadDouble(name, def)
}

// GetBool returns the boolean at path, or false.
func (s *Section) GetBool(path string) (bool, error) {
	return s.GetBoolOr(path, false)
}

// GetBoolOr returns the boolean at path, or def. Booleans are stored as
// integers; any non-zero integer reads as true.
func (s *Section) GetBoolOr(path string, def bool) (bool, error) {
	name, err := s.resolve(path)
	if err != nil {
		return def, err
	}
	defInt := 0
	if def {
		defInt = 1
	}
	n, err := s.file.store.ReadInt(name, defInt)
	if err != nil {
		return def, err
	}
	return n != 0, nil
}
