// Package pathcodec maps dotted configuration paths to the flat table names
// used for storage, and back.
//
// A logical path such as "server.port" is a sequence of segments separated
// by '.'. Its physical name joins the sanitized segments with '_'
// ("server_port"). Sanitization removes '-' from each segment. A segment
// that is empty after sanitization, or that contains '_' or any other
// character outside [A-Za-z0-9], is rejected so that two distinct logical
// paths never share a physical name.
package pathcodec

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// Separator splits segments in a logical path.
const Separator = "."

// Delimiter joins segments in a physical name.
const Delimiter = "_"

// reservedPrefix is claimed by the engine for its own tables.
const reservedPrefix = "sqlite_"

// Sanitize converts a logical path fragment into its physical form.
// The fragment may span several segments ("server.port").
func Sanitize(path string) (string, error) {
	segments := strings.Split(path, Separator)
	for i, seg := range segments {
		s, err := sanitizeSegment(seg)
		if err != nil {
			return "", fmt.Errorf("%w: %q", err, path)
		}
		segments[i] = s
	}
	return strings.Join(segments, Delimiter), nil
}

func sanitizeSegment(seg string) (string, error) {
	seg = strings.ReplaceAll(seg, "-", "")
	if seg == "" {
		return "", fmt.Errorf("%w: empty segment", types.ErrInvalidPath)
	}
	for _, r := range seg {
		if !isAlnum(r) {
			return "", fmt.Errorf("%w: character %q", types.ErrInvalidPath, r)
		}
	}
	return seg, nil
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ToPhysical composes a physical prefix with a logical suffix. The prefix is
// an already-physical name (as held by a section) or empty for the root.
func ToPhysical(prefix, suffix string) (string, error) {
	tail, err := Sanitize(suffix)
	if err != nil {
		return "", err
	}
	name := tail
	if prefix != "" {
		if err := Validate(prefix); err != nil {
			return "", err
		}
		name = prefix + Delimiter + tail
	}
	if Reserved(name) {
		return "", fmt.Errorf("%w: %q uses a reserved name", types.ErrInvalidPath, name)
	}
	return name, nil
}

// Reserved reports whether name falls in the engine's internal namespace.
func Reserved(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), reservedPrefix)
}

// Validate checks that name is a well-formed physical name: non-empty
// alphanumeric segments joined by the delimiter.
func Validate(name string) error {
	for _, seg := range strings.Split(name, Delimiter) {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", types.ErrInvalidPath, name)
		}
		for _, r := range seg {
			if !isAlnum(r) {
				return fmt.Errorf("%w: character %q in %q", types.ErrInvalidPath, r, name)
			}
		}
	}
	return nil
}

// Parent returns name with its last segment removed. The boolean is false
// when name has a single segment and therefore no parent.
func Parent(name string) (string, bool) {
	i := strings.LastIndex(name, Delimiter)
	if i < 0 {
		return "", false
	}
	return name[:i], true
}

// LeafName returns the last segment of name.
func LeafName(name string) string {
	return name[strings.LastIndex(name, Delimiter)+1:]
}

// Segments splits a physical name into its segments.
func Segments(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, Delimiter)
}

// Logical renders a physical name in dotted notation.
func Logical(name string) string {
	return strings.ReplaceAll(name, Delimiter, Separator)
}

// ChildKey reports whether table lies strictly below prefix and returns the
// remainder. With deep false the remainder is cut to the first segment.
// An empty prefix matches every table.
func ChildKey(prefix, table string, deep bool) (string, bool) {
	rest := table
	if prefix != "" {
		if !strings.HasPrefix(table, prefix+Delimiter) {
			return "", false
		}
		rest = table[len(prefix)+len(Delimiter):]
	}
	if rest == "" {
		return "", false
	}
	if !deep {
		if i := strings.Index(rest, Delimiter); i >= 0 {
			rest = rest[:i]
		}
	}
	return rest, true
}
