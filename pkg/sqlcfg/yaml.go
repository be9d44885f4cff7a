package sqlcfg

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/sqlcfg/internal/pathcodec"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// tree is an in-memory copy of a section used for export.
type tree struct {
	value    *types.Value
	children map[string]*tree
}

func newTree() *tree {
	return &tree{children: make(map[string]*tree)}
}

func (t *tree) insert(segments []string, v types.Value) {
	node := t
	for _, seg := range segments {
		child, ok := node.children[seg]
		if !ok {
			child = newTree()
			node.children[seg] = child
		}
		node = child
	}
	node.value = &v
}

func (t *tree) sortedKeys() []string {
	keys := make([]string, 0, len(t.children))
	for k := range t.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mapping renders t as a YAML mapping. A child that holds a value and also
// has children of its own is written as a scalar followed by its
// descendants as dotted sibling keys.
func (t *tree) mapping() *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range t.sortedKeys() {
		child := t.children[k]
		switch {
		case len(child.children) == 0:
			m.Content = append(m.Content, keyNode(k), scalarNode(*child.value))
		case child.value == nil:
			m.Content = append(m.Content, keyNode(k), child.mapping())
		default:
			m.Content = append(m.Content, keyNode(k), scalarNode(*child.value))
			child.flatten(k, m)
		}
	}
	return m
}

func (t *tree) flatten(prefix string, m *yaml.Node) {
	for _, k := range t.sortedKeys() {
		child := t.children[k]
		path := prefix + pathcodec.Separator + k
		if child.value != nil {
			m.Content = append(m.Content, keyNode(path), scalarNode(*child.value))
		}
		child.flatten(path, m)
	}
}

func keyNode(k string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
}

func scalarNode(v types.Value) *yaml.Node {
	tag := "!!str"
	switch v.Kind() {
	case types.KindInt, types.KindLong:
		tag = "!!int"
	case types.KindDouble:
		tag = "!!float"
	case types.KindBool:
		tag = "!!bool"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String()}
}

// ExportYAML writes every value below this section to w as nested YAML.
// Booleans are exported as the integers they are stored as.
func (s *Section) ExportYAML(w io.Writer) error {
	keys, err := s.file.store.ChildKeys(s.prefix, true)
	if err != nil {
		return err
	}

	root := newTree()
	for _, key := range keys {
		name := key
		if s.prefix != "" {
			name = s.prefix + pathcodec.Delimiter + key
		}
		v, ok, err := s.file.store.ReadValue(name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		root.insert(pathcodec.Segments(key), v)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root.mapping()}}
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a YAML mapping from r and writes every scalar below this
// section. Nested mappings and dotted keys both extend the path. With
// overwrite false an existing value fails the import with
// types.ErrDuplicateValue. A null clears its path. Sequences return
// types.ErrUnsupportedType. Values written before a failure are kept.
// It returns the number of paths written.
func (s *Section) ImportYAML(r io.Reader, overwrite bool) (int, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return 0, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return 0, fmt.Errorf("%w: top-level yaml must be a mapping", types.ErrUnsupportedType)
	}
	return s.importMapping("", root, overwrite)
}

func (s *Section) importMapping(prefix string, m *yaml.Node, overwrite bool) (int, error) {
	written := 0
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		path := key.Value
		if prefix != "" {
			path = prefix + pathcodec.Separator + key.Value
		}
		if val.Kind == yaml.AliasNode {
			val = val.Alias
		}

		switch val.Kind {
		case yaml.MappingNode:
			n, err := s.importMapping(path, val, overwrite)
			written += n
			if err != nil {
				return written, err
			}
		case yaml.ScalarNode:
			v, err := scalarValue(val)
			if err != nil {
				return written, fmt.Errorf("import %s: %w", path, err)
			}
			if overwrite || v.IsNull() {
				err = s.Replace(path, v)
			} else {
				err = s.Set(path, v)
			}
			if err != nil {
				return written, fmt.Errorf("import %s: %w", path, err)
			}
			written++
		default:
			return written, fmt.Errorf("import %s: %w: sequences are not supported", path, types.ErrUnsupportedType)
		}
	}
	return written, nil
}

func scalarValue(n *yaml.Node) (types.Value, error) {
	var x any
	if err := n.Decode(&x); err != nil {
		return types.Null(), fmt.Errorf("decode scalar: %w", err)
	}
	switch v := x.(type) {
	case time.Time:
		return types.Text(strings.TrimSpace(n.Value)), nil
	default:
		return types.ValueOf(v)
	}
}
