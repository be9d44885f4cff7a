package sqlite

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

// Every value table has the same two columns: ID, always 0 for the single
// row, and VALUE, whose declared type follows the kind of the first write.
const (
	idColumn    = "ID"
	valueColumn = "VALUE"
	rowID       = 0
)

// columnTypes maps a storable kind to the declared type of VALUE. The
// declarations are part of the on-disk format and must not change.
var columnTypes = map[types.ValueKind]string{
	types.KindInt:    "INT",
	types.KindDouble: "DECIMAL(10, 8)",
	types.KindLong:   "SIGNED BIGINT",
	types.KindText:   "TEXT",
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}

func createTableSQL(table string, kind types.ValueKind) (string, error) {
	col, ok := columnTypes[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s", types.ErrUnsupportedType, kind)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s(%s INT PRIMARY KEY, %s %s);",
		quoteIdent(table), idColumn, valueColumn, col), nil
}

func dropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", quoteIdent(table))
}

func insertSQL(table string) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, %s) VALUES (%d, ?);",
		quoteIdent(table), idColumn, valueColumn, rowID)
}

func replaceSQL(table string) string {
	return fmt.Sprintf("REPLACE INTO %s (%s, %s) VALUES (%d, ?);",
		quoteIdent(table), idColumn, valueColumn, rowID)
}

func existsSQL(table string) string {
	return fmt.Sprintf("SELECT %s FROM %s;", valueColumn, quoteIdent(table))
}

func selectSQL(table string) string {
	return fmt.Sprintf("SELECT * FROM %s;", quoteIdent(table))
}

// selectTypedSQL returns the value with its storage class and the declared
// type of the VALUE column.
func selectTypedSQL(table string) string {
	return fmt.Sprintf(
		"SELECT v.%[2]s, typeof(v.%[2]s), (SELECT type FROM pragma_table_info('%[1]s') WHERE upper(name) = '%[2]s') FROM %[3]s AS v;",
		table, valueColumn, quoteIdent(table))
}

// decodeTyped rebuilds a Value from a stored cell, its storage class, and
// the declared column type.
func decodeTyped(raw any, storage, declared string) (types.Value, bool) {
	declared = strings.ToUpper(declared)
	switch storage {
	case "integer":
		n, ok := raw.(int64)
		if !ok {
			return types.Null(), false
		}
		switch {
		case strings.Contains(declared, "BIGINT"):
			return types.Long(n), true
		case strings.HasPrefix(declared, "DECIMAL"):
			return types.Double(float64(n)), true
		default:
			return types.Int(int(n)), true
		}
	case "real":
		f, ok := raw.(float64)
		if !ok {
			return types.Null(), false
		}
		return types.Double(f), true
	case "text", "blob":
		switch s := raw.(type) {
		case string:
			return types.Text(s), true
		case []byte:
			return types.Text(string(s)), true
		}
	}
	return types.Null(), false
}
