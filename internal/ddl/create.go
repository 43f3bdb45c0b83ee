// Package ddl models the CREATE TABLE statements the record sinks issue
// before their first write. The model is dialect-neutral on purpose:
// identifiers pass through unquoted and Default is a raw SQL expression,
// so each sink quotes names and picks SQL types for its dialect before
// rendering.
package ddl

import (
	"errors"
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders t as:
//
//	CREATE TABLE [IF NOT EXISTS] <FQN> (
//	  <name> <type> [NOT NULL] [DEFAULT <expr>],
//	  ...,
//	  [PRIMARY KEY (<cols>)]
//	);
//
// Names and types are trimmed and emitted verbatim; NOT NULL appears for
// columns that are not Nullable. The table needs at least one column, and
// every column needs both a name and a SQL type.
func BuildCreateTableSQL(t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", errors.New("ddl: empty table name")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: table %s has no columns", fqn)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if t.IfNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(fqn)
	b.WriteString(" (")

	var pk []string
	for i, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: table %s: column %d has no name", fqn, i)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: table %s: column %s has no SQL type", fqn, name)
		}

		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString("\n  ")
		b.WriteString(name)
		b.WriteByte(' ')
		b.WriteString(typ)
		if !c.Nullable {
			b.WriteString(" NOT NULL")
		}
		if expr := strings.TrimSpace(c.Default); expr != "" {
			b.WriteString(" DEFAULT ")
			b.WriteString(expr)
		}

		if c.PrimaryKey {
			pk = append(pk, name)
		}
	}

	if len(pk) > 0 {
		b.WriteString(",\n  PRIMARY KEY (")
		b.WriteString(strings.Join(pk, ", "))
		b.WriteByte(')')
	}
	b.WriteString("\n);")

	return b.String(), nil
}
