package ddl

import (
	"katalog/internal/tableschema"
)

// TypeFor maps a schema column kind to a backend SQL type.
type TypeFor func(tableschema.Kind) string

// FromColumns builds a TableDef from an ordered document-schema column list.
// A column is NOT NULL when the schema marks it required, and primaryKey
// becomes the table primary key when it names an existing column. A primary
// key naming no column yields a table without a PRIMARY KEY clause rather
// than an error.
//
// Identifiers are carried over unquoted; backends quote them before
// rendering.
func FromColumns(fqn, primaryKey string, cols []tableschema.Column, typeFor TypeFor) TableDef {
	td := TableDef{
		FQN:         fqn,
		Columns:     make([]ColumnDef, 0, len(cols)),
		IfNotExists: true,
	}
	pkValid := false
	for _, col := range cols {
		if primaryKey != "" && col.Name == primaryKey {
			pkValid = true
		}
	}
	for _, col := range cols {
		td.Columns = append(td.Columns, ColumnDef{
			Name:       col.Name,
			SQLType:    typeFor(col.Kind),
			Nullable:   !col.Required,
			PrimaryKey: pkValid && col.Name == primaryKey,
		})
	}
	return td
}
