package ddl

// ColumnDef is one column of a table to be created. Name and SQLType
// are rendered as-is, so callers quote the name and choose the type for
// their dialect first. Default, when set, is a raw SQL expression and
// is never escaped.
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef is an ordered column list under a table name. FQN may carry
// a schema qualifier ("schema.table") and is emitted verbatim.
// IfNotExists makes the rendered statement safe to re-apply against an
// existing table.
type TableDef struct {
	FQN         string
	Columns     []ColumnDef
	IfNotExists bool
}
