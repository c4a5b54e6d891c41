package schema

// Kind names the four kinds of schema object the navigator indexes
type Kind string

const (
	KindTable     Kind = "table"
	KindColumn    Kind = "column"
	KindProcedure Kind = "procedure"
	KindTrigger   Kind = "trigger"
)

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindTable, KindColumn, KindProcedure, KindTrigger:
		return true
	default:
		return false
	}
}

// Column is a single table column in declaration order
type Column struct {
	Table      string `json:"table_name"`
	Name       string `json:"name"`
	DataType   string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// Table is a base table with its ordered columns
type Table struct {
	Schema  string   `json:"schema,omitempty"`
	Name    string   `json:"table_name"`
	Columns []Column `json:"columns"`
}

// Routine is a stored procedure, function or trigger with its source text
type Routine struct {
	Schema     string `json:"schema,omitempty"`
	Name       string `json:"name"`
	Table      string `json:"table_name,omitempty"`
	Definition string `json:"definition"`
}

// Object is the flattened form every kind is described and indexed from
type Object struct {
	Kind       Kind
	Name       string
	TableName  string
	Columns    []Column
	Definition string
	DataType   string
	Nullable   bool
	PrimaryKey bool
}

// Object returns the table as a describable object
func (t Table) Object() Object {
	return Object{Kind: KindTable, Name: t.Name, Columns: t.Columns}
}

// Object returns the column as a describable object
func (c Column) Object() Object {
	return Object{
		Kind:       KindColumn,
		Name:       c.Name,
		TableName:  c.Table,
		DataType:   c.DataType,
		Nullable:   c.Nullable,
		PrimaryKey: c.PrimaryKey,
	}
}

// Object returns the routine as a describable object of the given kind
func (r Routine) Object(kind Kind) Object {
	return Object{Kind: kind, Name: r.Name, TableName: r.Table, Definition: r.Definition}
}

// ColumnNames returns the column names in declaration order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}

	return names
}
