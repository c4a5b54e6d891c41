package testutil

import (
	"github.com/alexSpace56/data-navigator/internal/schema"
)

// TableOption is a functional option for configuring test tables
type TableOption func(*schema.Table)

// ColumnOption is a functional option for configuring test columns
type ColumnOption func(*schema.Column)

// PrimaryKey marks the column as the primary key, which implies not null
func PrimaryKey() ColumnOption {
	return func(c *schema.Column) {
		c.PrimaryKey = true
		c.Nullable = false
	}
}

// NotNull marks the column as required
func NotNull() ColumnOption {
	return func(c *schema.Column) {
		c.Nullable = false
	}
}

// WithType sets the column data type
func WithType(dataType string) ColumnOption {
	return func(c *schema.Column) {
		c.DataType = dataType
	}
}

// WithColumn appends a nullable text column; options adjust it
func WithColumn(name string, opts ...ColumnOption) TableOption {
	return func(t *schema.Table) {
		c := schema.Column{Table: t.Name, Name: name, DataType: "text", Nullable: true}
		for _, opt := range opts {
			opt(&c)
		}

		t.Columns = append(t.Columns, c)
	}
}

// WithSchema sets the table schema
func WithSchema(name string) TableOption {
	return func(t *schema.Table) {
		t.Schema = name
	}
}

// NewTable builds a table in the public schema
func NewTable(name string, opts ...TableOption) schema.Table {
	t := schema.Table{Schema: "public", Name: name}
	for _, opt := range opts {
		opt(&t)
	}

	return t
}

// NewRoutine builds a procedure or trigger with the given definition
func NewRoutine(name, definition string) schema.Routine {
	return schema.Routine{Schema: "public", Name: name, Definition: definition}
}

// NewTrigger builds a trigger attached to table
func NewTrigger(name, table, definition string) schema.Routine {
	r := NewRoutine(name, definition)
	r.Table = table

	return r
}

// WellRepairStatus is the reference table: id PK, status nullable, repair_date required
func WellRepairStatus() schema.Table {
	return NewTable(TestTableName,
		WithColumn("id", WithType("integer"), PrimaryKey()),
		WithColumn("status", WithType("varchar")),
		WithColumn("repair_date", WithType("date"), NotNull()),
	)
}

// Wells is a second table sharing no column names with WellRepairStatus
func Wells() schema.Table {
	return NewTable("wells",
		WithColumn("well_id", WithType("integer"), PrimaryKey()),
		WithColumn("depth", WithType("numeric")),
		WithColumn("name", WithType("text"), NotNull()),
	)
}

// RepairDurationProcedure mentions both repair and duration
func RepairDurationProcedure() schema.Routine {
	return NewRoutine("calc_repair_duration", `
CREATE OR REPLACE FUNCTION calc_repair_duration(p_well integer) RETURNS interval AS $$
BEGIN
  -- duration of the last repair, also updates status of the well
  RETURN (SELECT max(repair_date) - min(repair_date) FROM well_repair_status WHERE id = p_well);
END;
$$ LANGUAGE plpgsql;`)
}

// TouchTrigger updates a timestamp column
func TouchTrigger() schema.Routine {
	return NewTrigger("trg_touch_updated_at", TestTableName,
		"CREATE TRIGGER trg_touch_updated_at BEFORE UPDATE ON well_repair_status "+
			"FOR EACH ROW EXECUTE FUNCTION touch(); NEW.updated_at := now(); -- timestamp")
}
