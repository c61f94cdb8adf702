package schema

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIndex() *SchemaIndex {
	ix := NewIndex()
	ix.DatabaseName = "company"
	ix.SchemaName = "public"
	ix.IndexedAt = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	departments := NewTable("departments")
	departments.Comment = "org units"
	departments.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}})
	departments.AddColumn(Column{Name: "name", Type: ColumnType{Base: "varchar", Length: int64p(100)}})
	departments.MarkPrimaryKey("id")
	ix.AddTable(departments)

	employees := NewTable("employees")
	employees.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}})
	employees.AddColumn(Column{Name: "dept_id", Type: ColumnType{Base: "integer"}})
	employees.AddColumn(Column{Name: "email", Type: ColumnType{Base: "varchar", Length: int64p(255)}, Nullable: true, IsUnique: true})
	employees.MarkPrimaryKey("id")
	employees.AddForeignKey("dept_id", ForeignKeyReference{Table: "departments", Column: "id"})
	ix.AddTable(employees)

	headcount := NewView("headcount")
	headcount.AddColumn(Column{Name: "dept", Type: ColumnType{Base: "varchar"}, Nullable: true})
	headcount.AddColumn(Column{Name: "total", Type: ColumnType{Base: "bigint"}, Nullable: true})
	ix.AddTable(headcount)

	ix.AddRelationship(TableRelationship{
		FromTable: "employees", FromColumn: "dept_id",
		ToTable: "departments", ToColumn: "id",
		Kind: RelationManyToOne,
	})
	return ix
}

func TestFormatFull(t *testing.T) {
	out := FormatFull(sampleIndex())

	assert.True(t, strings.HasPrefix(out, "Database: company\nSchema: public\n"))
	assert.Contains(t, out, "Indexed at: 2024-03-15 10:30:00 UTC\n")
	assert.Contains(t, out, "Contains 2 tables and 1 views\n")

	assert.Contains(t, out, "Table: departments\n  -- org units\n")
	assert.Contains(t, out, "View: headcount\n")

	assert.Contains(t, out, "  Primary Key: id\n")
	assert.Contains(t, out, "  Foreign Keys:\n    dept_id -> departments (id)\n")

	assert.Contains(t, out, "    id: integer PRIMARY KEY NOT NULL\n")
	assert.Contains(t, out, "    email: varchar(255) UNIQUE\n")

	assert.Contains(t, out, "Relationships:\n  employees.dept_id -> departments.id (many-to-one)\n")

	// Tables render in name order.
	assert.Less(t,
		strings.Index(out, "Table: departments"),
		strings.Index(out, "Table: employees"))
	assert.Less(t,
		strings.Index(out, "Table: employees"),
		strings.Index(out, "View: headcount"))
}

func TestFormatFullDeterministic(t *testing.T) {
	ix := sampleIndex()
	first := FormatFull(ix)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, FormatFull(ix))
	}
}

func TestFormatFullEmpty(t *testing.T) {
	ix := NewIndex()
	out := FormatFull(ix)

	assert.NotContains(t, out, "Database:")
	assert.Contains(t, out, "Contains 0 tables and 0 views\n")
	assert.NotContains(t, out, "Relationships:")
}

func TestFormatSummary(t *testing.T) {
	out := FormatSummary(sampleIndex())

	assert.True(t, strings.HasPrefix(out, "Database: company\n"))
	assert.Contains(t, out, "\nTables:\n")

	require.Contains(t, out, "  departments ([PK] id: integer, name: varchar)\n")
	require.Contains(t, out, "  employees ([PK] id: integer, [FK] dept_id: integer, email: varchar)\n")
	require.Contains(t, out, "  [VIEW] headcount (dept: varchar, total: bigint)\n")

	assert.Contains(t, out, "\nRelationships:\n  employees.dept_id -> departments.id\n")
	assert.NotContains(t, out, "many-to-one")
}

func TestFormatSummaryDeterministic(t *testing.T) {
	ix := sampleIndex()
	assert.Equal(t, FormatSummary(ix), FormatSummary(ix))
}
