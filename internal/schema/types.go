// Package schema defines the canonical database schema model built by the
// indexers, and the pure text renderers that turn it into LLM prompt context.
//
// A SchemaIndex is a point-in-time snapshot: it is populated wholesale by a
// single indexing pass and replaced, never merged. All types serialize to
// JSON, which is the cache payload format.
package schema

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ColumnType describes the data type of a column.
type ColumnType struct {
	// Base is the bare type name, e.g. "varchar", "integer", "timestamp".
	Base string `json:"base_type"`
	// Length is the length or numeric precision, e.g. 255 for varchar(255).
	Length *int64 `json:"length,omitempty"`
	// Scale is the numeric scale for decimal types.
	Scale *int64 `json:"scale,omitempty"`
	// ArrayDims is the number of array dimensions (1 for text[], 2 for text[][]).
	ArrayDims int `json:"array_dimensions,omitempty"`
}

// String renders the type as base(length[, scale]) followed by one [] per
// array dimension.
func (t ColumnType) String() string {
	var b strings.Builder
	b.WriteString(t.Base)
	if t.Length != nil {
		fmt.Fprintf(&b, "(%d", *t.Length)
		if t.Scale != nil {
			fmt.Fprintf(&b, ", %d", *t.Scale)
		}
		b.WriteString(")")
	}
	for i := 0; i < t.ArrayDims; i++ {
		b.WriteString("[]")
	}
	return b.String()
}

// ForeignKeyReference is the target side of a foreign key.
//
// The referenced table is not validated against the owning SchemaIndex; a
// reference to a table absent from the index is representable and rendered
// as-is.
type ForeignKeyReference struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	OnDelete string `json:"on_delete,omitempty"`
	OnUpdate string `json:"on_update,omitempty"`
}

// ForeignKey ties a source column to its reference. Tables hold one entry per
// foreign-key column.
type ForeignKey struct {
	Column string              `json:"column"`
	Ref    ForeignKeyReference `json:"references"`
}

// Column describes one column of a table or view.
//
// Invariant: IsPrimaryKey and IsForeignKey agree with membership in the
// owning table's PrimaryKeys and ForeignKeys lists. Use Table.MarkPrimaryKey
// and Table.AddForeignKey to keep both sides in sync.
type Column struct {
	Name         string               `json:"name"`
	Type         ColumnType           `json:"column_type"`
	Nullable     bool                 `json:"nullable"`
	Default      *string              `json:"default_value,omitempty"`
	IsPrimaryKey bool                 `json:"is_primary_key"`
	IsForeignKey bool                 `json:"is_foreign_key"`
	References   *ForeignKeyReference `json:"references,omitempty"`
	IsUnique     bool                 `json:"is_unique"`
	Comment      string               `json:"comment,omitempty"`
}

// String renders the column with its tags in fixed order.
func (c Column) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", c.Name, c.Type)
	if c.IsPrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if c.IsForeignKey {
		b.WriteString(" FOREIGN KEY")
	}
	if c.IsUnique {
		b.WriteString(" UNIQUE")
	}
	if !c.Nullable {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		fmt.Fprintf(&b, " DEFAULT %s", *c.Default)
	}
	if c.Comment != "" {
		fmt.Fprintf(&b, " -- %s", c.Comment)
	}
	return b.String()
}

// Table describes a table or view. Columns are kept in ordinal position
// order; PrimaryKeys preserves key ordinal order.
type Table struct {
	Name          string       `json:"name"`
	IsView        bool         `json:"is_view"`
	Columns       []Column     `json:"columns"`
	PrimaryKeys   []string     `json:"primary_keys"`
	ForeignKeys   []ForeignKey `json:"foreign_keys"`
	Comment       string       `json:"comment,omitempty"`
	EstimatedRows *int64       `json:"estimated_rows,omitempty"`
}

// NewTable creates an empty table.
func NewTable(name string) *Table {
	return &Table{Name: name}
}

// NewView creates an empty view.
func NewView(name string) *Table {
	return &Table{Name: name, IsView: true}
}

// AddColumn appends a column, preserving insertion (ordinal) order.
func (t *Table) AddColumn(c Column) {
	t.Columns = append(t.Columns, c)
}

// Column returns the column with the given name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// MarkPrimaryKey appends name to the ordered primary-key list and flags the
// matching column.
func (t *Table) MarkPrimaryKey(name string) {
	t.PrimaryKeys = append(t.PrimaryKeys, name)
	if c := t.Column(name); c != nil {
		c.IsPrimaryKey = true
	}
}

// AddForeignKey records a foreign key on the named source column and flags
// the matching column with its reference.
func (t *Table) AddForeignKey(column string, ref ForeignKeyReference) {
	t.ForeignKeys = append(t.ForeignKeys, ForeignKey{Column: column, Ref: ref})
	if c := t.Column(column); c != nil {
		c.IsForeignKey = true
		refCopy := ref
		c.References = &refCopy
	}
}

// TableRelationship is a directed edge derived one-to-one from a foreign key
// at indexing time.
type TableRelationship struct {
	FromTable  string `json:"from_table"`
	FromColumn string `json:"from_column"`
	ToTable    string `json:"to_table"`
	ToColumn   string `json:"to_column"`
	Kind       string `json:"relationship_type"`
}

// RelationManyToOne is the kind assigned to every derived relationship.
const RelationManyToOne = "many-to-one"

// SchemaIndex is the complete snapshot of one database's schema.
type SchemaIndex struct {
	DatabaseName  string              `json:"database_name,omitempty"`
	SchemaName    string              `json:"schema_name,omitempty"`
	Tables        map[string]*Table   `json:"tables"`
	Relationships []TableRelationship `json:"relationships"`
	// IndexedAt is set in UTC when the in-memory object is constructed,
	// not when it is written to the cache.
	IndexedAt time.Time `json:"indexed_at"`
}

// NewIndex creates an empty index stamped with the current UTC time.
func NewIndex() *SchemaIndex {
	return &SchemaIndex{
		Tables:    make(map[string]*Table),
		IndexedAt: time.Now().UTC(),
	}
}

// AddTable inserts or replaces a table by name.
func (ix *SchemaIndex) AddTable(t *Table) {
	ix.Tables[t.Name] = t
}

// Table returns the table with the given name, or nil.
func (ix *SchemaIndex) Table(name string) *Table {
	return ix.Tables[name]
}

// AddRelationship appends a derived relationship edge.
func (ix *SchemaIndex) AddRelationship(r TableRelationship) {
	ix.Relationships = append(ix.Relationships, r)
}

// TableNames returns all table and view names in sorted order.
func (ix *SchemaIndex) TableNames() []string {
	names := make([]string, 0, len(ix.Tables))
	for name := range ix.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TablesOnly returns the tables (excluding views) in name order.
func (ix *SchemaIndex) TablesOnly() []*Table {
	var tables []*Table
	for _, name := range ix.TableNames() {
		if t := ix.Tables[name]; !t.IsView {
			tables = append(tables, t)
		}
	}
	return tables
}

// Views returns the views in name order.
func (ix *SchemaIndex) Views() []*Table {
	var views []*Table
	for _, name := range ix.TableNames() {
		if t := ix.Tables[name]; t.IsView {
			views = append(views, t)
		}
	}
	return views
}

// FindTablesWithColumn returns every table having a column with the given
// name, in name order.
func (ix *SchemaIndex) FindTablesWithColumn(column string) []*Table {
	var out []*Table
	for _, name := range ix.TableNames() {
		if ix.Tables[name].Column(column) != nil {
			out = append(out, ix.Tables[name])
		}
	}
	return out
}

// FindTablesByPattern returns every table whose name contains pattern,
// case-insensitively, in name order.
func (ix *SchemaIndex) FindTablesByPattern(pattern string) []*Table {
	needle := strings.ToLower(pattern)
	var out []*Table
	for _, name := range ix.TableNames() {
		if strings.Contains(strings.ToLower(name), needle) {
			out = append(out, ix.Tables[name])
		}
	}
	return out
}
