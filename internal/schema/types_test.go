package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64p(v int64) *int64 { return &v }
func strp(s string) *string { return &s }

func TestColumnTypeString(t *testing.T) {
	tests := []struct {
		name string
		typ  ColumnType
		want string
	}{
		{"bare", ColumnType{Base: "integer"}, "integer"},
		{"length", ColumnType{Base: "varchar", Length: int64p(255)}, "varchar(255)"},
		{"precision and scale", ColumnType{Base: "numeric", Length: int64p(10), Scale: int64p(2)}, "numeric(10, 2)"},
		{"array", ColumnType{Base: "text", ArrayDims: 1}, "text[]"},
		{"nested array", ColumnType{Base: "integer", ArrayDims: 2}, "integer[][]"},
		{"sized array", ColumnType{Base: "varchar", Length: int64p(50), ArrayDims: 1}, "varchar(50)[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestColumnString(t *testing.T) {
	col := Column{
		Name:         "dept_id",
		Type:         ColumnType{Base: "integer"},
		Nullable:     false,
		IsPrimaryKey: true,
		IsForeignKey: true,
		IsUnique:     true,
		Default:      strp("0"),
		Comment:      "owning department",
	}
	assert.Equal(t,
		"dept_id: integer PRIMARY KEY FOREIGN KEY UNIQUE NOT NULL DEFAULT 0 -- owning department",
		col.String())

	plain := Column{Name: "bio", Type: ColumnType{Base: "text"}, Nullable: true}
	assert.Equal(t, "bio: text", plain.String())
}

func TestTableKeyAccounting(t *testing.T) {
	table := NewTable("employees")
	table.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}})
	table.AddColumn(Column{Name: "dept_id", Type: ColumnType{Base: "integer"}})

	table.MarkPrimaryKey("id")
	assert.Equal(t, []string{"id"}, table.PrimaryKeys)
	assert.True(t, table.Column("id").IsPrimaryKey)

	ref := ForeignKeyReference{Table: "departments", Column: "id", OnDelete: "CASCADE"}
	table.AddForeignKey("dept_id", ref)

	require.Len(t, table.ForeignKeys, 1)
	assert.Equal(t, "dept_id", table.ForeignKeys[0].Column)
	assert.Equal(t, "departments", table.ForeignKeys[0].Ref.Table)

	col := table.Column("dept_id")
	require.NotNil(t, col)
	assert.True(t, col.IsForeignKey)
	require.NotNil(t, col.References)
	assert.Equal(t, "id", col.References.Column)

	// Missing column: list entry is still recorded.
	table.MarkPrimaryKey("ghost")
	assert.Equal(t, []string{"id", "ghost"}, table.PrimaryKeys)
}

func TestIndexLookups(t *testing.T) {
	ix := NewIndex()
	ix.DatabaseName = "shop"

	users := NewTable("users")
	users.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}})
	ix.AddTable(users)

	orders := NewTable("order_items")
	orders.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}})
	ix.AddTable(orders)

	ix.AddTable(NewView("user_orders"))

	assert.Equal(t, []string{"order_items", "user_orders", "users"}, ix.TableNames())
	assert.Len(t, ix.TablesOnly(), 2)
	assert.Len(t, ix.Views(), 1)

	withID := ix.FindTablesWithColumn("id")
	require.Len(t, withID, 2)
	assert.Equal(t, "order_items", withID[0].Name)

	byPattern := ix.FindTablesByPattern("ORDER")
	require.Len(t, byPattern, 2)
	assert.Equal(t, "order_items", byPattern[0].Name)
	assert.Equal(t, "user_orders", byPattern[1].Name)

	assert.Nil(t, ix.Table("missing"))
	assert.False(t, ix.IndexedAt.IsZero())
}

func TestIndexJSONRoundTrip(t *testing.T) {
	ix := NewIndex()
	ix.DatabaseName = "shop"
	ix.SchemaName = "public"

	table := NewTable("employees")
	table.AddColumn(Column{Name: "id", Type: ColumnType{Base: "integer"}, Nullable: false})
	table.AddColumn(Column{
		Name: "salary",
		Type: ColumnType{Base: "numeric", Length: int64p(10), Scale: int64p(2)},
	})
	table.MarkPrimaryKey("id")
	ix.AddTable(table)
	ix.AddRelationship(TableRelationship{
		FromTable: "employees", FromColumn: "dept_id",
		ToTable: "departments", ToColumn: "id",
		Kind: RelationManyToOne,
	})

	data, err := json.Marshal(ix)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"base_type":"numeric"`)
	assert.Contains(t, string(data), `"relationship_type":"many-to-one"`)

	var got SchemaIndex
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ix.DatabaseName, got.DatabaseName)
	require.Contains(t, got.Tables, "employees")
	assert.Equal(t, []string{"id"}, got.Tables["employees"].PrimaryKeys)
	assert.True(t, got.IndexedAt.Equal(ix.IndexedAt))
}
