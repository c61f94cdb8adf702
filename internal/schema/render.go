package schema

import (
	"fmt"
	"strings"
)

// indexedAtLayout matches the timestamp form embedded in prompt context.
const indexedAtLayout = "2006-01-02 15:04:05"

// FormatFull renders the complete schema as prompt context.
//
// The output is deterministic: tables appear in name order, columns in
// ordinal order, and the same index always yields byte-identical text.
func FormatFull(ix *SchemaIndex) string {
	var b strings.Builder

	if ix.DatabaseName != "" {
		fmt.Fprintf(&b, "Database: %s\n", ix.DatabaseName)
	}
	if ix.SchemaName != "" {
		fmt.Fprintf(&b, "Schema: %s\n", ix.SchemaName)
	}
	fmt.Fprintf(&b, "Indexed at: %s UTC\n\n", ix.IndexedAt.UTC().Format(indexedAtLayout))

	tableCount := len(ix.TablesOnly())
	viewCount := len(ix.Views())
	fmt.Fprintf(&b, "Contains %d tables and %d views\n\n", tableCount, viewCount)

	for _, name := range ix.TableNames() {
		writeTable(&b, ix.Tables[name])
		b.WriteString("\n")
	}

	if len(ix.Relationships) > 0 {
		b.WriteString("Relationships:\n")
		for _, rel := range ix.Relationships {
			fmt.Fprintf(&b, "  %s.%s -> %s.%s (%s)\n",
				rel.FromTable, rel.FromColumn, rel.ToTable, rel.ToColumn, rel.Kind)
		}
	}

	return b.String()
}

// FormatSummary renders a compact schema view for token-constrained prompts:
// one line per table with column names and base types, and the relationship
// list without kind labels.
func FormatSummary(ix *SchemaIndex) string {
	var b strings.Builder

	if ix.DatabaseName != "" {
		fmt.Fprintf(&b, "Database: %s\n", ix.DatabaseName)
	}

	b.WriteString("\nTables:\n")
	for _, name := range ix.TableNames() {
		t := ix.Tables[name]
		prefix := ""
		if t.IsView {
			prefix = "[VIEW] "
		}
		fmt.Fprintf(&b, "  %s%s (", prefix, name)

		parts := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			info := fmt.Sprintf("%s: %s", c.Name, c.Type.Base)
			if c.IsPrimaryKey {
				info = "[PK] " + info
			}
			if c.IsForeignKey {
				info = "[FK] " + info
			}
			parts = append(parts, info)
		}
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(")\n")
	}

	if len(ix.Relationships) > 0 {
		b.WriteString("\nRelationships:\n")
		for _, rel := range ix.Relationships {
			fmt.Fprintf(&b, "  %s.%s -> %s.%s\n",
				rel.FromTable, rel.FromColumn, rel.ToTable, rel.ToColumn)
		}
	}

	return b.String()
}

// writeTable renders one table block: header, comment, keys, then columns.
func writeTable(b *strings.Builder, t *Table) {
	kind := "Table"
	if t.IsView {
		kind = "View"
	}
	fmt.Fprintf(b, "%s: %s\n", kind, t.Name)

	if t.Comment != "" {
		fmt.Fprintf(b, "  -- %s\n", t.Comment)
	}

	if len(t.PrimaryKeys) > 0 {
		fmt.Fprintf(b, "  Primary Key: %s\n", strings.Join(t.PrimaryKeys, ", "))
	}

	if len(t.ForeignKeys) > 0 {
		b.WriteString("  Foreign Keys:\n")
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(b, "    %s -> %s (%s)\n", fk.Column, fk.Ref.Table, fk.Ref.Column)
		}
	}

	b.WriteString("  Columns:\n")
	for _, c := range t.Columns {
		fmt.Fprintf(b, "    %s\n", c)
	}
}
