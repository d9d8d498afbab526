package mapper

import (
	"exercise-sync/core/database"
)

// Negotiate keeps only the mappings whose local column exists in columns. It is
// meant to run once at startup against database.GetTableColumns; the result is the
// static table handed to New. An empty column list leaves the table untouched so
// that an unreadable schema does not silently disable every field.
func Negotiate(table []FieldMapping, columns database.Columns) (kept []FieldMapping, dropped []string) {
	if len(columns) == 0 {
		out := make([]FieldMapping, len(table))
		copy(out, table)
		return out, nil
	}

	for _, fm := range table {
		if columns.Has(fm.Local) {
			kept = append(kept, fm)
			continue
		}
		dropped = append(dropped, fm.Local)
	}
	return kept, dropped
}
