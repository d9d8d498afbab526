package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrTableNotFound is returned when the inspected table does not exist.
var ErrTableNotFound = errors.New("table not found")

// ColumnInfo is one live column. Field names and types are lowercased.
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string
	Extra   string
}

// Nullable reports whether the column accepts NULL.
func (c ColumnInfo) Nullable() bool {
	return strings.EqualFold(c.Null, "yes")
}

// Columns is the live column set of one table.
type Columns []ColumnInfo

// Lookup finds a column by name, ignoring case.
func (cs Columns) Lookup(name string) (ColumnInfo, bool) {
	for _, c := range cs {
		if strings.EqualFold(c.Field, name) {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// Has reports whether the table has a column with the given name.
func (cs Columns) Has(name string) bool {
	_, ok := cs.Lookup(name)
	return ok
}

// GetTableColumns reads the live columns of tableName. MySQL is inspected with
// SHOW COLUMNS and SQLite with PRAGMA table_info.
func GetTableColumns(db *gorm.DB, tableName string) (Columns, error) {
	var (
		cols Columns
		err  error
	)
	if db.Dialector.Name() == DriverSQLite {
		cols, err = sqliteColumns(db, tableName)
	} else {
		cols, err = mysqlColumns(db, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	return cols, nil
}

func mysqlColumns(db *gorm.DB, tableName string) (Columns, error) {
	var cols Columns
	if err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&cols).Error; err != nil {
		return nil, err
	}
	for i := range cols {
		cols[i].Field = strings.ToLower(cols[i].Field)
		cols[i].Type = strings.ToLower(cols[i].Type)
	}
	return cols, nil
}

type pragmaColumn struct {
	Cid       int
	Name      string
	Type      string
	Notnull   int
	DfltValue *string
	Pk        int
}

func sqliteColumns(db *gorm.DB, tableName string) (Columns, error) {
	var rows []pragmaColumn
	if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&rows).Error; err != nil {
		return nil, err
	}
	// PRAGMA answers an unknown table with zero rows
	if len(rows) == 0 {
		return nil, ErrTableNotFound
	}

	cols := make(Columns, 0, len(rows))
	for _, r := range rows {
		col := ColumnInfo{
			Field:   strings.ToLower(r.Name),
			Type:    strings.ToLower(r.Type),
			Null:    "YES",
			Default: r.DfltValue,
		}
		if r.Notnull == 1 {
			col.Null = "NO"
		}
		if r.Pk > 0 {
			col.Key = "PRI"
		}
		cols = append(cols, col)
	}
	return cols, nil
}
