package checks

import (
	"fmt"
	"strings"
	gosync "sync"

	"exercise-sync/core/database"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// SchemaReport strictly types the result of a schema integrity check.
type SchemaReport struct {
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckSchema verifies the database schema using GORM models as the source of truth.
func CheckSchema(db *gorm.DB, models ...any) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Matched: true,
		Tables:  make(map[string]TableReport),
		Errors:  []string{},
	}

	cache := &gosync.Map{}
	for _, model := range models {
		s, err := schema.Parse(model, cache, db.NamingStrategy)
		if err != nil {
			return nil, fmt.Errorf("failed to parse model %T: %w", model, err)
		}

		actualCols, err := database.GetTableColumns(db, s.Table)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", s.Table, err))
			report.Matched = false
			continue
		}

		tbl := compareColumns(s, actualCols)
		if tbl.Status != "ok" {
			report.Matched = false
		}
		report.Tables[s.Table] = tbl
	}

	return report, nil
}

func compareColumns(s *schema.Schema, actual database.Columns) TableReport {
	tbl := TableReport{
		MissingColumns: []string{},
		TypeMismatches: []string{},
		Status:         "ok",
	}

	for _, field := range s.Fields {
		if field.DBName == "" {
			continue
		}

		col, ok := actual.Lookup(field.DBName)
		if !ok {
			tbl.MissingColumns = append(tbl.MissingColumns, field.DBName)
			tbl.Status = "error"
			continue
		}

		// Only columns with an explicit type are type-checked
		expType := strings.ToLower(field.TagSettings["TYPE"])
		if expType == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(col.Type), expType) {
			tbl.TypeMismatches = append(tbl.TypeMismatches, fmt.Sprintf("%s: expected %s, got %s", field.DBName, expType, col.Type))
			tbl.Status = "error"
		}
	}

	return tbl
}
