// Package database handles database connections and schema inspection.
//
// It wraps GORM to configure MySQL (production) or SQLite (single-node installs and
// tests) connections from the application's configuration.
//
// # Connect
//
// Connect opens the configured driver, applies connection pool limits and verifies the
// connection with a ping bounded by the configured timeout.
//
// # Schema Inspection
//
// GetTableColumns returns the live Columns of a table, or ErrTableNotFound. It runs
// once at startup so the field mapper only maps columns the exercises table really
// has, and again for every schema integrity check.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	columns, err := database.GetTableColumns(db, "exercises")
package database
