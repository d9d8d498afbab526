// Package config provides configuration management for the exercise sync service.
//
// It uses Viper to load settings from environment variables and an optional .env file.
// Defaults live in `default` struct tags next to each field and are registered by
// reflection, so every key is also reachable through its SECTION_KEY environment name.
//
// # Configuration Structure
//
//   - Server: HTTP port, API key and shutdown bound
//   - Database: MySQL or SQLite connection details
//   - Storage: S3/MinIO credentials for the run archive
//   - Log: Logging level and format
//   - Remote: fitness platform credentials, rate and retry budget
//   - Sync: batch size, pauses, duplicate checks and conflict fields
//   - Audit: run archive toggle
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Remote.RequestsPerSecond)
package config
