package config

import (
	"reflect"
	"strings"
	"time"

	"exercise-sync/core/database"
	"exercise-sync/core/gateway"
	"exercise-sync/core/logger"
	"exercise-sync/core/server"
	"exercise-sync/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage used by the run archive.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the database connection.
	Database database.Config `mapstructure:"database"`
	// Remote holds credentials and throttling for the fitness platform API.
	Remote gateway.Config `mapstructure:"remote"`
	// Sync holds reconciliation and bulk operation settings.
	Sync SyncConfig `mapstructure:"sync"`
	// Audit holds sync run history settings.
	Audit AuditConfig `mapstructure:"audit"`
}

// SyncConfig holds reconciliation and bulk operation settings.
type SyncConfig struct {
	// SkipExisting skips local records that already carry a remote id on push.
	SkipExisting bool `mapstructure:"skip_existing" default:"true"`
	// CheckForDuplicates looks up synced records by name before creating remotely.
	CheckForDuplicates bool `mapstructure:"check_for_duplicates" default:"true"`
	// BatchSize is the number of items processed between pauses.
	BatchSize int `mapstructure:"batch_size" default:"5"`
	// BatchPauseMs is the pause after each batch in milliseconds.
	BatchPauseMs int `mapstructure:"batch_pause_ms" default:"2000"`
	// ConflictFields are the fields whose difference turns an update into a conflict.
	ConflictFields []string `mapstructure:"conflict_fields" default:"name,description,category"`
	// CacheTTLSeconds is how long a remote snapshot is reused between plans.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
	// PageSize is the remote list page size.
	PageSize int `mapstructure:"page_size" default:"100"`
}

// BatchPause returns the pause between batches.
func (c SyncConfig) BatchPause() time.Duration {
	return time.Duration(c.BatchPauseMs) * time.Millisecond
}

// CacheTTL returns the remote snapshot lifetime.
func (c SyncConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// AuditConfig holds sync run history settings.
type AuditConfig struct {
	// Archive uploads every completed run summary to object storage.
	Archive bool `mapstructure:"archive" default:"false"`
	// Prefix is the object key prefix for archived runs.
	Prefix string `mapstructure:"prefix" default:"runs"`
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. REMOTE_BASE_URL -> remote.base_url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
