package storage

// Config points at the S3-compatible store holding archived sync runs.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" default:"localhost:9000"`
	AccessKey string `mapstructure:"access_key" default:"minioadmin"`
	SecretKey string `mapstructure:"secret_key" default:"minioadmin"`
	UseSSL    bool   `mapstructure:"use_ssl" default:"false"`
	// Bucket receives one JSON object per completed run.
	Bucket string `mapstructure:"bucket" default:"exercise-sync"`
	Region string `mapstructure:"region" default:""`
	// TimeoutSeconds bounds dialing and the first response byte.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
