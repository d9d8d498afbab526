package gateway

import "time"

// Config holds connection and throttling settings for the remote API.
type Config struct {
	// BaseURL is the fixed API root, e.g. https://api.example.com/v1.
	BaseURL string `mapstructure:"base_url" default:""`
	// GroupID is the account group half of the Basic credential.
	GroupID string `mapstructure:"group_id" default:""`
	// Token is the secret half of the Basic credential.
	Token string `mapstructure:"token" default:""`
	// RequestsPerSecond caps the steady-state request rate.
	RequestsPerSecond float64 `mapstructure:"requests_per_second" default:"2"`
	// MaxRetries is the total number of attempts per request.
	MaxRetries int `mapstructure:"max_retries" default:"3"`
	// RetryDelayMs is the base backoff delay in milliseconds.
	RetryDelayMs int `mapstructure:"retry_delay_ms" default:"1000"`
}

const (
	defaultRequestsPerSecond = 2
	defaultMaxRetries        = 3
	defaultRetryDelay        = time.Second
)

// Validate checks that the credentials needed for every request are present.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return &ConfigError{Field: "base_url"}
	case c.GroupID == "":
		return &ConfigError{Field: "group_id"}
	case c.Token == "":
		return &ConfigError{Field: "token"}
	}
	return nil
}

// Interval returns the minimum spacing between requests.
func (c Config) Interval() time.Duration {
	rps := c.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSecond
	}
	return time.Duration(float64(time.Second) / rps)
}

// Attempts returns the attempt budget per request.
func (c Config) Attempts() int {
	if c.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return c.MaxRetries
}

// BaseDelay returns the backoff unit.
func (c Config) BaseDelay() time.Duration {
	if c.RetryDelayMs <= 0 {
		return defaultRetryDelay
	}
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
