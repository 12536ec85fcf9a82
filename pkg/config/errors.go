package config

import "errors"

// Common errors returned by the config package.
var (
	// ErrConflictingSources is returned when both a file and a socket are configured.
	ErrConflictingSources = errors.New("stream path and socket are mutually exclusive")

	// ErrInvalidBackoff is returned when the backoff delays are out of order or <= 0.
	ErrInvalidBackoff = errors.New("invalid backoff: initial must be > 0 and max >= initial")

	// ErrInvalidBackoffFactor is returned when the backoff factor is < 1.
	ErrInvalidBackoffFactor = errors.New("invalid backoff factor: must be >= 1")

	// ErrInvalidErrorThrottle is returned when the error throttle is <= 0.
	ErrInvalidErrorThrottle = errors.New("invalid error throttle: must be > 0")

	// ErrInvalidPollInterval is returned when the poll interval is <= 0.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be > 0")

	// ErrInvalidDisplayFormat is returned when the display format is not recognized.
	ErrInvalidDisplayFormat = errors.New("invalid display format: must be grid, simple, or json")

	// ErrInvalidRefreshRate is returned when refresh rate is <= 0.
	ErrInvalidRefreshRate = errors.New("invalid refresh rate: must be > 0")

	// ErrInvalidMaxAgents is returned when the agent limit is <= 0.
	ErrInvalidMaxAgents = errors.New("invalid max agents: must be > 0")

	// ErrInvalidPricing is returned when a pricing override is negative.
	ErrInvalidPricing = errors.New("invalid pricing: rates must be >= 0")

	// ErrInvalidPricingDate is returned when pricing.last_updated is not YYYY-MM-DD.
	ErrInvalidPricingDate = errors.New("invalid pricing date: must be YYYY-MM-DD")

	// ErrInvalidMaxTokens is returned when the context window is <= 0.
	ErrInvalidMaxTokens = errors.New("invalid max tokens: must be > 0")

	// ErrInvalidLogLevel is returned when log level is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level: must be debug, info, warn, or error")

	// ErrInvalidLogFormat is returned when log format is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrConfigNotFound is returned when config file is not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInvalidYAML is returned when config file has invalid YAML syntax.
	ErrInvalidYAML = errors.New("invalid YAML syntax in config file")
)
