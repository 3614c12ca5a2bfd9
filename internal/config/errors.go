package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	ErrInvalidMaxAttempts       = errors.New("invalid max attempts: must be positive")
	ErrInvalidTimeout           = errors.New("invalid timeout: must be positive")
	ErrInvalidDepth             = errors.New("invalid depth: must be between 0 and 3")
	ErrInvalidMode              = errors.New("invalid mode: must be content or generic")
	ErrInvalidMaxBodySize       = errors.New("invalid max body size: must be positive")
	ErrInvalidConcurrency       = errors.New("invalid concurrency: must be positive")
	ErrInvalidRelayRate         = errors.New("invalid relay rate: must be positive")
	ErrInvalidRelayURL          = errors.New("invalid relay URL")
	ErrInvalidProxy             = errors.New("invalid proxy")
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
	ErrConflictingEgress        = errors.New("conflicting egress: --relay cannot be combined with --tor")

	// ErrInvalidEnv is returned when a PAGELENS_* variable cannot be parsed.
	ErrInvalidEnv = errors.New("invalid environment variable")
)
