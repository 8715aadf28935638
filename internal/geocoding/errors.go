package geocoding

import (
	"errors"
	"fmt"
)

// ConfigurationError reports caller misuse: an empty provider list, a missing address,
// an unknown provider name or absent provider credentials. It is always fatal to the
// current call and is never retried.
type ConfigurationError struct {
	Message string
	Err     error
}

// NewConfigurationError returns a ConfigurationError with the given message.
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ProviderError reports a failure of a single provider: transport errors, unexpected
// status codes or malformed payloads. The resolver treats it as "no result" from that
// provider and moves on to the next one.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// IsProviderError reports whether err is, or wraps, a ProviderError.
func IsProviderError(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr)
}

// ErrMissingAPIKey is wrapped by configuration errors raised for providers that
// need credentials and were given none.
var ErrMissingAPIKey = errors.New("api key is not provided")

func missingKeyError(provider string) *ConfigurationError {
	return &ConfigurationError{Message: fmt.Sprintf("API key is required for %s provider", provider), Err: ErrMissingAPIKey}
}
