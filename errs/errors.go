// Package errs defines the typed errors returned by the SDK's public API.
// Callers can match them with errors.As to distinguish configuration
// problems from lookup failures.
package errs

import "fmt"

// VisitorCodeInvalidError reports a visitor code that is empty or longer
// than the accepted maximum.
type VisitorCodeInvalidError struct {
	VisitorCode string
	Reason      string
}

func (e *VisitorCodeInvalidError) Error() string {
	return fmt.Sprintf("invalid visitor code %q: %s", e.VisitorCode, e.Reason)
}

// FeatureNotFoundError reports a feature key absent from the current
// configuration.
type FeatureNotFoundError struct {
	FeatureKey string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("feature flag %q not found", e.FeatureKey)
}

// FeatureEnvironmentDisabledError reports a feature flag disabled for the
// configured environment.
type FeatureEnvironmentDisabledError struct {
	FeatureKey  string
	Environment string
}

func (e *FeatureEnvironmentDisabledError) Error() string {
	if e.Environment == "" {
		return fmt.Sprintf("feature flag %q is disabled for the default environment", e.FeatureKey)
	}
	return fmt.Sprintf("feature flag %q is disabled for environment %q", e.FeatureKey, e.Environment)
}

// FeatureVariationNotFoundError reports a variation key absent from a
// feature flag.
type FeatureVariationNotFoundError struct {
	FeatureKey   string
	VariationKey string
}

func (e *FeatureVariationNotFoundError) Error() string {
	return fmt.Sprintf("variation %q not found in feature flag %q", e.VariationKey, e.FeatureKey)
}

// FeatureVariableNotFoundError reports a variable key absent from a
// variation.
type FeatureVariableNotFoundError struct {
	FeatureKey   string
	VariationKey string
	VariableKey  string
}

func (e *FeatureVariableNotFoundError) Error() string {
	return fmt.Sprintf("variable %q not found in variation %q of feature flag %q",
		e.VariableKey, e.VariationKey, e.FeatureKey)
}

// ConfigCredentialsInvalidError reports rejected client credentials.
type ConfigCredentialsInvalidError struct {
	Message string
}

func (e *ConfigCredentialsInvalidError) Error() string {
	return "invalid client credentials: " + e.Message
}

// ConfigFileNotFoundError reports a missing or unreadable local
// configuration file.
type ConfigFileNotFoundError struct {
	Path string
	Err  error
}

func (e *ConfigFileNotFoundError) Error() string {
	return fmt.Sprintf("configuration file %q cannot be read: %v", e.Path, e.Err)
}

func (e *ConfigFileNotFoundError) Unwrap() error { return e.Err }

// NetworkError wraps a transport failure of one of the remote services.
type NetworkError struct {
	Service string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
