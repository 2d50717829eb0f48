package verdandi

import "github.com/rafaeljc/verdandi/errs"

// The typed errors returned by the client, re-exported so callers only need
// this package for errors.As matching.
type (
	VisitorCodeInvalidError         = errs.VisitorCodeInvalidError
	FeatureNotFoundError            = errs.FeatureNotFoundError
	FeatureEnvironmentDisabledError = errs.FeatureEnvironmentDisabledError
	FeatureVariationNotFoundError   = errs.FeatureVariationNotFoundError
	FeatureVariableNotFoundError    = errs.FeatureVariableNotFoundError
	ConfigCredentialsInvalidError   = errs.ConfigCredentialsInvalidError
	ConfigFileNotFoundError         = errs.ConfigFileNotFoundError
	NetworkError                    = errs.NetworkError
)
