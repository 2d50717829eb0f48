// Package verdandi is a feature flag evaluation client. It assigns visitors
// to feature flag variations with deterministic hashing, evaluates targeting
// segments against locally held visitor data, batches tracking events to the
// collector and keeps its configuration fresh by polling or real-time
// streaming.
//
// A Client is created once per site code and shared; all its methods are
// safe for concurrent use.
package verdandi

import (
	"github.com/rafaeljc/verdandi/internal/hashing"
	"github.com/rafaeljc/verdandi/internal/network"
)

// GenerateVisitorCode returns a fresh random visitor code, for callers that
// do not bring their own visitor identifiers.
func GenerateVisitorCode() string {
	return hashing.GenerateVisitorCode()
}

// Variation is the effective variation of a feature flag for one visitor:
// the variation key, the identifiers it was assigned under and its resolved
// variable values. VariationID and ExperimentID are nil when the variation
// was not assigned by a rule (default variation).
type Variation struct {
	Key          string
	VariationID  *int
	ExperimentID *int
	Variables    map[string]any
}

// RemoteVisitorDataFilter selects which kinds of stored visitor data
// GetRemoteVisitorData retrieves. The zero value retrieves nothing; use
// DefaultRemoteVisitorDataFilter for the usual scope.
type RemoteVisitorDataFilter = network.VisitorDataFilter

// DefaultRemoteVisitorDataFilter retrieves custom data from the current
// visit and one previous visit.
func DefaultRemoteVisitorDataFilter() RemoteVisitorDataFilter {
	return RemoteVisitorDataFilter{
		PreviousVisitAmount: 1,
		CurrentVisit:        true,
		CustomData:          true,
	}
}
