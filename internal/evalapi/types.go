package evalapi

import (
	"context"
	"strings"

	"github.com/rafaeljc/verdandi"
	"github.com/rafaeljc/verdandi/data"
)

// Evaluator is the slice of the client the sidecar exposes. An interface
// so handlers can be tested against a stub.
type Evaluator interface {
	WaitInit(ctx context.Context) error
	GetFeatureList() []string
	GetFeatureVariationKey(visitorCode, featureKey string) (string, error)
	IsFeatureActive(visitorCode, featureKey string) (bool, error)
	GetFeatureVariationVariables(featureKey, variationKey string) (map[string]any, error)
	GetFeatureVariable(visitorCode, featureKey, variableKey string) (any, error)
	GetActiveFeatures(visitorCode string) (map[string]verdandi.Variation, error)
	AddData(visitorCode string, items ...data.Data) error
	TrackConversion(visitorCode string, goalID int, revenue float64) error
	SetLegalConsent(visitorCode string, consent bool) error
	FlushVisitor(ctx context.Context, visitorCode string, instant bool) error
}

// AddDataRequest is the payload for POST /visitors/{visitorCode}/data.
// Every section is optional; present sections become visitor data items.
type AddDataRequest struct {
	CustomData []CustomDataPayload `json:"customData,omitempty"`
	PageView   *PageViewPayload    `json:"pageView,omitempty"`
	UserAgent  string              `json:"userAgent,omitempty"`
}

// CustomDataPayload carries one custom data dimension.
type CustomDataPayload struct {
	Index  int      `json:"index"`
	Values []string `json:"values"`
}

// PageViewPayload carries one page view.
type PageViewPayload struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Sanitize trims whitespace so dirty input never reaches the visitor store.
func (r *AddDataRequest) Sanitize() {
	for i := range r.CustomData {
		for j, value := range r.CustomData[i].Values {
			r.CustomData[i].Values[j] = strings.TrimSpace(value)
		}
	}
	if r.PageView != nil {
		r.PageView.URL = strings.TrimSpace(r.PageView.URL)
		r.PageView.Title = strings.TrimSpace(r.PageView.Title)
	}
	r.UserAgent = strings.TrimSpace(r.UserAgent)
}

// Validate checks the payload carries at least one well-formed item.
func (r *AddDataRequest) Validate() *ErrorResponse {
	if len(r.CustomData) == 0 && r.PageView == nil && r.UserAgent == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "At least one data section is required",
		}
	}
	for _, cd := range r.CustomData {
		if cd.Index < 0 {
			return &ErrorResponse{
				Code:    "ERR_INVALID_INPUT",
				Message: "Custom data index must not be negative",
			}
		}
	}
	if r.PageView != nil && r.PageView.URL == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Page view URL is required",
		}
	}
	return nil
}

// Items maps the payload to visitor data items.
func (r *AddDataRequest) Items() []data.Data {
	var items []data.Data
	for _, cd := range r.CustomData {
		items = append(items, data.NewCustomData(cd.Index, cd.Values...))
	}
	if r.PageView != nil {
		items = append(items, data.NewPageView(r.PageView.URL, r.PageView.Title))
	}
	if r.UserAgent != "" {
		items = append(items, data.NewUserAgent(r.UserAgent))
	}
	return items
}

// TrackConversionRequest is the payload for POST /visitors/{visitorCode}/conversion.
type TrackConversionRequest struct {
	GoalID  *int    `json:"goalId"`
	Revenue float64 `json:"revenue"`
}

// Validate checks the conversion payload.
func (r *TrackConversionRequest) Validate() *ErrorResponse {
	if r.GoalID == nil {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "goalId is required",
		}
	}
	return nil
}

// ConsentRequest is the payload for POST /visitors/{visitorCode}/consent.
type ConsentRequest struct {
	Consent *bool `json:"consent"`
}

// Validate checks the consent payload.
func (r *ConsentRequest) Validate() *ErrorResponse {
	if r.Consent == nil {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "consent is required",
		}
	}
	return nil
}

// VariationResponse is the body returned by the variation endpoint.
type VariationResponse struct {
	FeatureKey   string `json:"feature_key"`
	VisitorCode  string `json:"visitor_code"`
	VariationKey string `json:"variation_key"`
}

// ActiveResponse is the body returned by the active endpoint.
type ActiveResponse struct {
	FeatureKey  string `json:"feature_key"`
	VisitorCode string `json:"visitor_code"`
	Active      bool   `json:"active"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}
