package evalapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/verdandi/errs"
)

// handleListFlags processes GET /api/v1/flags.
func (a *API) handleListFlags(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string][]string{"flags": a.client.GetFeatureList()})
}

// handleGetVariation processes GET /api/v1/flags/{key}/variation.
func (a *API) handleGetVariation(w http.ResponseWriter, r *http.Request) {
	featureKey := chi.URLParam(r, "key")
	visitorCode := r.URL.Query().Get("visitorCode")

	variationKey, err := a.client.GetFeatureVariationKey(visitorCode, featureKey)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, VariationResponse{
		FeatureKey:   featureKey,
		VisitorCode:  visitorCode,
		VariationKey: variationKey,
	})
}

// handleIsActive processes GET /api/v1/flags/{key}/active.
func (a *API) handleIsActive(w http.ResponseWriter, r *http.Request) {
	featureKey := chi.URLParam(r, "key")
	visitorCode := r.URL.Query().Get("visitorCode")

	active, err := a.client.IsFeatureActive(visitorCode, featureKey)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ActiveResponse{
		FeatureKey:  featureKey,
		VisitorCode: visitorCode,
		Active:      active,
	})
}

// handleGetVariables processes GET /api/v1/flags/{key}/variables.
func (a *API) handleGetVariables(w http.ResponseWriter, r *http.Request) {
	featureKey := chi.URLParam(r, "key")
	variationKey := r.URL.Query().Get("variationKey")

	variables, err := a.client.GetFeatureVariationVariables(featureKey, variationKey)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, variables)
}

// handleGetVariable processes GET /api/v1/flags/{key}/variables/{variableKey}.
func (a *API) handleGetVariable(w http.ResponseWriter, r *http.Request) {
	featureKey := chi.URLParam(r, "key")
	variableKey := chi.URLParam(r, "variableKey")
	visitorCode := r.URL.Query().Get("visitorCode")

	value, err := a.client.GetFeatureVariable(visitorCode, featureKey, variableKey)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"value": value})
}

// handleActiveFeatures processes GET /api/v1/visitors/{visitorCode}/flags.
func (a *API) handleActiveFeatures(w http.ResponseWriter, r *http.Request) {
	visitorCode := chi.URLParam(r, "visitorCode")

	features, err := a.client.GetActiveFeatures(visitorCode)
	if err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, features)
}

// handleAddData processes POST /api/v1/visitors/{visitorCode}/data.
func (a *API) handleAddData(w http.ResponseWriter, r *http.Request) {
	visitorCode := chi.URLParam(r, "visitorCode")

	var req AddDataRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.renderBadJSON(w, r, err)
		return
	}
	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.client.AddData(visitorCode, req.Items()...); err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// handleTrackConversion processes POST /api/v1/visitors/{visitorCode}/conversion.
func (a *API) handleTrackConversion(w http.ResponseWriter, r *http.Request) {
	visitorCode := chi.URLParam(r, "visitorCode")

	var req TrackConversionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.renderBadJSON(w, r, err)
		return
	}
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.client.TrackConversion(visitorCode, *req.GoalID, req.Revenue); err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// handleSetConsent processes POST /api/v1/visitors/{visitorCode}/consent.
func (a *API) handleSetConsent(w http.ResponseWriter, r *http.Request) {
	visitorCode := chi.URLParam(r, "visitorCode")

	var req ConsentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		a.renderBadJSON(w, r, err)
		return
	}
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	if err := a.client.SetLegalConsent(visitorCode, *req.Consent); err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// handleFlush processes POST /api/v1/visitors/{visitorCode}/flush.
// The instant query parameter forces a synchronous delivery.
func (a *API) handleFlush(w http.ResponseWriter, r *http.Request) {
	visitorCode := chi.URLParam(r, "visitorCode")
	instant, _ := strconv.ParseBool(r.URL.Query().Get("instant"))

	if err := a.client.FlushVisitor(r.Context(), visitorCode, instant); err != nil {
		a.renderError(w, r, err)
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

func (a *API) renderBadJSON(w http.ResponseWriter, r *http.Request, err error) {
	a.logger.Warn("invalid json payload", slog.String("error", err.Error()))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INVALID_JSON",
		Message: "Invalid JSON payload: " + err.Error(),
	})
}

// renderError maps evaluation errors to HTTP statuses. Client mistakes map
// to 4xx, anything unrecognized is a 500 without leaking internals.
func (a *API) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidCode *errs.VisitorCodeInvalidError
		notFound    *errs.FeatureNotFoundError
		envDisabled *errs.FeatureEnvironmentDisabledError
		noVariation *errs.FeatureVariationNotFoundError
		noVariable  *errs.FeatureVariableNotFoundError
	)
	switch {
	case errors.As(err, &invalidCode):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{Code: "ERR_INVALID_VISITOR_CODE", Message: err.Error()})
	case errors.As(err, &notFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: "ERR_FEATURE_NOT_FOUND", Message: err.Error()})
	case errors.As(err, &envDisabled):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: "ERR_FEATURE_DISABLED", Message: err.Error()})
	case errors.As(err, &noVariation):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: "ERR_VARIATION_NOT_FOUND", Message: err.Error()})
	case errors.As(err, &noVariable):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{Code: "ERR_VARIABLE_NOT_FOUND", Message: err.Error()})
	default:
		a.logger.Error("evaluation request failed", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{Code: "ERR_INTERNAL", Message: "Internal error"})
	}
}
