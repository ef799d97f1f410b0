package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tibialabs/tibia-houses/internal/observability"
)

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]string{"code": code, "message": message})
}

// respondPipelineError translates a page-level pipeline error into an
// HTTP response. Drift errors get their own code so a monitoring
// dashboard can tell "tibia.com is down" apart from "tibia.com was
// redesigned".
func respondPipelineError(w http.ResponseWriter, err error) {
	switch observability.ClassifyPageError(err) {
	case observability.ErrorUnreachable:
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		respondError(w, status, "UPSTREAM_UNREACHABLE", "could not reach tibia.com")
	case observability.ErrorUpstreamRejected:
		respondError(w, http.StatusBadGateway, "UPSTREAM_REJECTED", err.Error())
	case observability.ErrorBadContentType:
		respondError(w, http.StatusBadGateway, "UPSTREAM_BAD_RESPONSE", err.Error())
	case observability.ErrorMaintenance:
		respondError(w, http.StatusServiceUnavailable, "UPSTREAM_MAINTENANCE", "tibia.com is undergoing maintenance")
	case observability.ErrorNotFound:
		respondError(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", err.Error())
	case observability.ErrorMalformed, observability.ErrorContainerNotFound:
		respondError(w, http.StatusBadGateway, "UPSTREAM_FORMAT_CHANGED", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
