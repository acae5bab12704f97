// VMSBridge - VMS API Gateway Query Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vmsbridge

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/vmsbridge/internal/logging"
	"github.com/tomtom215/vmsbridge/internal/models"
)

// statusOK is the status string of the exporter bodies.
const statusOK = "OK"

// date formats t the way the exporter bodies always have.
func date(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.000000")
}

// GetServerStatus reports that the server is running.
func (h *Handler) GetServerStatus(w http.ResponseWriter, r *http.Request) {
	logging.Ctx(r.Context()).Debug().Msg("Received request for server status")
	writeJSON(w, http.StatusOK, models.ServerStatus{
		Msg:       "Server is running!",
		Status:    statusOK,
		Timestamp: date(h.now()),
	})
}

// ConfigurationInfo lists the gateway and Prometheus locations. Credentials
// embedded in either URL are stripped.
func (h *Handler) ConfigurationInfo(w http.ResponseWriter, r *http.Request) {
	env := map[string]string{}
	if h.config.GraphQLURL != "" {
		env["AIB_URL"] = logging.SanitizeURL(h.config.GraphQLURL)
	}
	if h.config.MetricsURL != "" {
		env["PROMETHEUS_URL"] = logging.SanitizeURL(h.config.MetricsURL)
	}

	writeJSON(w, http.StatusOK, models.ConfigurationInfo{
		Date:         date(h.now()),
		Status:       statusOK,
		EnvVariables: env,
	})
}

// VMSInfo returns the "about" document of the connected VMS.
func (h *Handler) VMSInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.VMSInfo(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Error retrieving VMS information")
		writeJSON(w, http.StatusInternalServerError, models.ExporterError{Detail: "Failed to retrieve VMS information"})
		return
	}

	writeJSON(w, http.StatusOK, models.VMSInfo{
		Date:    date(h.now()),
		Status:  statusOK,
		VMSInfo: info,
	})
}

// CamerasInfo returns the cameras known to the VMS.
func (h *Handler) CamerasInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.Cameras(r.Context())
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Error retrieving cameras information")
		writeJSON(w, http.StatusInternalServerError, models.ExporterError{Detail: "Failed to retrieve cameras information"})
		return
	}

	writeJSON(w, http.StatusOK, models.CamerasInfo{
		Date:        date(h.now()),
		Status:      statusOK,
		CamerasInfo: info,
	})
}
