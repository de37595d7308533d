//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/testutil"
)

// incidentEnvelope unwraps the {"data": ...} success envelope.
type incidentEnvelope struct {
	Data domain.SecurityIncident `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type incidentOption func(map[string]interface{})

func withSeverity(severity string) incidentOption {
	return func(m map[string]interface{}) {
		m["severity"] = severity
	}
}

func withType(incType string) incidentOption {
	return func(m map[string]interface{}) {
		m["type"] = incType
	}
}

func withAffected(users, resources []string) incidentOption {
	return func(m map[string]interface{}) {
		m["affected_users"] = users
		m["affected_resources"] = resources
	}
}

// createTestIncident creates an incident over the API and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, title string, opts ...incidentOption) domain.SecurityIncident {
	t.Helper()

	payload := map[string]interface{}{
		"title":    title,
		"type":     "unauthorized_access",
		"severity": "medium",
		"source":   "threat_detection",
	}
	for _, opt := range opts {
		opt(payload)
	}

	resp, err := client.POST("/api/v1/incidents", payload)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result incidentEnvelope
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data
}

// getIncident fetches an incident by ID.
func getIncident(t *testing.T, client *testutil.Client, id string) domain.SecurityIncident {
	t.Helper()

	resp, err := client.GET("/api/v1/incidents/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result incidentEnvelope
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// startInvestigation opens the investigation workspace for an incident.
func startInvestigation(t *testing.T, client *testutil.Client, id string) {
	t.Helper()

	resp, err := client.POST("/api/v1/incidents/"+id+"/investigation", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()
}

// advanceStatus walks the incident through the given statuses in order.
func advanceStatus(t *testing.T, client *testutil.Client, id string, statuses ...string) domain.SecurityIncident {
	t.Helper()

	var result incidentEnvelope
	for _, status := range statuses {
		resp, err := client.POST("/api/v1/incidents/"+id+"/status", map[string]interface{}{
			"status": status,
		})
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode, "transition to %s", status)
		testutil.DecodeJSON(t, resp, &result)
	}
	return result.Data
}
