//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentineldesk/responder/internal/domain"
	"github.com/sentineldesk/responder/internal/testutil"
)

func TestStartInvestigation(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Unexpected admin grant")

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/investigation", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data domain.Investigation `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, inc.ID, result.Data.IncidentID)
	assert.Equal(t, "bob", result.Data.Investigator)

	// Starting an investigation moves an OPEN incident to INVESTIGATING
	// and records the investigator on the team.
	got := getIncident(t, client, inc.ID)
	assert.Equal(t, domain.StatusInvestigating, got.Status)
	require.NotEmpty(t, got.Team)
	assert.Equal(t, "bob", got.Team[0].UserID)

	// Fetching it back returns the same workspace.
	resp, err = client.GET("/api/v1/incidents/" + inc.ID + "/investigation")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, inc.ID, result.Data.IncidentID)
}

func TestInvestigationNotStarted(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Unreviewed alert")

	resp, err := client.GET("/api/v1/incidents/" + inc.ID + "/investigation")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAddFindingStampsRootCause(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Service account abuse")
	startInvestigation(t, client, inc.ID)

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/investigation/findings", map[string]interface{}{
		"type":        "root_cause",
		"description": "leaked deploy token reused from CI logs",
		"confidence":  "high",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data domain.Finding `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, domain.FindingRootCause, result.Data.Type)
	assert.Equal(t, "bob", result.Data.AddedBy)

	// High-confidence root cause lands in incident metadata.
	got := getIncident(t, client, inc.ID)
	assert.Equal(t, "leaked deploy token reused from CI logs", got.Metadata["root_cause"])

	last := got.Timeline[len(got.Timeline)-1]
	assert.Equal(t, domain.TimelineFindingAdded, last.Type)
}

func TestAddFindingValidation(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Odd DNS queries")
	startInvestigation(t, client, inc.ID)

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/investigation/findings", map[string]interface{}{
		"type":        "root_cause",
		"description": "something",
		"confidence":  "absolute",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestAddHypothesis(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Repeated MFA pushes")
	startInvestigation(t, client, inc.ID)

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/investigation/hypotheses", map[string]interface{}{
		"description": "MFA fatigue attack against on-call engineer",
		"supporting":  []string{"push volume spike"},
		"probability": 70,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data domain.Hypothesis `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, domain.HypothesisProposed, result.Data.Status)
	assert.Equal(t, 70, result.Data.Probability)

	// Probability outside 0..100 is rejected by request validation.
	resp, err = client.POST("/api/v1/incidents/"+inc.ID+"/investigation/hypotheses", map[string]interface{}{
		"description": "impossible theory",
		"probability": 140,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestForensicEventsAndRecommendations(t *testing.T) {
	client := testClient.As("bob")
	inc := createTestIncident(t, client, "Workstation beaconing")
	startInvestigation(t, client, inc.ID)

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/investigation/forensic-events", map[string]interface{}{
		"source":      "edr",
		"description": "powershell spawned from outlook.exe",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.POST("/api/v1/incidents/"+inc.ID+"/investigation/recommendations", map[string]interface{}{
		"recommendation": "block office macro execution by default",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = client.GET("/api/v1/incidents/" + inc.ID + "/investigation")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data domain.Investigation `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.Len(t, result.Data.ForensicEvents, 1)
	assert.Equal(t, "edr", result.Data.ForensicEvents[0].Source)
	assert.Equal(t, "bob", result.Data.ForensicEvents[0].AddedBy)
	require.Len(t, result.Data.Recommendations, 1)
}

func TestCollectAndListEvidence(t *testing.T) {
	client := testClient.As("carol")
	inc := createTestIncident(t, client, "Exfil over DNS tunnel")
	startInvestigation(t, client, inc.ID)

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/evidence", map[string]interface{}{
		"type":        "network_capture",
		"description": "pcap of tunnel traffic",
		"source":      "sensor-3",
		"location":    "s3://forensics/pcaps/tunnel.pcap",
		"payload":     map[string]interface{}{"packets": 4812, "bytes": 913204},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data domain.Evidence `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Equal(t, domain.EvidenceNetwork, result.Data.Type)
	assert.Equal(t, "carol", result.Data.CollectedBy)
	assert.Len(t, result.Data.Hash, 64)

	// The incident carries the evidence reference and a timeline entry
	// recording the hash.
	got := getIncident(t, client, inc.ID)
	assert.Contains(t, got.EvidenceIDs, result.Data.ID)
	last := got.Timeline[len(got.Timeline)-1]
	assert.Equal(t, domain.TimelineEvidenceCollected, last.Type)
	assert.Equal(t, result.Data.Hash, last.Details["hash"])

	// The open investigation gains a forensic artifact whose custody
	// chain starts at collection.
	resp, err = client.GET("/api/v1/incidents/" + inc.ID + "/investigation")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var inv struct {
		Data domain.Investigation `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &inv)
	require.Len(t, inv.Data.Artifacts, 1)
	assert.Equal(t, result.Data.ID, inv.Data.Artifacts[0].EvidenceID)
	require.NotEmpty(t, inv.Data.Artifacts[0].Custody)
	assert.Equal(t, "collected", inv.Data.Artifacts[0].Custody[0].Action)

	resp, err = client.GET("/api/v1/incidents/" + inc.ID + "/evidence")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Data []domain.Evidence `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, result.Data.Hash, list.Data[0].Hash)
}

func TestCollectEvidenceValidation(t *testing.T) {
	client := testClient.As("carol")
	inc := createTestIncident(t, client, "Tampered binary")

	resp, err := client.POST("/api/v1/incidents/"+inc.ID+"/evidence", map[string]interface{}{
		"type":        "hearsay",
		"description": "someone said so",
		"source":      "watercooler",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}
