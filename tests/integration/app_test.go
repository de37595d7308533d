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

func TestHealthEndpoints(t *testing.T) {
	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := testClient.GET(path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "OK", testutil.ReadBody(t, resp))
	}
}

func TestVersionEndpoint(t *testing.T) {
	resp, err := testClient.GET("/version")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var info map[string]string
	testutil.DecodeJSON(t, resp, &info)
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "commit")
	assert.Contains(t, info, "build_date")
}

func TestListContainmentActions(t *testing.T) {
	resp, err := testClient.GET("/api/v1/actions")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []string `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	assert.Contains(t, result.Data, "isolate_host")
	assert.Contains(t, result.Data, "block_egress")
	assert.IsNonDecreasing(t, result.Data)
}

func TestListPlaybooks(t *testing.T) {
	resp, err := testClient.GET("/api/v1/playbooks")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []domain.Playbook `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data)

	resp, err = testClient.GET("/api/v1/playbooks/pb-data-breach")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var pb struct {
		Data domain.Playbook `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &pb)
	assert.Equal(t, "pb-data-breach", pb.Data.ID)

	resp, err = testClient.GET("/api/v1/playbooks/pb-nonexistent")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}
