//go:build e2e

package e2e_test

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniqueJobID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func TestE2E_SyncRankAndReport(t *testing.T) {
	client := newClient()
	waitForAppReady(t, client, appReadyTimeout)
	jobID := uniqueJobID("e2e-sync")

	status, body := doJSON(t, client, http.MethodPost, "/v1/rankings", map[string]any{
		"job_id":          jobID,
		"job_description": jobDescription,
		"candidates": []any{
			candidate("junior@example.com", 1, "", "python"),
			candidate("senior@example.com", 6, "Bachelor of Science", "python", "aws", "docker"),
		},
	})
	require.Equal(t, http.StatusOK, status, "%#v", body)
	assert.Equal(t, jobID, body["job_id"])

	ranked := rankedCandidates(t, body)
	require.Len(t, ranked, 2)
	assert.Equal(t, "senior@example.com", email(ranked[0]))
	assert.Equal(t, "AUTO_SHORTLIST", decision(ranked[0]))
	assert.NotEqual(t, "AUTO_SHORTLIST", decision(ranked[1]))

	req, err := http.NewRequest(http.MethodGet, baseURL+"/v1/rankings/"+jobID, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/plain")
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	report, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(report), "RANK #1: senior@example.com")
}

func TestE2E_QueuedRank(t *testing.T) {
	client := newClient()
	waitForAppReady(t, client, appReadyTimeout)
	jobID := uniqueJobID("e2e-async")

	status, body := doJSON(t, client, http.MethodPost, "/v1/rank-requests", map[string]any{
		"job_id":          jobID,
		"job_description": jobDescription,
		"candidates":      []any{candidate("queued@example.com", 4, "BSc", "python", "aws")},
	})
	require.Equal(t, http.StatusAccepted, status, "%#v", body)
	assert.Equal(t, "queued", body["status"])

	deadline := time.Now().Add(asyncTimeout)
	for time.Now().Before(deadline) {
		status, body = doJSON(t, client, http.MethodGet, "/v1/rankings/"+jobID, nil)
		if status == http.StatusOK {
			ranked := rankedCandidates(t, body)
			require.Len(t, ranked, 1)
			assert.Equal(t, "queued@example.com", email(ranked[0]))
			return
		}
		require.Equal(t, http.StatusNotFound, status, "%#v", body)
		time.Sleep(2 * time.Second)
	}
	t.Fatalf("ranking %s not stored within %s", jobID, asyncTimeout)
}

func TestE2E_ReevaluateAfterAnswers(t *testing.T) {
	client := newClient()
	waitForAppReady(t, client, appReadyTimeout)
	jobID := uniqueJobID("e2e-reeval")

	status, body := doJSON(t, client, http.MethodPost, "/v1/rankings", map[string]any{
		"job_id":          jobID,
		"job_description": jobDescription,
		"candidates":      []any{candidate("mid@example.com", 2, "BSc", "python", "docker")},
	})
	require.Equal(t, http.StatusOK, status, "%#v", body)
	ranked := rankedCandidates(t, body)
	require.Len(t, ranked, 1)
	if decision(ranked[0]) != "ASK_QUESTIONS" {
		t.Skipf("candidate landed on %s; nothing to re-evaluate", decision(ranked[0]))
	}
	before := ranked[0]["analysis"].(map[string]any)["confidence"].(float64)

	path := "/v1/rankings/" + jobID + "/candidates/" + url.PathEscape("mid@example.com") + "/reevaluate"
	status, body = doJSON(t, client, http.MethodPost, path, map[string]any{
		"questions": []string{"Describe your AWS experience", "How do you ship Python services?"},
		"answers": []string{
			"I ran production workloads on AWS ECS and Lambda for two years",
			"Python services packaged in Docker and deployed through CI pipelines",
		},
	})
	require.Equal(t, http.StatusOK, status, "%#v", body)
	analysis := body["analysis"].(map[string]any)
	assert.GreaterOrEqual(t, analysis["confidence"].(float64), before)
	reasoning := analysis["reasoning"].([]any)
	assert.True(t, strings.HasPrefix(reasoning[len(reasoning)-1].(string), "Re-evaluated after Q&A"))

	// still undecided: a short answer set now rejects
	if analysis["decision"] == "ASK_QUESTIONS" {
		status, body = doJSON(t, client, http.MethodPost, path, map[string]any{
			"questions": []string{"Anything else?"},
			"answers":   []string{"no"},
		})
		require.Equal(t, http.StatusOK, status, "%#v", body)
		assert.Equal(t, "AUTO_REJECT", body["analysis"].(map[string]any)["decision"])
	}
}

func TestE2E_Validation(t *testing.T) {
	client := newClient()
	waitForAppReady(t, client, appReadyTimeout)

	status, body := doJSON(t, client, http.MethodPost, "/v1/rankings", map[string]any{"job_description": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_ARGUMENT", body["error"].(map[string]any)["code"])

	status, _ = doJSON(t, client, http.MethodGet, "/v1/rankings/"+uniqueJobID("missing"), nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = doJSON(t, client, http.MethodPost, "/v1/requirements", map[string]any{"job_description": jobDescription})
	require.Equal(t, http.StatusOK, status)
	assert.ElementsMatch(t, []any{"python", "aws"}, body["required_skills"])
}
