//go:build e2e

// Package e2e_test drives a running server and worker over HTTP. Start the
// stack first, then run: go test -tags e2e ./test/e2e/...
package e2e_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var baseURL = getenv("E2E_BASE_URL", "http://localhost:8080")

const (
	httpTimeout     = 15 * time.Second
	appReadyTimeout = 60 * time.Second
	asyncTimeout    = 90 * time.Second
)

const jobDescription = `Position: Backend Engineer
Required:
- Python, AWS
- 3+ years of experience
Nice to have:
- Docker
Bachelor's degree required`

// getenv returns the value of the environment variable k or def if empty.
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newClient() *http.Client { return &http.Client{Timeout: httpTimeout} }

// waitForAppReady polls /readyz until every dependency answers.
func waitForAppReady(t *testing.T, client *http.Client, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(baseURL + "/readyz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(time.Second)
	}
	t.Fatalf("app not ready after %s", timeout)
}

// doJSON sends body as JSON and decodes the reply. 429s are retried briefly.
func doJSON(t *testing.T, client *http.Client, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var raw []byte
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		raw = b
	}
	for i := 0; ; i++ {
		req, err := http.NewRequest(method, baseURL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		resp, err := client.Do(req)
		require.NoError(t, err)
		b, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests && i < 5 {
			time.Sleep(2 * time.Second)
			continue
		}
		var out map[string]any
		if len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &out), "body: %s", b)
		}
		return resp.StatusCode, out
	}
}

func candidate(email string, years float64, degree string, skills ...string) map[string]any {
	c := map[string]any{
		"contact":                map[string]any{"name": email, "email": email, "phone": "+1 555 0100"},
		"skills":                 map[string]any{"general": skills},
		"total_experience_years": years,
		"experience":             []map[string]any{{"title": "Engineer", "company": "Acme", "years": years}},
	}
	if degree != "" {
		c["education"] = []map[string]any{{"degree": degree, "institution": "State University"}}
	}
	return c
}

func rankedCandidates(t *testing.T, body map[string]any) []map[string]any {
	t.Helper()
	list, ok := body["candidates"].([]any)
	require.True(t, ok, "candidates missing: %#v", body)
	out := make([]map[string]any, 0, len(list))
	for _, c := range list {
		out = append(out, c.(map[string]any))
	}
	return out
}

func email(c map[string]any) string {
	return c["profile"].(map[string]any)["contact"].(map[string]any)["email"].(string)
}

func decision(c map[string]any) string {
	return c["analysis"].(map[string]any)["decision"].(string)
}
