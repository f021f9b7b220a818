package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/healthbridge/internal/auth"
)

const observationJSON = `{
	"resourceType": "Observation",
	"id": "obs-1",
	"status": "final",
	"code": {"text": "Heart rate"},
	"valueQuantity": {"value": 72, "unit": "beats/minute"}
}`

func testEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("APP_ENV", "development")
	t.Setenv("HB_PLATFORM", "healthkit")
	t.Setenv("JWT_SIGNING_KEY", "test-secret-key-for-testing-only")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	testEnv(t)

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestDetect(t *testing.T) {
	obs := writeFile(t, "obs.json", observationJSON)
	none := writeFile(t, "none.json", `{"id": "x"}`)

	out, _, err := run(t, "detect", obs, none)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "Observation")
	assert.True(t, strings.HasSuffix(lines[1], "-"))
}

func TestDetect_MissingFile(t *testing.T) {
	_, _, err := run(t, "detect", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParse(t *testing.T) {
	obs := writeFile(t, "obs.json", observationJSON)
	patient := writeFile(t, "patient.json", `{"resourceType": "Patient", "id": "p1"}`)

	out, _, err := run(t, "parse", obs, patient)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)

	var line struct {
		File         string          `json:"file"`
		ResourceType string          `json:"resourceType"`
		ID           string          `json:"id"`
		Resource     json.RawMessage `json:"resource"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &line))
	assert.Equal(t, obs, line.File)
	assert.Equal(t, "Observation", line.ResourceType)
	assert.Equal(t, "obs-1", line.ID)
	assert.Contains(t, string(line.Resource), `"valueQuantity"`)
}

func TestParse_ReportsFailures(t *testing.T) {
	obs := writeFile(t, "obs.json", observationJSON)
	bad := writeFile(t, "bad.json", `{"resourceType": "Observation", "code": {"text": "x"}}`)

	out, errOut, err := run(t, "parse", obs, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 documents failed")
	assert.Contains(t, errOut, bad)
	assert.Contains(t, out, "obs-1")
}

func TestParse_Strict(t *testing.T) {
	doc := writeFile(t, "multi.json", `{
		"resourceType": "Observation",
		"status": "final",
		"code": {"text": "Heart rate"},
		"valueQuantity": {"value": 72},
		"valueString": "72"
	}`)

	_, _, err := run(t, "parse", doc)
	require.NoError(t, err)

	_, errOut, err := run(t, "parse", "--strict", doc)
	require.Error(t, err)
	assert.Contains(t, errOut, "value[x]")
}

func TestBundle(t *testing.T) {
	bundle := writeFile(t, "bundle.json", `{
		"resourceType": "Bundle",
		"type": "collection",
		"entry": [
			{"fullUrl": "urn:uuid:1", "resource": `+observationJSON+`},
			{"fullUrl": "urn:uuid:2", "resource": {"resourceType": "Patient", "id": "p1"}}
		]
	}`)

	out, _, err := run(t, "bundle", bundle)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "obs-1")
	assert.Contains(t, lines[1], "ok")
	assert.Contains(t, lines[2], "Patient")
	assert.Contains(t, lines[2], "skipped")
}

func TestBundle_FailedEntry(t *testing.T) {
	bundle := writeFile(t, "bundle.json", `{
		"resourceType": "Bundle",
		"entry": [{"resource": {"resourceType": "Condition", "code": {"text": "x"}}}]
	}`)

	out, _, err := run(t, "bundle", bundle)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 entries failed")
	assert.Contains(t, out, "error:")
}

func TestBundle_NotABundle(t *testing.T) {
	_, _, err := run(t, "bundle", writeFile(t, "array.json", `[]`))
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	out, _, err := run(t, "capabilities")
	require.NoError(t, err)
	assert.Contains(t, out, "DATA TYPE")
	assert.Regexp(t, `(?m)^heart_rate\s+yes\s+yes$`, out)
	assert.Regexp(t, `(?m)^mindfulness\s+yes\s+yes$`, out)

	out, _, err = run(t, "capabilities", "--platform", "healthconnect")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^mindfulness\s+no\s+no$`, out)
}

func TestCapabilities_JSON(t *testing.T) {
	out, _, err := run(t, "capabilities", "--platform", "healthconnect", "--json")
	require.NoError(t, err)

	var body struct {
		Platform     string `json:"platform"`
		Capabilities map[string]struct {
			CanRead  bool `json:"canRead"`
			CanWrite bool `json:"canWrite"`
		} `json:"capabilities"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "healthconnect", body.Platform)
	assert.True(t, body.Capabilities["heart_rate"].CanRead)
	assert.False(t, body.Capabilities["mindfulness"].CanRead)
}

func TestCapabilities_UnknownPlatform(t *testing.T) {
	_, _, err := run(t, "capabilities", "--platform", "fitbit")
	assert.Error(t, err)
}

func TestToken(t *testing.T) {
	out, errOut, err := run(t, "token", "--subject", "ops@example.com", "--scope", "health:read,health:control", "--ttl", "1h")
	require.NoError(t, err)
	assert.Contains(t, errOut, "health:read health:control")

	claims, err := auth.NewTokenService(auth.Config{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "healthbridge",
		Audience:   "healthbridge-api",
	}).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.True(t, claims.HasScope(auth.ScopeControl))
}

func TestToken_Rejections(t *testing.T) {
	_, _, err := run(t, "token", "--scope", "health:admin")
	assert.ErrorContains(t, err, "unknown scope")

	testEnv(t)
	t.Setenv("JWT_SIGNING_KEY", "")
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token"})
	assert.ErrorContains(t, cmd.Execute(), "JWT_SIGNING_KEY")
}
