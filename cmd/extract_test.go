package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadhook/internal/pipeline"
)

const leadPayload = `{"sender":"leads@forwarder.example","subject":"Fwd: request","body-plain":"Name: John Smith\nPhone: (555) 123-4567\nThumbtack wants a quote"}`

func testExtractor() pipeline.Extractor {
	return pipeline.Extractor{Now: func() time.Time { return time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC) }}
}

func TestRunExtract_InlineJSON(t *testing.T) {
	var out bytes.Buffer
	err := runExtract(strings.NewReader(""), &out, nil, leadPayload, "json", testExtractor())
	require.NoError(t, err)

	var res pipeline.EmailResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, pipeline.ShapeMailgun, res.Shape)
	assert.True(t, res.IsLead)
	require.NotNil(t, res.Lead)
	assert.Equal(t, "John Smith", res.Lead.Name)
	assert.Equal(t, "(555) 123-4567", res.Lead.Phone)
}

func TestRunExtract_FileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "email.json")
	require.NoError(t, os.WriteFile(path, []byte(leadPayload), 0o644))

	var out bytes.Buffer
	err := runExtract(strings.NewReader(""), &out, []string{path}, "", "yaml", testExtractor())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "mailgun", doc["shape"])
	assert.Equal(t, true, doc["is_lead"])
	lead := doc["lead"].(map[string]any)
	assert.Equal(t, "John Smith", lead["name"])
}

func TestRunExtract_Stdin(t *testing.T) {
	var out bytes.Buffer
	err := runExtract(strings.NewReader(`{"from":"a@example.com","subject":"hi","text":"nothing here"}`), &out, []string{"-"}, "", "json", testExtractor())
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"is_lead": false`)
}

func TestRunExtract_Errors(t *testing.T) {
	var out bytes.Buffer

	err := runExtract(strings.NewReader(""), &out, nil, `{bad`, "json", testExtractor())
	assert.Error(t, err)

	err = runExtract(strings.NewReader(""), &out, nil, `null`, "json", testExtractor())
	assert.Error(t, err)

	err = runExtract(strings.NewReader(""), &out, []string{"/does/not/exist.json"}, "", "json", testExtractor())
	assert.Error(t, err)

	err = runExtract(strings.NewReader(""), &out, nil, leadPayload, "xml", testExtractor())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestRunTransform(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	var out bytes.Buffer
	err := runTransform(strings.NewReader(""), &out, nil, `{"leadId":"tt-1","customerFirstName":"Jane","budgetMin":"$1,200"}`, now)
	require.NoError(t, err)

	var lead map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &lead))
	assert.Equal(t, "thumbtack_zapier", lead["lead_source"])
	assert.Equal(t, "tt-1", lead["external_lead_id"])
	assert.Equal(t, "Jane", lead["customer"].(map[string]any)["first_name"])
	assert.InDelta(t, 1200.0, lead["service_request"].(map[string]any)["budget_min"], 0.001)
	assert.Nil(t, lead["service_request"].(map[string]any)["budget_max"])
}
