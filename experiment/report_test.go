package experiment

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportWritesRequiredKeys(t *testing.T) {
	dir := t.TempDir()

	e := sampleExperiment()
	e.EnableMulticast = true
	e.MulticastParam = 2
	e.MulticastMaxWait = 2

	e.Start()
	e.AddCrash("node-1", "node-0")
	e.AddReappearance("node-1", "node-2")
	e.Stop()

	path, err := e.GenerateReport(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "000001.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "000001", decoded["id"])
	assert.Equal(t, float64(17), decoded["seed"])
	assert.Equal(t, float64(0), decoded["repetition"])

	settings, ok := decoded["settings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), settings["number_of_nodes"])
	assert.Equal(t, float64(5000), settings["duration"])
	assert.Equal(t, float64(200), settings["gossip_delta"])
	assert.Equal(t, float64(1200), settings["failure_delta"])
	assert.Equal(t, float64(1200), settings["miss_delta"])
	assert.Equal(t, false, settings["push_pull"])
	assert.Equal(t, float64(1), settings["pick_strategy"])
	assert.Equal(t, true, settings["enable_multicast"])
	assert.Equal(t, float64(2), settings["multicast_parameter"])
	assert.Equal(t, float64(2), settings["multicast_max_wait"])
	assert.NotNil(t, settings["expected_first_multicast"])

	result, ok := decoded["result"].(map[string]any)
	require.True(t, ok)
	assert.Greater(t, result["start_time"], float64(0))
	assert.GreaterOrEqual(t, result["end_time"], result["start_time"])

	expected, ok := result["expected_crashes"].([]any)
	require.True(t, ok)
	require.Len(t, expected, 1)
	crash := expected[0].(map[string]any)
	assert.Equal(t, float64(1000), crash["delta"])
	assert.Equal(t, "node-1", crash["node"])

	reportedCrashes, ok := result["reported_crashes"].([]any)
	require.True(t, ok)
	require.Len(t, reportedCrashes, 1)
	reportedCrash := reportedCrashes[0].(map[string]any)
	assert.Equal(t, "node-1", reportedCrash["node"])
	assert.Equal(t, "node-0", reportedCrash["reporter"])

	reappeared, ok := result["reappeared_nodes"].([]any)
	require.True(t, ok)
	require.Len(t, reappeared, 1)
}

// With multicast disabled its settings serialize as null, the way the
// analysis pipeline expects them.
func TestGenerateReportNullMulticastSettings(t *testing.T) {
	dir := t.TempDir()

	e := sampleExperiment()
	e.Start()
	e.Stop()

	path, err := e.GenerateReport(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	settings := decoded["settings"].(map[string]any)

	assert.Nil(t, settings["multicast_parameter"])
	assert.Nil(t, settings["multicast_max_wait"])
	assert.Nil(t, settings["expected_first_multicast"])

	result := decoded["result"].(map[string]any)
	assert.Empty(t, result["reported_crashes"])
	assert.Empty(t, result["reappeared_nodes"])
}

func TestGenerateReportFailsOnUnwritableDirectory(t *testing.T) {
	e := sampleExperiment()
	e.Start()
	e.Stop()

	_, err := e.GenerateReport(filepath.Join(t.TempDir(), "does", "not", "exist"))

	assert.Error(t, err)
}
