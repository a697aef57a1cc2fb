package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDemoCommand(t *testing.T) {
	out, err := execute(t, "demo", "--log-level", "error")
	require.NoError(t, err)

	for _, want := range []string{
		"Id: 5\n",
		"Length: 4\n",
		"Value at 0 is 0\n",
		"Value at 3 is 3\n",
		"Data: [0 2 4 6]\n",
		"Outstanding allocations: 0\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestDemoCommandFlags(t *testing.T) {
	out, err := execute(t, "demo", "--id", "9", "--length", "0", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Id: 9\n")
	assert.Contains(t, out, "Length: 0\n")
	assert.Contains(t, out, "Data: []\n")
	assert.NotContains(t, out, "Value at")
}

func TestDemoCommandMetrics(t *testing.T) {
	out, err := execute(t, "demo", "--metrics", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, out, "# TYPE flexrec_records_allocations_total counter")
	assert.Contains(t, out, "flexrec_records_allocations_total 1")
	assert.Contains(t, out, "flexrec_records_frees_total 1")
	assert.Contains(t, out, "flexrec_records_outstanding 0")
	assert.Contains(t, out, "flexrec_records_peak_bytes_in_use 40")
}

func TestDemoCommandConfigFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yml := "logging:\n  level: error\nmetrics:\n  namespace: custom\n"
	require.NoError(t, os.WriteFile(configPath, []byte(yml), 0600))

	out, err := execute(t, "demo", "--metrics", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "custom_records_allocations_total 1")
}

func TestRootCommandRejectsBadOverrides(t *testing.T) {
	_, err := execute(t, "demo", "--allocator", "slab")
	assert.ErrorContains(t, err, `invalid allocator "slab"`)

	_, err = execute(t, "demo", "--log-level", "loud")
	assert.ErrorContains(t, err, "invalid logging level")

	_, err = execute(t, "demo", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config file does not exist")
}

func TestLayoutCommand(t *testing.T) {
	out, err := execute(t, "layout", "--elem-size", "8", "--elem-align", "8", "--length", "4")
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"size:   40",
		"align:  8",
		"id:     offset 0",
		"length: offset 4",
		"data:   offset 8, 4 x 8 bytes",
		"tail padding: 0",
		"",
	}, "\n"), out)
}

func TestLayoutCommandFieldValue(t *testing.T) {
	out, err := execute(t, "layout", "--field-value", "--length", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "size:   16\n")
	assert.Contains(t, out, "data:   offset 8, 1 x 8 bytes\n")
}

func TestLayoutCommandPadding(t *testing.T) {
	out, err := execute(t, "layout", "--elem-size", "1", "--elem-align", "1", "--length", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "size:   12\n")
	assert.Contains(t, out, "tail padding: 3\n")
}

func TestLayoutCommandErrors(t *testing.T) {
	_, err := execute(t, "layout", "--elem-align", "3")
	assert.ErrorContains(t, err, "alignment")
}
