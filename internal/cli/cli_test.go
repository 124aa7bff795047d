package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agenthands/topoclean/internal/drawing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const crossing = `name: cross
entities:
  - handle: a
    kind: line
    vertices: [{x: 0, y: 0}, {x: 10, y: 10}]
  - handle: b
    kind: line
    vertices: [{x: 0, y: 10}, {x: 10, y: 0}]
`

func writeDrawing(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "drawing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("test")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestActions(t *testing.T) {
	out, _, err := run(t, "actions")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 27)
	assert.Contains(t, out, "BreakCrossing")
	assert.Contains(t, out, "report")
}

func TestCheck(t *testing.T) {
	path := writeDrawing(t, crossing)
	out, _, err := run(t, "check", path, "--action", "BreakCrossing")
	require.NoError(t, err)
	assert.Contains(t, out, "a,b")
	assert.Contains(t, out, "BreakCrossing: 1 defects found, 0 fixed, 0 failed")
}

func TestCheck_UnknownAction(t *testing.T) {
	path := writeDrawing(t, crossing)
	_, _, err := run(t, "check", path, "--action", "Teleport")
	assert.Error(t, err)

	_, _, err = run(t, "check", path)
	assert.Error(t, err)
}

func TestFix_WritesOutput(t *testing.T) {
	path := writeDrawing(t, crossing)
	out := filepath.Join(t.TempDir(), "fixed.json")
	_, stderr, err := run(t, "fix", path, "-a", "BreakCrossing", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "1 fixed")

	doc, err := drawing.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "cross", doc.Name)
	assert.Len(t, doc.Entities, 4)
}

func TestClean_ToStdout(t *testing.T) {
	path := writeDrawing(t, crossing)
	out, stderr, err := run(t, "clean", path, "--sequence", "ZeroLength,BreakCrossing")
	require.NoError(t, err)
	assert.Contains(t, stderr, "total:")

	doc, err := drawing.Parse([]byte(out))
	require.NoError(t, err)
	assert.Len(t, doc.Entities, 4)
}

func TestPolygons(t *testing.T) {
	path := writeDrawing(t, `entities:
  - handle: box
    kind: polyline
    closed: true
    vertices: [{x: 0, y: 0}, {x: 0, y: 3}, {x: 3, y: 3}, {x: 3, y: 0}]
  - handle: tail
    kind: line
    vertices: [{x: 3, y: 0}, {x: 5, y: 0}]
`)
	out, _, err := run(t, "polygons", path)
	require.NoError(t, err)
	assert.Contains(t, out, "face 1\tarea 9\tbox")
	assert.Contains(t, out, "dangling\ttail")

	out, _, err = run(t, "polygons", path, "--create", "--layer", "parcels")
	require.NoError(t, err)
	doc, err := drawing.Parse([]byte(out))
	require.NoError(t, err)
	require.Len(t, doc.Entities, 3)
	assert.Equal(t, "parcels", doc.Entities[2].Layer)
}

func TestConfigFlag(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[actions.BreakCrossing]\nenabled = false\n"), 0o600))
	path := writeDrawing(t, crossing)

	_, _, err := run(t, "--config", cfg, "check", path, "-a", "BreakCrossing")
	assert.Error(t, err)
}
