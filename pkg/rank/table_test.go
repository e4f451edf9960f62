package rank

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDefaultTableParses(t *testing.T) {
	tbl := DefaultTable()
	assert.NotEmpty(t, tbl.TrackingParams())
	assert.Contains(t, tbl.TrackingParams(), "utm_*")
}

func TestSourceWatchReloads(t *testing.T) {
	path := t.TempDir() + "/table.yaml"
	writeFile(t, path, "engine_trust: {custom: 0.10}\n")

	initial, err := LoadTable(path)
	require.NoError(t, err)

	src := NewSource(initial)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Watch(ctx, path))

	writeFile(t, path, "engine_trust: {custom: 0.99}\n")

	assert.Eventually(t, func() bool {
		return src.Table().EngineTrust("custom") == 0.99
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSourceWatchKeepsTableOnBadUpdate(t *testing.T) {
	path := t.TempDir() + "/table.yaml"
	writeFile(t, path, "engine_trust: {custom: 0.10}\n")

	initial, err := LoadTable(path)
	require.NoError(t, err)

	src := NewSource(initial)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, src.Watch(ctx, path))

	writeFile(t, path, "engine_trust: [broken")

	// Give the watcher a moment; the table must stay intact.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0.10, src.Table().EngineTrust("custom"))
}
