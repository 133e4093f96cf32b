package resolver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestStoreCRUD(t *testing.T) {
	store := NewStore(nil)

	snap := &Snapshot{Items: []Item{{}}, ItemIndex: -2}
	store.Put("a", snap)

	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, 0, got.ItemIndex, "Put normalizes before storing")

	store.Put("b", &Snapshot{})
	assert.Equal(t, 2, store.Len())
	assert.ElementsMatch(t, []string{"a", "b"}, store.List())

	assert.True(t, store.Delete("a"))
	assert.False(t, store.Delete("a"))
	assert.Equal(t, 1, store.Len())

	_, ok = store.Get("a")
	assert.False(t, ok)
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "order.json", []byte(
		`{"workflow":{"id":"wf_json","name":"Json Flow","active":true},`+
			`"items":[{"json":{"name":"Ada"}}],"itemIndex":5}`))

	snap, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wf_json", snap.Workflow.ID)
	assert.True(t, snap.Workflow.Active)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Ada", snap.Items[0].JSON["name"])
	assert.Equal(t, 0, snap.ItemIndex, "out-of-range index clamps on load")
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "order.yaml", []byte(
		"workflow:\n  id: wf_yaml\n  name: Yaml Flow\n  active: true\nitems:\n  - json:\n      name: Grace\n"))

	snap, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wf_yaml", snap.Workflow.ID)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Grace", snap.Items[0].JSON["name"])
}

func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "order.toml", []byte(
		"runIndex = 2\n\n[workflow]\nid = \"wf_toml\"\nname = \"Toml Flow\"\nactive = false\n\n[[items]]\n[items.json]\nname = \"Lin\"\n"))

	snap, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wf_toml", snap.Workflow.ID)
	assert.Equal(t, 2, snap.RunIndex)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Lin", snap.Items[0].JSON["name"])
}

func TestLoadFileGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"workflow":{"id":"wf_gz"},"items":[]}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	dir := t.TempDir()
	path := writeFixture(t, dir, "order.json.gz", buf.Bytes())

	snap, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "wf_gz", snap.Workflow.ID)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	path := writeFixture(t, dir, "notes.txt", []byte("hello"))
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "unsupported snapshot format")

	path = writeFixture(t, dir, "broken.json", []byte("{not json"))
	_, err = LoadFile(path)
	assert.ErrorContains(t, err, "parse snapshot")

	_, err = LoadFile(filepath.Join(dir, "absent.json"))
	assert.ErrorContains(t, err, "read snapshot")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "one.json", []byte(`{"items":[{"json":{"n":1}}]}`))
	writeFixture(t, dir, "two.yaml", []byte("items:\n  - json:\n      n: 2\n"))
	writeFixture(t, dir, "broken.json", []byte("{"))
	writeFixture(t, dir, "README.md", []byte("# not a snapshot"))

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFixture(t, sub, "three.json", []byte(`{"items":[]}`))

	store := NewStore(nil)
	n, err := store.LoadDir(dir)
	require.NoError(t, err)

	assert.Equal(t, 3, n, "malformed and unrelated files are skipped")
	assert.ElementsMatch(t, []string{"one", "two", "three"}, store.List())
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = store.Watch(ctx, dir)
	}()

	// Let the watcher register before the first write.
	time.Sleep(50 * time.Millisecond)

	path := writeFixture(t, dir, "live.json", []byte(`{"items":[{"json":{"n":1}}]}`))
	assert.Eventually(t, func() bool {
		_, ok := store.Get("live")
		return ok
	}, 2*time.Second, 10*time.Millisecond, "new file should be picked up")

	require.NoError(t, os.Remove(path))
	assert.Eventually(t, func() bool {
		_, ok := store.Get("live")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "removed file should be dropped")

	cancel()
	<-done
}

func TestSnapshotID(t *testing.T) {
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{"fixtures/order.json", "order", true},
		{"order.yaml", "order", true},
		{"order.yml", "order", true},
		{"order.toml", "order", true},
		{"fixtures/order.json.gz", "order", true},
		{"README.md", "", false},
		{"archive.gz", "", false},
		{"noext", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := snapshotID(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
		})
	}
}
