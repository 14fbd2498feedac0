package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsEmptyLedger(t *testing.T) {
	ledger := NewHashLedgerRepository(filepath.Join(t.TempDir(), "hashes.json"))
	require.NoError(t, ledger.Load())
	assert.Zero(t, ledger.Len())
	assert.False(t, ledger.Contains("deadbeef"))
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	ledger := NewHashLedgerRepository(path)
	assert.Error(t, ledger.Load())
}

func TestPersistAndReloadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")

	ledger := NewHashLedgerRepository(path)
	require.NoError(t, ledger.Load())
	ledger.Record("abc123", "a.txt")
	ledger.Record("def456", "b.txt")
	require.NoError(t, ledger.Persist())

	reloaded := NewHashLedgerRepository(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 2, reloaded.Len())
	assert.True(t, reloaded.Contains("abc123"))
	source, ok := reloaded.Source("def456")
	require.True(t, ok)
	assert.Equal(t, "b.txt", source)
}

func TestPersistReplacesFileCompletely(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashes.json")

	ledger := NewHashLedgerRepository(path)
	require.NoError(t, ledger.Load())
	ledger.Record("old", "old.txt")
	require.NoError(t, ledger.Persist())

	// 新实例只记录另一个键并落盘，文件内容应被整体替换
	replacement := NewHashLedgerRepository(path)
	replacement.Record("new", "new.txt")
	require.NoError(t, replacement.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	entries := map[string]string{}
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Equal(t, map[string]string{"new": "new.txt"}, entries)
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	ledger := NewHashLedgerRepository(filepath.Join(dir, "hashes.json"))
	ledger.Record("abc", "a.txt")
	require.NoError(t, ledger.Persist())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hashes.json", entries[0].Name())
}

func TestPersistCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "hashes.json")
	ledger := NewHashLedgerRepository(path)
	ledger.Record("abc", "a.txt")
	require.NoError(t, ledger.Persist())

	reloaded := NewHashLedgerRepository(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())
}
