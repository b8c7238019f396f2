package remote

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreSaveAndLoadDescriptors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	descs := []Descriptor{
		{Name: "crm_lookup", Description: "Look up a record", Category: "records",
			InputSchema: json.RawMessage(`{"type":"object"}`)},
		{Name: "send_email", Category: "communication"},
	}
	require.NoError(t, s.SaveDescriptors(ctx, descs))

	loaded, err := s.LoadDescriptors(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	byName := map[string]Descriptor{}
	for _, d := range loaded {
		byName[d.Name] = d
	}
	assert.Equal(t, "Look up a record", byName["crm_lookup"].Description)
	assert.JSONEq(t, `{"type":"object"}`, string(byName["crm_lookup"].InputSchema))
	assert.Equal(t, "communication", byName["send_email"].Category)
}

func TestStoreUpsertKeepsUsageCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDescriptors(ctx, []Descriptor{{Name: "crm_lookup"}}))
	require.NoError(t, s.RecordUsage(ctx, "crm_lookup", true, 20))
	require.NoError(t, s.RecordUsage(ctx, "crm_lookup", false, 40))

	// Re-discovery with an updated description must not reset counters.
	require.NoError(t, s.SaveDescriptors(ctx, []Descriptor{
		{Name: "crm_lookup", Description: "updated"},
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, int64(2), stats[0].UsageCount)
	assert.Equal(t, int64(1), stats[0].SuccessCount)
	assert.Equal(t, int64(30), stats[0].AvgLatencyMs)
}

func TestStoreStatsSkipsUnusedCapabilities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveDescriptors(ctx, []Descriptor{
		{Name: "used"}, {Name: "unused"},
	}))
	require.NoError(t, s.RecordUsage(ctx, "used", true, 5))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "used", stats[0].Name)
}

func TestStoreOpensWithWALJournalMode(t *testing.T) {
	s := newTestStore(t)

	var mode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", strings.ToLower(mode))

	var timeout int
	require.NoError(t, s.db.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}
