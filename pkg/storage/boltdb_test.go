package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

func newTestStore(t *testing.T) *BoltStore {
	t.Helper()

	store, err := NewBoltStore(filepath.Join(t.TempDir(), "faas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestSaveAndListInvocations(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	for i := 0; i < 3; i++ {
		err := store.SaveInvocation(&types.InvocationRecord{
			Function:     "matmul",
			Container:    fmt.Sprintf("c%d", i),
			Timestamp:    base.Add(time.Duration(i) * time.Second),
			RawMetrics:   types.MetricReport{"cycles": float64(1000 * (i + 1))},
			CleanMetrics: types.MetricReport{"cycles": float64(900 * (i + 1))},
		})
		require.NoError(t, err)
	}

	records, err := store.ListInvocations("matmul", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Newest first
	assert.Equal(t, "c2", records[0].Container)
	assert.Equal(t, "c0", records[2].Container)
	assert.Equal(t, 2700.0, records[0].CleanMetrics["cycles"])
}

func TestListInvocationsLimit(t *testing.T) {
	store := newTestStore(t)

	base := time.Now()
	for i := 0; i < 5; i++ {
		err := store.SaveInvocation(&types.InvocationRecord{
			Function:  "noop",
			Container: fmt.Sprintf("c%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
	}

	records, err := store.ListInvocations("noop", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "c4", records[0].Container)
}

func TestListInvocationsUnknownFunction(t *testing.T) {
	store := newTestStore(t)

	records, err := store.ListInvocations("ghost", 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
