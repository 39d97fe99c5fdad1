package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jurf666/FaaSDocker/pkg/types"
)

func testManagerConfig(name string) types.ManagerConfig {
	return types.ManagerConfig{
		FunctionName:  name,
		ImageName:     "workflow-proxy:latest",
		ContainerPort: 5000,
		CleanInterval: time.Hour,
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(newFakeDriver())
	t.Cleanup(r.StopAll)

	m, existed, err := r.Create(testManagerConfig("matmul"))
	require.NoError(t, err)
	assert.False(t, existed)
	assert.NotNil(t, m)

	got, err := r.Get("matmul")
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(newFakeDriver())
	t.Cleanup(r.StopAll)

	_, err := r.Get("ghost")
	require.ErrorIs(t, err, types.ErrUnknownFunction)
}

func TestRegistryCreateRequiresName(t *testing.T) {
	r := NewRegistry(newFakeDriver())
	t.Cleanup(r.StopAll)

	_, _, err := r.Create(types.ManagerConfig{})
	require.Error(t, err)
}

func TestRegistryIdempotentConcurrentCreate(t *testing.T) {
	r := NewRegistry(newFakeDriver())
	t.Cleanup(r.StopAll)

	const callers = 16
	var created atomic.Int32
	var wg sync.WaitGroup

	managers := make([]*Manager, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, existed, err := r.Create(testManagerConfig("wordcount_count"))
			require.NoError(t, err)
			managers[i] = m
			if !existed {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load(), "exactly one caller creates")
	for _, m := range managers {
		assert.Same(t, managers[0], m, "all callers see the same manager")
	}
}

func TestRegistryStopAll(t *testing.T) {
	driver := newFakeDriver()
	r := NewRegistry(driver)

	for _, name := range []string{"a", "b"} {
		m, _, err := r.Create(testManagerConfig(name))
		require.NoError(t, err)
		m.readinessProbe = func(ctx context.Context, hostPort int) error { return nil }
	}

	r.StopAll()

	_, err := r.Get("a")
	assert.ErrorIs(t, err, types.ErrUnknownFunction)
}
