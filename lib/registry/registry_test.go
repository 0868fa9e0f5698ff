package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasksquire/taskbridge/lib/guard"
)

const testTimeout = 200 * time.Millisecond

func TestCreateIssuesDistinctHandles(t *testing.T) {
	r := New[string]()

	var mu sync.Mutex
	handles := map[uint64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h := r.Create("value", nil)
				assert.NotEqual(t, InvalidHandle, h)
				mu.Lock()
				assert.False(t, handles[h], "handle issued twice")
				handles[h] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 800, r.Len())
}

func TestLookup(t *testing.T) {
	r := New[int]()
	h := r.Create(42, nil)

	g, found := r.Lookup(h)
	require.True(t, found)
	require.NoError(t, g.With(testTimeout, "check", func(v int) error {
		assert.Equal(t, 42, v)
		return nil
	}))

	_, found = r.Lookup(InvalidHandle)
	assert.False(t, found)
	_, found = r.Lookup(h + 1)
	assert.False(t, found)
}

func TestRemove(t *testing.T) {
	r := New[string]()
	h := r.Create("payload", nil)

	v, err := r.Remove(h, testTimeout)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
	assert.Zero(t, r.Len())

	// The handle is gone for good.
	_, found := r.Lookup(h)
	assert.False(t, found)
	_, err = r.Remove(h, testTimeout)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestRemovedHandlesAreNeverReissued(t *testing.T) {
	r := New[int]()
	old := r.Create(1, nil)
	_, err := r.Remove(old, testTimeout)
	require.NoError(t, err)

	fresh := r.Create(2, nil)
	assert.NotEqual(t, old, fresh)

	// A call racing with Remove either sees the old guard or nothing,
	// never the new instance.
	_, found := r.Lookup(old)
	assert.False(t, found)
}

func TestRemoveWaitsForHolder(t *testing.T) {
	r := New[int]()
	h := r.Create(7, nil)
	g, found := r.Lookup(h)
	require.True(t, found)

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = g.With(time.Second, "hold", func(int) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	// The entry disappears immediately, the retire itself times out.
	_, err := r.Remove(h, 50*time.Millisecond)
	assert.ErrorIs(t, err, guard.ErrTimeout)
	_, found = r.Lookup(h)
	assert.False(t, found)

	close(release)
}
