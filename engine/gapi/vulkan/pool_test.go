package vulkan

import (
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestSafeCallSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()
	var wg sync.WaitGroup
	inside, maxInside := 0, 0
	var mu sync.Mutex

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(QueueManagement, func() error {
				mu.Lock()
				inside++
				maxInside = max(maxInside, inside)
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxInside)
}

func TestSafeCallGroupsAreIndependent(t *testing.T) {
	pool := NewVulkanLockPool()
	err := pool.SafeCall(QueueManagement, func() error {
		return pool.SafeCall(MemoryManagement, func() error {
			return errors.New("inner")
		})
	})
	assert.EqualError(t, err, "inner")
}
