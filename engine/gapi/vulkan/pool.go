package vulkan

import "sync"

type LockGroup string

const (
	// vkQueueSubmit, vkQueuePresentKHR and vkQueueWaitIdle on a shared queue.
	QueueManagement LockGroup = "queue_management"
	// Device memory pages and the suballocator.
	MemoryManagement LockGroup = "memory_management"
	// Descriptor pools are externally synchronized.
	DescriptorManagement LockGroup = "descriptor_management"
	// Command pool used for one-shot uploads.
	UploadManagement LockGroup = "upload_management"
)

// VulkanLockPool hands out one mutex per group of externally synchronized
// Vulkan objects.
type VulkanLockPool struct {
	locks map[LockGroup]*sync.Mutex
	mu    sync.Mutex
}

func NewVulkanLockPool() *VulkanLockPool {
	return &VulkanLockPool{
		locks: make(map[LockGroup]*sync.Mutex),
	}
}

func (vs *VulkanLockPool) lock(group LockGroup) *sync.Mutex {
	vs.mu.Lock()
	l, exists := vs.locks[group]
	if !exists {
		l = &sync.Mutex{}
		vs.locks[group] = l
	}
	vs.mu.Unlock()

	l.Lock()
	return l
}

// SafeCall runs fn while holding the group's lock.
func (vs *VulkanLockPool) SafeCall(group LockGroup, fn func() error) error {
	l := vs.lock(group)
	defer l.Unlock()

	return fn()
}
