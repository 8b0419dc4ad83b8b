package gpu

import "sync"

// LockGroup names a class of device calls that must be serialized against
// each other, adapted from the teacher's VulkanLockPool.
type LockGroup string

const (
	ImageManagement    LockGroup = "image_management"
	BufferManagement   LockGroup = "buffer_management"
	CommandManagement  LockGroup = "command_management"
	SwapchainManage    LockGroup = "swapchain_management"
	SynchronizeManage  LockGroup = "synchronization_management"
	DescriptorManage   LockGroup = "descriptor_management"
)

// LockPool hands out one mutex per LockGroup, lazily created.
type LockPool struct {
	mu    sync.Mutex
	locks map[LockGroup]*sync.Mutex
}

// NewLockPool builds an empty pool.
func NewLockPool() *LockPool {
	return &LockPool{locks: make(map[LockGroup]*sync.Mutex)}
}

func (p *LockPool) lockFor(group LockGroup) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.locks[group]; !ok {
		p.locks[group] = &sync.Mutex{}
	}
	return p.locks[group]
}

// SafeCall serializes fn against every other SafeCall in the same group.
func (p *LockPool) SafeCall(group LockGroup, fn func() error) error {
	l := p.lockFor(group)
	l.Lock()
	defer l.Unlock()
	return fn()
}
