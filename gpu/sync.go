package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Semaphore wraps a binary GPU semaphore, adapted from the teacher's
// ad hoc creation of ImageAvailableSemaphores/QueueCompleteSemaphores in
// backend.go, generalized into a standalone constructor. The swapchain
// binding uses it for its acquire semaphore; the recorder creates no
// semaphores, so Execute batches are not chained by semaphores.
type Semaphore struct {
	device *Device
	Handle vk.Semaphore
}

// CreateSemaphore allocates one binary semaphore.
func CreateSemaphore(device *Device) (*Semaphore, error) {
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	s := &Semaphore{device: device}
	if res := vk.CreateSemaphore(device.Logical, &info, device.Allocator, &s.Handle); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating semaphore: %s", ResultString(res))
	}
	return s, nil
}

// Destroy releases the semaphore.
func (s *Semaphore) Destroy() {
	if s.Handle != nil {
		vk.DestroySemaphore(s.device.Logical, s.Handle, s.device.Allocator)
		s.Handle = nil
	}
}

// Fence wraps a GPU fence, adapted from the teacher's VulkanFence.
type Fence struct {
	device     *Device
	Handle     vk.Fence
	IsSignaled bool
}

// CreateFence allocates a fence, optionally pre-signaled.
func CreateFence(device *Device, createSignaled bool) (*Fence, error) {
	info := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if createSignaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	f := &Fence{device: device, IsSignaled: createSignaled}
	if res := vk.CreateFence(device.Logical, &info, device.Allocator, &f.Handle); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating fence: %s", ResultString(res))
	}
	return f, nil
}

// Wait blocks until the fence is signaled or timeoutNs elapses.
func (f *Fence) Wait(timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(f.device.Logical, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		return fmt.Errorf("gpu: fence wait timed out")
	default:
		return fmt.Errorf("gpu: fence wait failed: %s", ResultString(result))
	}
}

// Reset clears the fence's signaled state.
func (f *Fence) Reset() error {
	if !f.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(f.device.Logical, 1, []vk.Fence{f.Handle}); res != vk.Success {
		return fmt.Errorf("gpu: resetting fence: %s", ResultString(res))
	}
	f.IsSignaled = false
	return nil
}

// Destroy releases the fence.
func (f *Fence) Destroy() {
	if f.Handle != nil {
		vk.DestroyFence(f.device.Logical, f.Handle, f.device.Allocator)
		f.Handle = nil
	}
}
