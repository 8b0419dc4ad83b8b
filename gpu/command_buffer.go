package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// CommandBufferState mirrors the teacher's VulkanCommandBufferState.
type CommandBufferState int

const (
	CommandBufferReady CommandBufferState = iota
	CommandBufferRecording
	CommandBufferInRenderPass
	CommandBufferRecordingEnded
	CommandBufferSubmitted
	CommandBufferNotAllocated
)

// CommandBuffer wraps a primary command buffer, adapted from the
// teacher's VulkanCommandBuffer (corrected: the teacher allocated with
// CommandBufferLevelSecondary when asked for a primary buffer).
type CommandBuffer struct {
	device *Device
	pool   vk.CommandPool

	Handle vk.CommandBuffer
	State  CommandBufferState
}

// AllocatePrimary allocates one primary command buffer from pool.
func AllocatePrimary(device *Device, pool vk.CommandPool) (*CommandBuffer, error) {
	cb := &CommandBuffer{device: device, pool: pool, State: CommandBufferNotAllocated}

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}

	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(device.Logical, &allocInfo, handles); res != vk.Success {
		return nil, fmt.Errorf("gpu: allocating command buffer: %s", ResultString(res))
	}
	cb.Handle = handles[0]
	cb.State = CommandBufferReady
	return cb, nil
}

// Free releases the command buffer back to its pool.
func (cb *CommandBuffer) Free() {
	vk.FreeCommandBuffers(cb.device.Logical, cb.pool, 1, []vk.CommandBuffer{cb.Handle})
	cb.Handle = nil
	cb.State = CommandBufferNotAllocated
}

// Begin starts recording.
func (cb *CommandBuffer) Begin(oneTimeSubmit bool) error {
	info := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	if oneTimeSubmit {
		info.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := vk.BeginCommandBuffer(cb.Handle, &info); res != vk.Success {
		return fmt.Errorf("gpu: beginning command buffer: %s", ResultString(res))
	}
	cb.State = CommandBufferRecording
	return nil
}

// End finishes recording.
func (cb *CommandBuffer) End() error {
	if res := vk.EndCommandBuffer(cb.Handle); res != vk.Success {
		return fmt.Errorf("gpu: ending command buffer: %s", ResultString(res))
	}
	cb.State = CommandBufferRecordingEnded
	return nil
}

// Reset returns the buffer to the Ready state without freeing it.
func (cb *CommandBuffer) Reset() {
	cb.State = CommandBufferReady
}
