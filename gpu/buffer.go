package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Buffer is a realized backing buffer for a BufferAttachment (spec C5).
// Unlike images, a buffer has no per-Def/Use views: every def and use for
// every live range resolves to the same Buffer.
type Buffer struct {
	device *Device

	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   uint64
	Usage  vk.BufferUsageFlags
}

// CreateBuffer realizes a device-local buffer with sharing mode exclusive,
// per spec §4.5. The teacher never finished buffer creation (only
// VulkanBuffer's field layout existed); this follows the same
// create-query-allocate-bind sequence CreateImage uses.
func CreateBuffer(device *Device, size uint64, usage vk.BufferUsageFlags) (*Buffer, error) {
	buf := &Buffer{device: device, Size: size, Usage: usage}

	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}

	err := device.Locks.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(device.Logical, &createInfo, device.Allocator, &buf.Handle); res != vk.Success {
			return fmt.Errorf("gpu: creating buffer: %s", ResultString(res))
		}

		var requirements vk.MemoryRequirements
		vk.GetBufferMemoryRequirements(device.Logical, buf.Handle, &requirements)
		requirements.Deref()

		memType, err := device.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			return fmt.Errorf("gpu: buffer memory type: %w", err)
		}

		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: uint32(memType),
		}
		if res := vk.AllocateMemory(device.Logical, &allocInfo, device.Allocator, &buf.Memory); res != vk.Success {
			return fmt.Errorf("gpu: allocating buffer memory: %s", ResultString(res))
		}
		if res := vk.BindBufferMemory(device.Logical, buf.Handle, buf.Memory, 0); res != vk.Success {
			return fmt.Errorf("gpu: binding buffer memory: %s", ResultString(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// Destroy releases the buffer and its backing memory.
func (b *Buffer) Destroy() {
	if b.Handle != nil {
		vk.DestroyBuffer(b.device.Logical, b.Handle, b.device.Allocator)
		b.Handle = nil
	}
	if b.Memory != nil {
		vk.FreeMemory(b.device.Logical, b.Memory, b.device.Allocator)
		b.Memory = nil
	}
}
