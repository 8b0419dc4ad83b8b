// Package gpu is a thin object wrapper over a Vulkan-style GPU API
// (github.com/goki/vulkan), adapted from the teacher's
// engine/renderer/vulkan package. It is the external collaborator
// spec.md §6 names but does not itself specify: the render graph compiler
// in package rendergraph is built against the interfaces here.
package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendergraph/engine/core"
)

// QueueFamily identifies one of the device's capability-grouped queues.
// The render graph's batch partitioner (C6) assigns every pass to one of
// these.
type QueueFamily int

const (
	FamilyGraphics QueueFamily = iota
	FamilyCompute
	FamilyTransfer
)

func (f QueueFamily) String() string {
	switch f {
	case FamilyGraphics:
		return "graphics"
	case FamilyCompute:
		return "compute"
	case FamilyTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Device wraps a logical device, its allocator, and its queue families.
// It is held by the Engine and shared by every RenderGraph built against
// it (spec §5's "Shared-resource policy").
type Device struct {
	Instance       vk.Instance
	PhysicalDevice vk.PhysicalDevice
	Logical        vk.Device
	Allocator      *vk.AllocationCallbacks

	FamilyIndex map[QueueFamily]uint32
	Queue       map[QueueFamily]vk.Queue

	Memory vk.PhysicalDeviceMemoryProperties

	Locks *LockPool
}

// FindMemoryIndex mirrors the teacher's VulkanContext.FindMemoryIndex.
func (d *Device) FindMemoryIndex(typeBits uint32, propertyFlags vk.MemoryPropertyFlags) (int32, error) {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		d.Memory.MemoryTypes[i].Deref()
		if (typeBits&(1<<i)) != 0 && (d.Memory.MemoryTypes[i].PropertyFlags&propertyFlags) == propertyFlags {
			return int32(i), nil
		}
	}
	return -1, fmt.Errorf("no memory type satisfies type bits %#x with flags %v", typeBits, propertyFlags)
}

// QueueFamilyIndex returns the family index assigned to family, falling
// back to the graphics family if family was never populated (single-queue
// devices collapse every family onto graphics).
func (d *Device) QueueFamilyIndex(family QueueFamily) uint32 {
	if idx, ok := d.FamilyIndex[family]; ok {
		return idx
	}
	core.LogWarn("gpu: no distinct %s queue family, falling back to graphics", family)
	return d.FamilyIndex[FamilyGraphics]
}

// CommandPoolSet owns one vk.CommandPool per distinct queue family index
// a batch needs, mirroring RenderGraphImpl.hpp's m_commandPools — so the
// recorder never allocates a command buffer from the wrong family's pool.
type CommandPoolSet struct {
	device *Device
	pools  map[uint32]vk.CommandPool
}

// NewCommandPoolSet builds an empty set bound to device.
func NewCommandPoolSet(device *Device) *CommandPoolSet {
	return &CommandPoolSet{device: device, pools: make(map[uint32]vk.CommandPool)}
}

// PoolFor lazily creates (or returns) the pool for familyIndex.
func (s *CommandPoolSet) PoolFor(familyIndex uint32) (vk.CommandPool, error) {
	if pool, ok := s.pools[familyIndex]; ok {
		return pool, nil
	}
	info := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: familyIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(s.device.Logical, &info, s.device.Allocator, &pool); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating command pool for family %d: %s", familyIndex, ResultString(res))
	}
	s.pools[familyIndex] = pool
	return pool, nil
}

// Destroy releases every pool the set created.
func (s *CommandPoolSet) Destroy() {
	for idx, pool := range s.pools {
		vk.DestroyCommandPool(s.device.Logical, pool, s.device.Allocator)
		delete(s.pools, idx)
	}
}
