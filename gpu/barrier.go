package gpu

import vk "github.com/goki/vulkan"

// ImageBarrier describes a single image memory barrier, the payload
// a SyncPass carries per spec §3/§4.7.
type ImageBarrier struct {
	Image          *Image
	OldLayout      vk.ImageLayout
	NewLayout      vk.ImageLayout
	SrcAccess      vk.AccessFlags
	DstAccess      vk.AccessFlags
	SrcQueueFamily uint32
	DstQueueFamily uint32
	BaseLayer      uint32
	LayerCount     uint32
}

// BufferBarrier describes a single buffer memory barrier.
type BufferBarrier struct {
	Buffer         *Buffer
	SrcAccess      vk.AccessFlags
	DstAccess      vk.AccessFlags
	SrcQueueFamily uint32
	DstQueueFamily uint32
	Offset         uint64
	Size           uint64
}

// RecordPipelineBarrier issues a single ALL_COMMANDS -> ALL_COMMANDS
// pipeline barrier spanning every accumulated image/buffer barrier, per
// spec §4.7's "SyncPass recording" rule.
func RecordPipelineBarrier(cmd *CommandBuffer, images []ImageBarrier, buffers []BufferBarrier) {
	if len(images) == 0 && len(buffers) == 0 {
		return
	}

	vkImageBarriers := make([]vk.ImageMemoryBarrier, len(images))
	for i, b := range images {
		aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
		if b.Image.IsDepth {
			aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		}
		vkImageBarriers[i] = vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       b.SrcAccess,
			DstAccessMask:       b.DstAccess,
			OldLayout:           b.OldLayout,
			NewLayout:           b.NewLayout,
			SrcQueueFamilyIndex: b.SrcQueueFamily,
			DstQueueFamilyIndex: b.DstQueueFamily,
			Image:               b.Image.Handle,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: b.BaseLayer,
				LayerCount:     b.LayerCount,
			},
		}
	}

	vkBufferBarriers := make([]vk.BufferMemoryBarrier, len(buffers))
	for i, b := range buffers {
		vkBufferBarriers[i] = vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       b.SrcAccess,
			DstAccessMask:       b.DstAccess,
			SrcQueueFamilyIndex: b.SrcQueueFamily,
			DstQueueFamilyIndex: b.DstQueueFamily,
			Buffer:              b.Buffer.Handle,
			Offset:              vk.DeviceSize(b.Offset),
			Size:                vk.DeviceSize(b.Size),
		}
	}

	vk.CmdPipelineBarrier(
		cmd.Handle,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0,
		0, nil,
		uint32(len(vkBufferBarriers)), vkBufferBarriers,
		uint32(len(vkImageBarriers)), vkImageBarriers,
	)
}
