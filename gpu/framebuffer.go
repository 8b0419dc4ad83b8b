package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// Framebuffer wraps a framebuffer object bound to a RenderPass and a set
// of image views, adapted from the teacher's VulkanFramebuffer.
type Framebuffer struct {
	device *Device

	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	RenderPass  *RenderPass
	colorCount  uint32
}

// CreateFramebuffer builds a framebuffer over renderPass and views, where
// views is color attachments followed by the depth view (if renderPass has
// one) — the same order CreateRenderPass lays attachment descriptions out
// in.
func CreateFramebuffer(device *Device, renderPass *RenderPass, width, height uint32, views []vk.ImageView) (*Framebuffer, error) {
	fb := &Framebuffer{
		device:      device,
		Attachments: append([]vk.ImageView(nil), views...),
		RenderPass:  renderPass,
	}
	fb.colorCount = uint32(len(views))
	if renderPass.HasDepth {
		fb.colorCount--
	}

	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: uint32(len(fb.Attachments)),
		PAttachments:    fb.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	if res := vk.CreateFramebuffer(device.Logical, &info, device.Allocator, &fb.Handle); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating framebuffer: %s", ResultString(res))
	}
	return fb, nil
}

// Destroy releases the framebuffer object (not the views it references).
func (fb *Framebuffer) Destroy() {
	if fb.Handle != nil {
		vk.DestroyFramebuffer(fb.device.Logical, fb.Handle, fb.device.Allocator)
		fb.Handle = nil
	}
	fb.Attachments = nil
}
