package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// ColorAttachmentDesc describes one color attachment slot of a raw render
// pass object, generalized from the teacher's single-hardcoded-color-plus-
// optional-depth RenderpassCreate to however many framebuffer defs a
// RenderPass pass (spec §3) declares.
type ColorAttachmentDesc struct {
	Format      vk.Format
	InitLayout  vk.ImageLayout
	FinalLayout vk.ImageLayout
	Clear       bool
}

// RenderPass is the raw GPU render pass object a compiled RenderPass pass
// is bound to. This is distinct from rendergraph.Pass's RenderPass kind:
// this type is the §6 "GPU API consumed" collaborator, not the compiler's
// own pass abstraction.
type RenderPass struct {
	device *Device
	Handle vk.RenderPass

	HasDepth  bool
	DepthDesc ColorAttachmentDesc
}

// CreateRenderPass builds a render pass object with one subpass, N color
// attachments (in binding order) and an optional depth attachment,
// generalizing the teacher's RenderpassCreate (which hardcoded exactly one
// color + optional depth).
func CreateRenderPass(device *Device, colors []ColorAttachmentDesc, depth *ColorAttachmentDesc) (*RenderPass, error) {
	rp := &RenderPass{device: device}

	descs := make([]vk.AttachmentDescription, 0, len(colors)+1)
	colorRefs := make([]vk.AttachmentReference, 0, len(colors))

	for i, c := range colors {
		loadOp := vk.AttachmentLoadOpDontCare
		if c.Clear {
			loadOp = vk.AttachmentLoadOpClear
		}
		descs = append(descs, vk.AttachmentDescription{
			Format:         c.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  c.InitLayout,
			FinalLayout:    c.FinalLayout,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}

	if depth != nil {
		rp.HasDepth = true
		rp.DepthDesc = *depth
		loadOp := vk.AttachmentLoadOpDontCare
		if depth.Clear {
			loadOp = vk.AttachmentLoadOpClear
		}
		descs = append(descs, vk.AttachmentDescription{
			Format:         depth.Format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         loadOp,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  depth.InitLayout,
			FinalLayout:    depth.FinalLayout,
		})
		depthRef := vk.AttachmentReference{
			Attachment: uint32(len(colors)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		subpass.PDepthStencilAttachment = &depthRef
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit) | vk.AccessFlags(vk.AccessColorAttachmentWriteBit),
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	if res := vk.CreateRenderPass(device.Logical, &info, device.Allocator, &rp.Handle); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating render pass: %s", ResultString(res))
	}
	return rp, nil
}

// Begin records a render-pass-begin into cmd over the given framebuffer
// and render area, clearing with clearColor/clearDepth/clearStencil when
// the attachment descriptions requested a clear.
func (rp *RenderPass) Begin(cmd *CommandBuffer, fb *Framebuffer, width, height uint32, clearColor [4]float32, clearDepth float32, clearStencil uint32) {
	clearValues := make([]vk.ClearValue, 0, len(fb.Attachments))
	for range fb.colorCount {
		var cv vk.ClearValue
		cv.SetColor(clearColor[:])
		clearValues = append(clearValues, cv)
	}
	if rp.HasDepth {
		var cv vk.ClearValue
		cv.SetDepthStencil(clearDepth, clearStencil)
		clearValues = append(clearValues, cv)
	}

	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd.Handle, &info, vk.SubpassContentsInline)
	cmd.State = CommandBufferInRenderPass
}

// End records a render-pass-end into cmd.
func (rp *RenderPass) End(cmd *CommandBuffer) {
	vk.CmdEndRenderPass(cmd.Handle)
	cmd.State = CommandBufferRecording
}

// Destroy releases the render pass object.
func (rp *RenderPass) Destroy() {
	if rp.Handle != nil {
		vk.DestroyRenderPass(rp.device.Logical, rp.Handle, rp.device.Allocator)
		rp.Handle = nil
	}
}
