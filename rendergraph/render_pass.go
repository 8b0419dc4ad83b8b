package rendergraph

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// NewRenderPass builds a user-declared graphics pass. Defs must be
// framebuffer-bound, at most one may be a depth attachment, and binding
// indices must be unique within the pass (spec §4.2, grounded on
// original_source/include/RE/RenderPass.hpp's onAddDefHook).
func NewRenderPass(name string) *Pass {
	return newPass(name, PassRender)
}

func (p *Pass) validateRenderPassDef(ref *AttachmentRef) error {
	if ref.IsBuffer() {
		return newErr(ErrRenderPassInvalidDef, p.Name, attachmentName(ref.Attachment), "buffers cannot be defined in a RenderPass")
	}
	if ref.Framebuffer == nil {
		return newErr(ErrRenderPassInvalidDef, p.Name, attachmentName(ref.Attachment), "RenderPass defs must be framebuffer-bound")
	}
	if p.bindings[ref.Framebuffer.Binding] {
		return newErr(ErrFramebufferBindingConflict, p.Name, attachmentName(ref.Attachment),
			"binding %d already bound in this pass", ref.Framebuffer.Binding)
	}
	if isDepthRef(ref) {
		if p.depthBound {
			return newErr(ErrFramebufferBindingConflict, p.Name, attachmentName(ref.Attachment),
				"a RenderPass may bind at most one depth attachment")
		}
		p.depthBound = true
	} else if ref.Image.Usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) == 0 {
		return newErr(ErrRenderPassInvalidDef, p.Name, attachmentName(ref.Attachment),
			"non-depth framebuffer defs must carry ImageUsageColorAttachmentBit")
	}
	p.bindings[ref.Framebuffer.Binding] = true
	return nil
}

func isDepthRef(ref *AttachmentRef) bool {
	if ref.Image == nil {
		return false
	}
	return gpu.IsDepthFormat(ref.Image.Format) &&
		ref.Image.Usage&vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit) != 0
}
