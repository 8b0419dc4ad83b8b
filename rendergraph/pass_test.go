package rendergraph

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/gpu"
)

func colorInfo() ImageRefInfo {
	return ImageRefInfo{
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ViewShape:  gpu.View2D,
		LayerCount: 1,
		Format:     vk.FormatR8g8b8a8Unorm,
	}
}

func depthInfo() ImageRefInfo {
	return ImageRefInfo{
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		ViewShape:  gpu.View2D,
		LayerCount: 1,
		Format:     vk.FormatD32Sfloat,
	}
}

func TestPass_DuplicateRefRejected(t *testing.T) {
	g := Create(nil)
	att := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewRenderPass("draw")
	ref := NewFramebufferImageRef(DirDef, att, colorInfo(), 0)

	if err := p.AddDef(ref); err != nil {
		t.Fatalf("first AddDef: %v", err)
	}
	err := p.AddDef(ref)
	if err == nil {
		t.Fatalf("expected error registering the same ref twice")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrDoubleDef {
		t.Fatalf("expected ErrDoubleDef, got %v", err)
	}
}

func TestRenderPass_RejectsBufferDef(t *testing.T) {
	g := Create(nil)
	buf := g.CreateNewBufferAttachment("ubo", BufferAttachmentCreateInfo{Size: 256})
	p := NewRenderPass("draw")
	ref := NewBufferRef(DirDef, buf, BufferRefInfo{Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), Size: 256}, vk.DescriptorTypeUniformBuffer)

	err := p.AddDef(ref)
	if err == nil {
		t.Fatalf("expected buffer def in a RenderPass to be rejected")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrRenderPassInvalidDef {
		t.Fatalf("expected ErrRenderPassInvalidDef, got %v", err)
	}
}

func TestRenderPass_RejectsSecondDepthAttachment(t *testing.T) {
	g := Create(nil)
	d1 := g.CreateNewImageAttachment("depth1", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatD32Sfloat})
	d2 := g.CreateNewImageAttachment("depth2", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatD32Sfloat})
	p := NewRenderPass("draw")

	if err := p.AddDef(NewFramebufferImageRef(DirDef, d1, depthInfo(), 0)); err != nil {
		t.Fatalf("first depth def: %v", err)
	}
	err := p.AddDef(NewFramebufferImageRef(DirDef, d2, depthInfo(), 1))
	if err == nil {
		t.Fatalf("expected a second depth attachment to be rejected")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrFramebufferBindingConflict {
		t.Fatalf("expected ErrFramebufferBindingConflict, got %v", err)
	}
}

func TestRenderPass_RejectsDuplicateBinding(t *testing.T) {
	g := Create(nil)
	c1 := g.CreateNewImageAttachment("c1", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	c2 := g.CreateNewImageAttachment("c2", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewRenderPass("draw")

	if err := p.AddDef(NewFramebufferImageRef(DirDef, c1, colorInfo(), 0)); err != nil {
		t.Fatalf("first binding: %v", err)
	}
	err := p.AddDef(NewFramebufferImageRef(DirDef, c2, colorInfo(), 0))
	if err == nil {
		t.Fatalf("expected duplicate binding index to be rejected")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrFramebufferBindingConflict {
		t.Fatalf("expected ErrFramebufferBindingConflict, got %v", err)
	}
}

func TestRenderPass_RejectsNonColorUsageOnColorDef(t *testing.T) {
	g := Create(nil)
	att := g.CreateNewImageAttachment("tex", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewRenderPass("draw")

	info := colorInfo()
	info.Usage = vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	err := p.AddDef(NewFramebufferImageRef(DirDef, att, info, 0))
	if err == nil {
		t.Fatalf("expected a non-color-attachment-usage def to be rejected")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrRenderPassInvalidDef {
		t.Fatalf("expected ErrRenderPassInvalidDef, got %v", err)
	}
}

func TestComputePass_RejectsFramebufferOnlyRef(t *testing.T) {
	g := Create(nil)
	att := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewComputePass("compute")
	ref := NewFramebufferImageRef(DirDef, att, colorInfo(), 0)

	err := p.AddDef(ref)
	if err == nil {
		t.Fatalf("expected a framebuffer-only ref to be rejected in a compute pass")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrIncompatibleView {
		t.Fatalf("expected ErrIncompatibleView, got %v", err)
	}
}

func TestOnSurfacePass_AlwaysRejectsDef(t *testing.T) {
	g := Create(nil)
	att := g.CreateNewImageAttachment("surface", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewOnSurfacePass("present", nil)
	ref := NewFramebufferImageRef(DirDef, att, colorInfo(), 0)

	err := p.AddDef(ref)
	if err == nil {
		t.Fatalf("expected OnSurfacePass to always reject AddDef")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrOnSurfaceDef {
		t.Fatalf("expected ErrOnSurfaceDef, got %v", err)
	}
}
