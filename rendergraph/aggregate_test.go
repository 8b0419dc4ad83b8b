package rendergraph

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/gpu"
)

func compileThroughAggregate(t *testing.T, g *RenderGraph) error {
	t.Helper()
	if err := g.analyzeLiveness(); err != nil {
		return err
	}
	return g.aggregateUsage()
}

func TestAggregateUsage_FormatMismatchRejected(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	draw := NewRenderPass("draw")
	mustAddDef(t, draw, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw)

	post := NewComputePass("post")
	mismatched := colorInfo()
	mismatched.Format = vk.FormatR8g8b8a8Srgb
	mustAddUse(t, post, NewDescriptorImageRef(DirUse, color, mismatched, vk.DescriptorTypeStorageImage))
	g.AddPass(post)

	err := compileThroughAggregate(t, g)
	if err == nil {
		t.Fatalf("expected FormatMismatch error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrFormatMismatch {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestAggregateUsage_FormatMatchAccepted(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	draw := NewRenderPass("draw")
	mustAddDef(t, draw, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw)

	post := NewComputePass("post")
	mustAddUse(t, post, NewDescriptorImageRef(DirUse, color, colorInfo(), vk.DescriptorTypeStorageImage))
	g.AddPass(post)

	if err := compileThroughAggregate(t, g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TestAggregateUsage_DefAndUseAgreeButDisagreeWithAttachmentFormatRejected
// pins the fix to checkFormatMatch: a def and use that agree with each
// other (both Srgb) must still be rejected because the attachment itself
// was declared Unorm. The old def-vs-use comparison missed exactly this
// case.
func TestAggregateUsage_DefAndUseAgreeButDisagreeWithAttachmentFormatRejected(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	srgb := colorInfo()
	srgb.Format = vk.FormatR8g8b8a8Srgb

	draw := NewRenderPass("draw")
	mustAddDef(t, draw, NewFramebufferImageRef(DirDef, color, srgb, 0))
	g.AddPass(draw)

	post := NewComputePass("post")
	mustAddUse(t, post, NewDescriptorImageRef(DirUse, color, srgb, vk.DescriptorTypeStorageImage))
	g.AddPass(post)

	err := compileThroughAggregate(t, g)
	if err == nil {
		t.Fatalf("expected FormatMismatch error even though def and use agree with each other")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrFormatMismatch {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestAggregateUsage_BufferRangeExactFitAccepted(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 256})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, BufferRefInfo{
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Offset: 0, Size: 256,
	}, vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	read := NewComputePass("read")
	mustAddUse(t, read, NewBufferRef(DirUse, scratch, BufferRefInfo{
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Offset: 128, Size: 128,
	}, vk.DescriptorTypeStorageBuffer))
	g.AddPass(read)

	if err := compileThroughAggregate(t, g); err != nil {
		t.Fatalf("offset+size == attachment size must be accepted, got: %v", err)
	}
}

func TestAggregateUsage_BufferRangeOverrunRejected(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 256})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, BufferRefInfo{
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Offset: 0, Size: 256,
	}, vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	read := NewComputePass("read")
	mustAddUse(t, read, NewBufferRef(DirUse, scratch, BufferRefInfo{
		Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Offset: 128, Size: 129,
	}, vk.DescriptorTypeStorageBuffer))
	g.AddPass(read)

	err := compileThroughAggregate(t, g)
	if err == nil {
		t.Fatalf("expected BufferOutOfRange error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrBufferOutOfRange {
		t.Fatalf("expected ErrBufferOutOfRange, got %v", err)
	}
}

func TestAggregateUsage_LayerOutOfRangeRejected(t *testing.T) {
	g := Create(nil)
	arr := g.CreateNewImageAttachment("shadow-array", ImageAttachmentCreateInfo{
		Shape: gpu.Shape2D, Format: vk.FormatD32Sfloat, Layers: 4,
	})

	fill := NewComputePass("fill")
	info := colorInfo()
	info.Format = vk.FormatD32Sfloat
	info.BaseLayer = 2
	info.LayerCount = 4
	mustAddDef(t, fill, NewDescriptorImageRef(DirDef, arr, info, vk.DescriptorTypeStorageImage))
	g.AddPass(fill)

	err := compileThroughAggregate(t, g)
	if err == nil {
		t.Fatalf("expected LayerOutOfRange error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrLayerOutOfRange {
		t.Fatalf("expected ErrLayerOutOfRange, got %v", err)
	}
}

func TestAggregateUsage_TypeMismatchRejected(t *testing.T) {
	g := Create(nil)
	buf := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 256})

	p := NewComputePass("fill")
	mustAddDef(t, p, NewDescriptorImageRef(DirDef, buf, colorInfo(), vk.DescriptorTypeStorageImage))
	g.AddPass(p)

	err := compileThroughAggregate(t, g)
	if err == nil {
		t.Fatalf("expected TypeMismatch error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrTypeMismatch {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
}
