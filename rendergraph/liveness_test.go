package rendergraph

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/gpu"
)

func bufInfo(size uint64) BufferRefInfo {
	return BufferRefInfo{Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Size: size}
}

func TestAnalyzeLiveness_LinearComputeRenderCompute(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	draw := NewRenderPass("draw")
	mustAddUse(t, draw, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	mustAddDef(t, draw, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw)

	post := NewComputePass("post")
	mustAddUse(t, post, NewDescriptorImageRef(DirUse, color, colorInfo(), vk.DescriptorTypeStorageImage))
	g.AddPass(post)

	if err := g.analyzeLiveness(); err != nil {
		t.Fatalf("analyzeLiveness: %v", err)
	}

	scratchRanges := g.ranges[scratch.ID()]
	if len(scratchRanges) != 1 {
		t.Fatalf("expected one live range for scratch, got %d", len(scratchRanges))
	}
	if scratchRanges[0].Begin != 0 || len(scratchRanges[0].Uses) != 1 || scratchRanges[0].Uses[0].Pass != 1 {
		t.Fatalf("unexpected scratch live range: %+v", scratchRanges[0])
	}

	colorRanges := g.ranges[color.ID()]
	if len(colorRanges) != 1 || colorRanges[0].Begin != 1 || len(colorRanges[0].Uses) != 1 || colorRanges[0].Uses[0].Pass != 2 {
		t.Fatalf("unexpected color live range: %+v", colorRanges)
	}
}

func TestAnalyzeLiveness_UseBeforeDef(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	p := NewComputePass("reads-too-early")
	mustAddUse(t, p, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(p)

	err := g.analyzeLiveness()
	if err == nil {
		t.Fatalf("expected UseBeforeDef error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrUseBeforeDef {
		t.Fatalf("expected ErrUseBeforeDef, got %v", err)
	}
}

func TestAnalyzeLiveness_DoubleDefSamePass(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	p := NewComputePass("defines-twice")
	mustAddDef(t, p, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	// A second, distinct ref targeting the same attachment is allowed past
	// Pass.AddDef (which only rejects the identical ref pointer); liveness
	// is where the same-attachment-twice-in-one-pass rule is enforced.
	p.Defs = append(p.Defs, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(p)

	err := g.analyzeLiveness()
	if err == nil {
		t.Fatalf("expected DoubleDef error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrDoubleDef {
		t.Fatalf("expected ErrDoubleDef, got %v", err)
	}
}

func TestAnalyzeLiveness_UseOfOwnDef(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	p := NewComputePass("reads-what-it-writes")
	mustAddDef(t, p, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	mustAddUse(t, p, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(p)

	err := g.analyzeLiveness()
	if err == nil {
		t.Fatalf("expected UseOfOwnDef error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrUseOfOwnDef {
		t.Fatalf("expected ErrUseOfOwnDef, got %v", err)
	}
}

func TestAnalyzeLiveness_UnknownAttachment(t *testing.T) {
	g1 := Create(nil)
	g2 := Create(nil)
	foreign := g2.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	p := NewComputePass("uses-foreign-attachment")
	mustAddDef(t, p, NewBufferRef(DirDef, foreign, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g1.AddPass(p)

	err := g1.analyzeLiveness()
	if err == nil {
		t.Fatalf("expected UnknownAttachment error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrUnknownAttachment {
		t.Fatalf("expected ErrUnknownAttachment, got %v", err)
	}
}

func mustAddDef(t *testing.T, p *Pass, ref *AttachmentRef) {
	t.Helper()
	if err := p.AddDef(ref); err != nil {
		t.Fatalf("AddDef: %v", err)
	}
}

func mustAddUse(t *testing.T, p *Pass, ref *AttachmentRef) {
	t.Helper()
	if err := p.AddUse(ref); err != nil {
		t.Fatalf("AddUse: %v", err)
	}
}
