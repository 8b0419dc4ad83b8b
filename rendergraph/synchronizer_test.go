package rendergraph

import (
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/gpu"
)

// compileThroughSynchronize runs C3-C4 and C6-C7 without C5 (resource
// realization), which requires a real gpu.Device. Synchronization only
// reads familyOf and each ref's declared layout/access/usage, so it is
// exercisable against a nil-device graph.
func compileThroughSynchronize(t *testing.T, g *RenderGraph) error {
	t.Helper()
	if err := g.analyzeLiveness(); err != nil {
		return err
	}
	if err := g.aggregateUsage(); err != nil {
		return err
	}
	g.partitionBatches()
	return g.synchronize()
}

func TestSynchronize_CrossFamilyInsertsReleaseAcquirePair(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	draw := NewRenderPass("draw")
	mustAddUse(t, draw, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(draw)

	if err := compileThroughSynchronize(t, g); err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	names := passNames(g)
	if len(names) != 4 {
		t.Fatalf("expected fill, release, acquire, draw (4 passes), got %v", names)
	}
	if names[0] != "fill" || names[3] != "draw" {
		t.Fatalf("original passes must bracket the synthesized pair, got %v", names)
	}
	release, acquire := g.passes[1], g.passes[2]
	if release.Kind != PassSync || acquire.Kind != PassSync {
		t.Fatalf("expected two SyncPasses between fill and draw, got kinds %v, %v", release.Kind, acquire.Kind)
	}
	if release.syncFamily != gpu.FamilyCompute {
		t.Fatalf("release must run on the releasing (compute) family, got %v", release.syncFamily)
	}
	if acquire.syncFamily != gpu.FamilyGraphics {
		t.Fatalf("acquire must run on the acquiring (graphics) family, got %v", acquire.syncFamily)
	}
	if len(release.bufferBarriers) != 1 || len(acquire.bufferBarriers) != 1 {
		t.Fatalf("expected one buffer barrier on each of release/acquire")
	}
	rb, ab := release.bufferBarriers[0], acquire.bufferBarriers[0]
	if rb.srcQueueFamily != uint32(gpu.FamilyCompute) || rb.dstQueueFamily != uint32(gpu.FamilyGraphics) {
		t.Fatalf("release barrier must carry the real src/dst families, got %+v", rb)
	}
	if ab.srcQueueFamily != uint32(gpu.FamilyCompute) || ab.dstQueueFamily != uint32(gpu.FamilyGraphics) {
		t.Fatalf("acquire barrier must carry the real src/dst families, got %+v", ab)
	}
	wantSrc, wantDst := vk.AccessFlags(vk.AccessMemoryWriteBit), vk.AccessFlags(vk.AccessMemoryReadBit)
	if rb.srcAccess != wantSrc || rb.dstAccess != wantDst {
		t.Fatalf("release barrier must use the blanket MEMORY_WRITE/MEMORY_READ pair, got %+v", rb)
	}
	if ab.srcAccess != wantSrc || ab.dstAccess != wantDst {
		t.Fatalf("acquire barrier must use the blanket MEMORY_WRITE/MEMORY_READ pair, got %+v", ab)
	}
}

// TestSynchronize_SameFamilyBufferAccessAlwaysInsertsSyncPass confirms that
// a buffer attachment, which carries no layout to diff on, still gets
// synchronized between every consecutive def/use even when both passes
// share a queue family, and that the inserted barrier carries the same
// blanket access-mask pair as a cross-family one.
func TestSynchronize_SameFamilyBufferAccessAlwaysInsertsSyncPass(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	read := NewComputePass("read")
	mustAddUse(t, read, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(read)

	if err := compileThroughSynchronize(t, g); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	names := passNames(g)
	if len(names) != 3 || g.passes[1].Kind != PassSync {
		t.Fatalf("expected fill, sync, read, got %v", names)
	}
	b := g.passes[1].bufferBarriers[0]
	if b.srcAccess != vk.AccessFlags(vk.AccessMemoryWriteBit) || b.dstAccess != vk.AccessFlags(vk.AccessMemoryReadBit) {
		t.Fatalf("expected the blanket access-mask pair on a same-family buffer barrier, got %+v", b)
	}
}

func TestSynchronize_SameFamilyLayoutChangeInsertsOneSyncPass(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	draw1 := NewRenderPass("draw1")
	mustAddDef(t, draw1, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw1)

	draw2 := NewRenderPass("draw2")
	mustAddUse(t, draw2, NewInputAttachmentRef(DirUse, color, 0, 0, 1, vk.FormatR8g8b8a8Unorm))
	g.AddPass(draw2)

	if err := compileThroughSynchronize(t, g); err != nil {
		t.Fatalf("synchronize: %v", err)
	}

	names := passNames(g)
	if len(names) != 3 {
		t.Fatalf("expected draw1, sync, draw2 (3 passes), got %v", names)
	}
	if g.passes[1].Kind != PassSync {
		t.Fatalf("expected a single SyncPass at index 1, got %v", g.passes[1].Kind)
	}
	if len(g.passes[1].imageBarriers) != 1 {
		t.Fatalf("expected one image barrier, got %d", len(g.passes[1].imageBarriers))
	}
	b := g.passes[1].imageBarriers[0]
	if b.srcQueueFamily != vk.QueueFamilyIgnored || b.dstQueueFamily != vk.QueueFamilyIgnored {
		t.Fatalf("same-family barrier must leave both queue families ignored, got %+v", b)
	}
}

func TestSynchronize_UnusedDefRejected(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	draw := NewRenderPass("draw")
	mustAddDef(t, draw, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw)

	err := compileThroughSynchronize(t, g)
	if err == nil {
		t.Fatalf("expected UnusedDefUnsupported error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrUnusedDefUnsupported {
		t.Fatalf("expected ErrUnusedDefUnsupported, got %v", err)
	}
}

func TestSynchronize_DoubleDefWithNoInterveningUseRejected(t *testing.T) {
	g := Create(nil)
	color := g.CreateNewImageAttachment("color", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})

	draw1 := NewRenderPass("draw1")
	mustAddDef(t, draw1, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw1)

	draw2 := NewRenderPass("draw2")
	mustAddDef(t, draw2, NewFramebufferImageRef(DirDef, color, colorInfo(), 0))
	g.AddPass(draw2)

	use := NewComputePass("post")
	mustAddUse(t, use, NewDescriptorImageRef(DirUse, color, colorInfo(), vk.DescriptorTypeStorageImage))
	g.AddPass(use)

	err := compileThroughSynchronize(t, g)
	if err == nil {
		t.Fatalf("expected DoubleDefUnsupported error")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrDoubleDefUnsupported {
		t.Fatalf("expected ErrDoubleDefUnsupported, got %v", err)
	}
}

func passNames(g *RenderGraph) []string {
	names := make([]string, len(g.passes))
	for i, p := range g.passes {
		names[i] = p.Name
	}
	return names
}
