package rendergraph

import (
	"strings"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/gpu"
)

// TestGraph_EmptyGraphCompilesThroughSynchronize exercises an empty graph
// (no attachments, no passes) through every stage that doesn't need a real
// gpu.Device — it should succeed trivially.
func TestGraph_EmptyGraphCompilesThroughSynchronize(t *testing.T) {
	g := Create(nil)
	if err := compileThroughSynchronize(t, g); err != nil {
		t.Fatalf("empty graph must compile cleanly, got: %v", err)
	}
	if len(g.passes) != 0 {
		t.Fatalf("expected no passes, got %d", len(g.passes))
	}
}

// TestGraph_LinearComputeRenderComputeSucceeds is the fill/draw/post scenario
// used throughout this package's tests, checked end to end: liveness,
// aggregation and synchronization all succeed and the final pass list
// carries the expected synthesized sync passes at the cross-family
// boundary between "fill" (compute) and "draw" (graphics).
func TestGraph_LinearComputeRenderComputeSucceeds(t *testing.T) {
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

	if err := compileThroughSynchronize(t, g); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	names := passNames(g)
	if names[0] != "fill" {
		t.Fatalf("expected fill first, got %v", names)
	}
	foundSync := false
	for _, n := range names[1:] {
		if n == "draw" {
			break
		}
		if strings.HasPrefix(n, "sync-") {
			foundSync = true
			break
		}
	}
	if !foundSync {
		t.Fatalf("expected at least one synthesized sync pass between fill and draw, got %v", names)
	}
}

// TestGraph_UseBeforeDefFails confirms a graph-level compile failure
// surfaces through analyzeLiveness before any later stage runs.
func TestGraph_UseBeforeDefFails(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	p := NewComputePass("reads-too-early")
	mustAddUse(t, p, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(p)

	err := compileThroughSynchronize(t, g)
	if err == nil {
		t.Fatalf("expected failure")
	}
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrUseBeforeDef {
		t.Fatalf("expected ErrUseBeforeDef, got %v", err)
	}
}

// TestGraph_DoubleBindingFails confirms AddDef itself rejects a duplicate
// framebuffer binding index before the graph is ever compiled.
func TestGraph_DoubleBindingFails(t *testing.T) {
	g := Create(nil)
	c1 := g.CreateNewImageAttachment("c1", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	c2 := g.CreateNewImageAttachment("c2", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewRenderPass("draw")

	if err := p.AddDef(NewFramebufferImageRef(DirDef, c1, colorInfo(), 0)); err != nil {
		t.Fatalf("first binding: %v", err)
	}
	err := p.AddDef(NewFramebufferImageRef(DirDef, c2, colorInfo(), 0))
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrFramebufferBindingConflict {
		t.Fatalf("expected ErrFramebufferBindingConflict, got %v", err)
	}
}

// TestGraph_OnSurfaceDefFails confirms an OnSurfacePass rejects AddDef at
// the pass level, never reaching the graph compile stages.
func TestGraph_OnSurfaceDefFails(t *testing.T) {
	g := Create(nil)
	att := g.CreateNewImageAttachment("surface", ImageAttachmentCreateInfo{Shape: gpu.Shape2D, Format: vk.FormatR8g8b8a8Unorm})
	p := NewOnSurfacePass("present", nil)

	err := p.AddDef(NewFramebufferImageRef(DirDef, att, colorInfo(), 0))
	if ce, ok := err.(*CompileError); !ok || ce.Kind != ErrOnSurfaceDef {
		t.Fatalf("expected ErrOnSurfaceDef, got %v", err)
	}
}

// TestGraph_CrossFamilyTransitionProducesReleaseAcquire restates the
// cross-family case stage by stage: after liveness, DebugDump names the
// attachment and both passes; after synchronize, the pass list has grown
// to four entries (fill, release, acquire, draw).
func TestGraph_CrossFamilyTransitionProducesReleaseAcquire(t *testing.T) {
	g := Create(nil)
	scratch := g.CreateNewBufferAttachment("scratch", BufferAttachmentCreateInfo{Size: 1024})

	fill := NewComputePass("fill")
	mustAddDef(t, fill, NewBufferRef(DirDef, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(fill)

	draw := NewRenderPass("draw")
	mustAddUse(t, draw, NewBufferRef(DirUse, scratch, bufInfo(1024), vk.DescriptorTypeStorageBuffer))
	g.AddPass(draw)

	if err := g.analyzeLiveness(); err != nil {
		t.Fatalf("analyzeLiveness: %v", err)
	}
	dump := g.DebugDump()
	if !strings.Contains(dump, "scratch") || !strings.Contains(dump, "fill") || !strings.Contains(dump, "draw") {
		t.Fatalf("expected DebugDump to mention scratch/fill/draw, got:\n%s", dump)
	}

	if err := g.aggregateUsage(); err != nil {
		t.Fatalf("aggregateUsage: %v", err)
	}
	g.partitionBatches()
	if err := g.synchronize(); err != nil {
		t.Fatalf("synchronize: %v", err)
	}
	if len(g.passes) != 4 {
		t.Fatalf("expected fill, release, acquire, draw, got %v", passNames(g))
	}
}
