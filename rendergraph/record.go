package rendergraph

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/engine/core"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// acquireTimeoutNs is passed to vkAcquireNextImageKHR: no timeout, block
// until an image is available or the call reports an error.
const acquireTimeoutNs = ^uint64(0)

// FrameContext is the per-frame handle a pass's OnPass callback receives:
// the command buffer currently being recorded, the frame's ordinal, a
// back-reference to the graph for resolving attachment state, and — when
// the callback runs between BeginRenderPass and EndRenderPass — the
// render pass handle currently bound, nil otherwise (spec §4.8).
type FrameContext struct {
	Graph      *RenderGraph
	Cmd        *gpu.CommandBuffer
	FrameIndex uint64
	RenderPass *gpu.RenderPass
}

// CommandKind distinguishes the two shapes RecordFrame's output can take
// (spec §3): a batch of work submitted to a queue, or a request to present
// an already-acquired swapchain image.
type CommandKind int

const (
	CommandExecute CommandKind = iota
	CommandPresent
)

// Command is one unit of work the caller must hand to the GPU API after
// RecordFrame returns. An Execute command names the queue to submit Cmd
// to; a Present command names the swapchain binding, the acquired image
// index, and the semaphore to wait on before presenting (spec §3's
// Command sum type).
type Command struct {
	Kind  CommandKind
	Queue gpu.QueueFamily

	// Execute payload.
	Cmd *gpu.CommandBuffer

	// Present payload.
	Binding    *SwapchainBinding
	ImageIndex uint32
	WaitSem    *gpu.Semaphore
}

type acquiredImage struct {
	index uint32
}

// RecordFrame walks the compiled, post-synchronization pass list and
// records one command buffer per contiguous same-family batch, wrapping
// every RenderPass/OnSurfacePass in BeginRenderPass/EndRenderPass around
// its OnPass callback (spec §4.8). SyncPasses never get an OnPass
// callback: the recorder resolves their barrier specs against realized
// resources and emits them directly via gpu.RecordPipelineBarrier.
// Every OnSurfacePass in the graph acquires its swapchain image up front,
// before any pass is recorded, so the framebuffer it renders into wraps
// the correct image by the time its batch is reached; RecordFrame appends
// one trailing Present command per OnSurfacePass after the batch list.
// Command-buffer pooling is per queue family (SPEC_FULL.md's supplemented
// feature #3, grounded on original_source/source/SyncPass.cpp's
// per-batch command pool use).
func (g *RenderGraph) RecordFrame(pools *gpu.CommandPoolSet, frameIndex uint64) ([]Command, error) {
	if !g.compiled {
		return nil, fmt.Errorf("rendergraph: RecordFrame called before Compile")
	}

	acquired := make(map[PassID]*acquiredImage)
	for i, p := range g.passes {
		if p.Kind != PassOnSurface {
			continue
		}
		if p.swapchain == nil {
			return nil, fmt.Errorf("rendergraph: pass %q is OnSurface but has no swapchain binding", p.Name)
		}
		idx, outOfDate, err := p.swapchain.Acquire(uint64(acquireTimeoutNs))
		if err != nil {
			return nil, fmt.Errorf("rendergraph: acquiring swapchain image for %q: %w", p.Name, err)
		}
		if outOfDate {
			return nil, core.ErrSwapchainBooting
		}
		acquired[PassID(i)] = &acquiredImage{index: idx}
	}

	var commands []Command
	var cur *Command

	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := cur.Cmd.End(); err != nil {
			return err
		}
		commands = append(commands, *cur)
		cur = nil
		return nil
	}

	for i, p := range g.passes {
		fam := g.familyOf[PassID(i)]
		if cur == nil || cur.Queue != fam {
			if err := flush(); err != nil {
				return nil, err
			}
			familyIdx := g.device.QueueFamilyIndex(fam)
			pool, err := pools.PoolFor(familyIdx)
			if err != nil {
				return nil, fmt.Errorf("rendergraph: acquire command pool for %s: %w", fam, err)
			}
			cmd, err := gpu.AllocatePrimary(g.device, pool)
			if err != nil {
				return nil, fmt.Errorf("rendergraph: allocate command buffer for %s: %w", fam, err)
			}
			if err := cmd.Begin(true); err != nil {
				return nil, err
			}
			cur = &Command{Kind: CommandExecute, Queue: fam, Cmd: cmd}
		}

		if err := g.recordPass(p, cur.Cmd, frameIndex, acquired[PassID(i)]); err != nil {
			return nil, err
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for i, p := range g.passes {
		ac, ok := acquired[PassID(i)]
		if !ok {
			continue
		}
		commands = append(commands, Command{
			Kind:       CommandPresent,
			Queue:      g.familyOf[PassID(i)],
			Binding:    p.swapchain,
			ImageIndex: ac.index,
			WaitSem:    p.swapchain.AcquireSemaphore(),
		})
	}

	return commands, nil
}

func (g *RenderGraph) recordPass(p *Pass, cmd *gpu.CommandBuffer, frameIndex uint64, ac *acquiredImage) error {
	switch p.Kind {
	case PassSync:
		return g.recordSyncPass(p, cmd)
	case PassRender, PassOnSurface:
		return g.recordGraphicsPass(p, cmd, frameIndex, ac)
	default:
		if p.OnPass == nil {
			return nil
		}
		return p.OnPass(&FrameContext{Graph: g, Cmd: cmd, FrameIndex: frameIndex})
	}
}

// recordGraphicsPass resolves (building or reusing, per pass kind) the
// render pass and framebuffer p needs, then brackets its OnPass callback
// in BeginRenderPass/EndRenderPass over the full render area, per spec
// §4.8.
func (g *RenderGraph) recordGraphicsPass(p *Pass, cmd *gpu.CommandBuffer, frameIndex uint64, ac *acquiredImage) error {
	fb, rp, width, height, err := g.resolveFramebuffer(p, ac)
	if err != nil {
		return err
	}

	var clearColor [4]float32
	rp.Begin(cmd, fb, width, height, clearColor, 1.0, 0)
	ctx := &FrameContext{Graph: g, Cmd: cmd, FrameIndex: frameIndex, RenderPass: rp}
	if p.OnPass != nil {
		if err := p.OnPass(ctx); err != nil {
			rp.End(cmd)
			return err
		}
	}
	rp.End(cmd)
	return nil
}

// resolveFramebuffer returns the gpu.RenderPass/gpu.Framebuffer pair p
// must be recorded against this frame, building (RenderPass, cached
// across frames) or rebuilding (OnSurfacePass's framebuffer, which must
// wrap the image just acquired) as needed.
func (g *RenderGraph) resolveFramebuffer(p *Pass, ac *acquiredImage) (*gpu.Framebuffer, *gpu.RenderPass, uint32, uint32, error) {
	if p.Kind == PassOnSurface {
		return g.resolveSurfaceFramebuffer(p, ac)
	}
	if p.gfxFramebuffer != nil {
		return p.gfxFramebuffer, p.gfxRenderPass, p.gfxWidth, p.gfxHeight, nil
	}

	colorRefs, depthRef := sortedFramebufferRefs(p)
	colorDescs := make([]gpu.ColorAttachmentDesc, len(colorRefs))
	views := make([]vk.ImageView, 0, len(colorRefs)+1)
	var width, height uint32

	for i, ref := range colorRefs {
		colorDescs[i] = gpu.ColorAttachmentDesc{
			Format:      ref.Image.Format,
			InitLayout:  ref.Image.Layout,
			FinalLayout: ref.Image.Layout,
			Clear:       true,
		}
		view, ok := g.defViews[ref.defID]
		if !ok {
			return nil, nil, 0, 0, fmt.Errorf("rendergraph: pass %q color def %q has no realized view", p.Name, ref.Attachment.Name)
		}
		views = append(views, view.Handle)
		width, height = ref.Attachment.Extent.Width, ref.Attachment.Extent.Height
	}

	var depthDesc *gpu.ColorAttachmentDesc
	if depthRef != nil {
		depthDesc = &gpu.ColorAttachmentDesc{
			Format:      depthRef.Image.Format,
			InitLayout:  depthRef.Image.Layout,
			FinalLayout: depthRef.Image.Layout,
			Clear:       true,
		}
		view, ok := g.defViews[depthRef.defID]
		if !ok {
			return nil, nil, 0, 0, fmt.Errorf("rendergraph: pass %q depth def %q has no realized view", p.Name, depthRef.Attachment.Name)
		}
		views = append(views, view.Handle)
		if width == 0 {
			width, height = depthRef.Attachment.Extent.Width, depthRef.Attachment.Extent.Height
		}
	}

	rp, err := gpu.CreateRenderPass(g.device, colorDescs, depthDesc)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("rendergraph: building render pass for %q: %w", p.Name, err)
	}
	fb, err := gpu.CreateFramebuffer(g.device, rp, width, height, views)
	if err != nil {
		rp.Destroy()
		return nil, nil, 0, 0, fmt.Errorf("rendergraph: building framebuffer for %q: %w", p.Name, err)
	}

	p.gfxRenderPass, p.gfxFramebuffer, p.gfxWidth, p.gfxHeight = rp, fb, width, height
	return fb, rp, width, height, nil
}

// resolveSurfaceFramebuffer builds (once) the render pass an OnSurfacePass
// binds to the swapchain's color format and the binding's shared depth
// format, then rebuilds the framebuffer every frame to wrap the image
// view ac names — the one attachment an OnSurfacePass never user-declares
// (spec §4.2, §4.9).
func (g *RenderGraph) resolveSurfaceFramebuffer(p *Pass, ac *acquiredImage) (*gpu.Framebuffer, *gpu.RenderPass, uint32, uint32, error) {
	if ac == nil {
		return nil, nil, 0, 0, fmt.Errorf("rendergraph: OnSurfacePass %q recorded without an acquired image", p.Name)
	}
	sc := p.swapchain.SwapChain()
	width, height := sc.Extent.Width, sc.Extent.Height

	if p.gfxRenderPass == nil {
		depthDesc := gpu.ColorAttachmentDesc{
			Format:      p.swapchain.DepthImage().Format,
			InitLayout:  vk.ImageLayoutUndefined,
			FinalLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			Clear:       true,
		}
		rp, err := gpu.CreateRenderPass(g.device, []gpu.ColorAttachmentDesc{{
			Format:      sc.Format.Format,
			InitLayout:  vk.ImageLayoutUndefined,
			FinalLayout: vk.ImageLayoutPresentSrc,
			Clear:       true,
		}}, &depthDesc)
		if err != nil {
			return nil, nil, 0, 0, fmt.Errorf("rendergraph: building on-surface render pass for %q: %w", p.Name, err)
		}
		p.gfxRenderPass = rp
	}

	if p.gfxFramebuffer != nil {
		p.gfxFramebuffer.Destroy()
		p.gfxFramebuffer = nil
	}
	views := []vk.ImageView{sc.Views[ac.index], p.swapchain.DepthView().Handle}
	fb, err := gpu.CreateFramebuffer(g.device, p.gfxRenderPass, width, height, views)
	if err != nil {
		return nil, nil, 0, 0, fmt.Errorf("rendergraph: building on-surface framebuffer for %q: %w", p.Name, err)
	}
	p.gfxFramebuffer, p.gfxWidth, p.gfxHeight = fb, width, height
	return fb, p.gfxRenderPass, width, height, nil
}

// sortedFramebufferRefs splits p's validated framebuffer defs into the
// depth ref (if any) and the color refs, ordered by binding index — the
// same order CreateRenderPass lays attachment descriptions out in.
func sortedFramebufferRefs(p *Pass) (colors []*AttachmentRef, depth *AttachmentRef) {
	for _, ref := range p.Defs {
		if isDepthRef(ref) {
			depth = ref
			continue
		}
		colors = append(colors, ref)
	}
	sort.Slice(colors, func(i, j int) bool {
		return colors[i].Framebuffer.Binding < colors[j].Framebuffer.Binding
	})
	return colors, depth
}

func (g *RenderGraph) recordSyncPass(p *Pass, cmd *gpu.CommandBuffer) error {
	images := make([]gpu.ImageBarrier, 0, len(p.imageBarriers))
	for _, b := range p.imageBarriers {
		ri, ok := g.realizedImgs[b.attachment.id]
		if !ok {
			return fmt.Errorf("rendergraph: sync pass %q references unrealized image attachment %q", p.Name, b.attachment.Name)
		}
		images = append(images, gpu.ImageBarrier{
			Image:          ri.image,
			OldLayout:      b.oldLayout,
			NewLayout:      b.newLayout,
			SrcAccess:      b.srcAccess,
			DstAccess:      b.dstAccess,
			SrcQueueFamily: b.srcQueueFamily,
			DstQueueFamily: b.dstQueueFamily,
			BaseLayer:      b.baseLayer,
			LayerCount:     b.layerCount,
		})
	}
	buffers := make([]gpu.BufferBarrier, 0, len(p.bufferBarriers))
	for _, b := range p.bufferBarriers {
		buf, ok := g.realizedBufs[b.attachment.id]
		if !ok {
			return fmt.Errorf("rendergraph: sync pass %q references unrealized buffer attachment %q", p.Name, b.attachment.Name)
		}
		buffers = append(buffers, gpu.BufferBarrier{
			Buffer:         buf,
			SrcAccess:      b.srcAccess,
			DstAccess:      b.dstAccess,
			SrcQueueFamily: b.srcQueueFamily,
			DstQueueFamily: b.dstQueueFamily,
			Offset:         b.offset,
			Size:           b.size,
		})
	}
	gpu.RecordPipelineBarrier(cmd, images, buffers)
	return nil
}
