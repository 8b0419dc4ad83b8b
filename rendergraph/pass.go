package rendergraph

import "github.com/spaghettifunk/rendergraph/gpu"

// PassKind is the sum type over pass specializations (§9's redesign note:
// a small tag enum rather than runtime polymorphism drives the core
// compiler algorithms; onPass callbacks are still per-instance behavior).
type PassKind int

const (
	PassRender PassKind = iota
	PassCompute
	PassTransfer
	PassOnSurface
	PassSync
)

func (k PassKind) String() string {
	switch k {
	case PassRender:
		return "Render"
	case PassCompute:
		return "Compute"
	case PassTransfer:
		return "Transfer"
	case PassOnSurface:
		return "OnSurface"
	case PassSync:
		return "Sync"
	default:
		return "Unknown"
	}
}

// OnPassFunc is a pass's per-frame recording callback, invoked by the
// recorder (C8) with the in-progress FrameContext.
type OnPassFunc func(ctx *FrameContext) error

// Pass is the base pass abstraction (spec §3/§4.2): an ordered name,
// owning no attachments but referencing defs and uses by non-owning ref.
type Pass struct {
	Name string
	Kind PassKind
	Defs []*AttachmentRef
	Uses []*AttachmentRef

	OnPass OnPassFunc

	// RenderPass/OnSurfacePass state.
	depthBound bool
	bindings   map[uint32]bool

	// OnSurfacePass state.
	swapchain *SwapchainBinding

	// SyncPass state.
	imageBarriers  []imageBarrierSpec
	bufferBarriers []bufferBarrierSpec
	syncFamily     gpu.QueueFamily

	// Recorder (C8) graphics-pass cache. A plain RenderPass's inputs never
	// change frame to frame, so its gpu.RenderPass/gpu.Framebuffer are
	// built once and reused; an OnSurfacePass rebuilds its framebuffer
	// every frame (it wraps whichever swapchain image view was just
	// acquired) but keeps the gpu.RenderPass itself, since the swapchain's
	// format and the depth attachment's format never change across frames.
	gfxRenderPass  *gpu.RenderPass
	gfxFramebuffer *gpu.Framebuffer
	gfxWidth       uint32
	gfxHeight      uint32
}

func newPass(name string, kind PassKind) *Pass {
	return &Pass{Name: name, Kind: kind, bindings: make(map[uint32]bool)}
}

// containsRef reports whether ref (by pointer identity) is already
// registered as a def or use on this pass.
func (p *Pass) containsRef(ref *AttachmentRef) bool {
	for _, d := range p.Defs {
		if d == ref {
			return true
		}
	}
	for _, u := range p.Uses {
		if u == ref {
			return true
		}
	}
	return false
}

// AddDef validates ref against this pass's kind-specific rules and, if it
// passes, registers it. Duplicate registration of the same ref fails with
// Validation (modeled here as a CompileError), per spec §4.2.
func (p *Pass) AddDef(ref *AttachmentRef) error {
	if p.containsRef(ref) {
		return newErr(ErrDoubleDef, p.Name, attachmentName(ref.Attachment), "ref already registered on this pass")
	}
	if err := p.validateDef(ref); err != nil {
		return err
	}
	ref.Direction = DirDef
	ref.passName = p.Name
	p.Defs = append(p.Defs, ref)
	return nil
}

// AddUse validates ref and, if it passes, registers it.
func (p *Pass) AddUse(ref *AttachmentRef) error {
	if p.containsRef(ref) {
		return newErr(ErrDoubleDef, p.Name, attachmentName(ref.Attachment), "ref already registered on this pass")
	}
	if err := p.validateUse(ref); err != nil {
		return err
	}
	ref.Direction = DirUse
	ref.passName = p.Name
	p.Uses = append(p.Uses, ref)
	return nil
}

// validateDef dispatches to the per-kind def hook (spec §4.2).
func (p *Pass) validateDef(ref *AttachmentRef) error {
	switch p.Kind {
	case PassOnSurface:
		return newErr(ErrOnSurfaceDef, p.Name, attachmentName(ref.Attachment), "surface images cannot be user-declared")
	case PassRender:
		return p.validateRenderPassDef(ref)
	case PassCompute, PassTransfer:
		return validateDescriptorCompatible(p.Name, ref)
	case PassSync:
		return nil // compiler-internal, never user-constructed
	default:
		return nil
	}
}

// validateUse dispatches to the per-kind use hook. The base hook is a
// no-op; only Compute/Transfer restrict uses today.
func (p *Pass) validateUse(ref *AttachmentRef) error {
	switch p.Kind {
	case PassCompute, PassTransfer:
		return validateDescriptorCompatible(p.Name, ref)
	default:
		return nil
	}
}

func validateDescriptorCompatible(passName string, ref *AttachmentRef) error {
	if ref.Descriptor == nil {
		return newErr(ErrIncompatibleView, passName, attachmentName(ref.Attachment),
			"compute/transfer passes require descriptor-compatible refs (buffer or descriptor image), not framebuffer-only refs")
	}
	return nil
}

func attachmentName(a *Attachment) string {
	if a == nil {
		return ""
	}
	return a.Name
}
