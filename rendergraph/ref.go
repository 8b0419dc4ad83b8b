package rendergraph

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// Direction is the axis spec §3 calls Use (read-side) vs Def (write-side,
// producer).
type Direction int

const (
	DirDef Direction = iota
	DirUse
)

// ImageRefInfo is the per-ref view descriptor spec §3 requires for images:
// target layout, usage flag bits, view type, base layer, layer count,
// format.
type ImageRefInfo struct {
	Layout     vk.ImageLayout
	Usage      vk.ImageUsageFlags
	ViewShape  gpu.ViewShape
	BaseLayer  uint32
	LayerCount uint32
	Format     vk.Format
}

// BufferRefInfo is the per-ref descriptor spec §3 requires for buffers:
// usage flags, byte offset, byte size.
type BufferRefInfo struct {
	Usage  vk.BufferUsageFlags
	Offset uint64
	Size   uint64
}

// DescriptorWrite is one deferred descriptor-write job, queued against a
// ref's eventually-resolved view/buffer. This package only stores the jobs
// (see DescriptorRef.Writes); nothing in it performs the writes
// (SPEC_FULL.md's supplemented feature #1, grounded on
// original_source/include/RE/Pass.hpp's DescriptorAttachmentRef::addDescriptorWriteJob).
// DescriptorSet is an opaque handle into the (unspecified, out-of-scope)
// descriptor pool manager — this package never interprets it.
type DescriptorWrite struct {
	DescriptorSet interface{}
	Binding       uint32
}

// DescriptorRef is the descriptor-bound capability: a descriptor-type tag
// plus a list of deferred descriptor-write jobs (spec §3).
type DescriptorRef struct {
	Type   vk.DescriptorType
	writes []DescriptorWrite
}

// AddWriteJob queues a descriptor write against this ref's resolved state.
func (d *DescriptorRef) AddWriteJob(set interface{}, binding uint32) {
	d.writes = append(d.writes, DescriptorWrite{DescriptorSet: set, Binding: binding})
}

// Writes returns the queued write jobs.
func (d *DescriptorRef) Writes() []DescriptorWrite { return d.writes }

// FramebufferRef is the framebuffer-bound capability: a color-index
// (binding) within the owning RenderPass's framebuffer.
type FramebufferRef struct {
	Binding uint32
}

// AttachmentRef is the abstract handle a Pass holds pointing at an
// Attachment plus how that pass will use it (spec §3). Binding shape is
// composition of optional capability fields (§9's redesign note collapses
// the source's ref-type multiple inheritance into this).
type AttachmentRef struct {
	Attachment  *Attachment
	Direction   Direction
	Image       *ImageRefInfo
	Buffer      *BufferRefInfo
	Descriptor  *DescriptorRef
	Framebuffer *FramebufferRef

	// populated once added to a Pass and realized by compile()
	passName string
	defID    DefID
	useID    UseID
	hasDef   bool
	hasUse   bool
}

// IsImage reports whether this ref targets an ImageAttachment.
func (r *AttachmentRef) IsImage() bool { return r.Image != nil }

// IsBuffer reports whether this ref targets a BufferAttachment.
func (r *AttachmentRef) IsBuffer() bool { return r.Buffer != nil }

// NewDescriptorImageRef builds a purely descriptor-bound image ref (a
// storage image or sampled texture, never framebuffer-attached).
func NewDescriptorImageRef(dir Direction, att *Attachment, info ImageRefInfo, descType vk.DescriptorType) *AttachmentRef {
	return &AttachmentRef{
		Attachment: att,
		Direction:  dir,
		Image:      &info,
		Descriptor: &DescriptorRef{Type: descType},
	}
}

// NewFramebufferImageRef builds a framebuffer-bound image ref (a
// RenderPass color or depth attachment).
func NewFramebufferImageRef(dir Direction, att *Attachment, info ImageRefInfo, binding uint32) *AttachmentRef {
	return &AttachmentRef{
		Attachment:  att,
		Direction:   dir,
		Image:       &info,
		Framebuffer: &FramebufferRef{Binding: binding},
	}
}

// NewInputAttachmentRef builds a ref that is simultaneously
// framebuffer-resolved and descriptor-sampled (spec §3's input
// attachments), fixed to SHADER_READ_ONLY_OPTIMAL layout and the
// INPUT_ATTACHMENT usage bit per original_source/include/RE/Pass.hpp's
// InputAttachmentImageUse/Def.
func NewInputAttachmentRef(dir Direction, att *Attachment, binding, baseLayer, layerCount uint32, format vk.Format) *AttachmentRef {
	return &AttachmentRef{
		Attachment: att,
		Direction:  dir,
		Image: &ImageRefInfo{
			Layout:     vk.ImageLayoutShaderReadOnlyOptimal,
			Usage:      vk.ImageUsageFlags(vk.ImageUsageInputAttachmentBit),
			ViewShape:  gpu.View2D,
			BaseLayer:  baseLayer,
			LayerCount: layerCount,
			Format:     format,
		},
		Framebuffer: &FramebufferRef{Binding: binding},
		Descriptor:  &DescriptorRef{Type: vk.DescriptorTypeInputAttachment},
	}
}

// NewBufferRef builds a buffer ref, always descriptor-bound (buffers have
// no framebuffer binding shape).
func NewBufferRef(dir Direction, att *Attachment, info BufferRefInfo, descType vk.DescriptorType) *AttachmentRef {
	return &AttachmentRef{
		Attachment: att,
		Direction:  dir,
		Buffer:     &info,
		Descriptor: &DescriptorRef{Type: descType},
	}
}
