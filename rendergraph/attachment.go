package rendergraph

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// AttachmentKind distinguishes the two Attachment variants (spec §3).
type AttachmentKind int

const (
	KindImage AttachmentKind = iota
	KindBuffer
)

// Attachment is a logical, named GPU resource the graph will realize.
// Attachments are owned by the RenderGraph and deduplicated by identity,
// never by value: two factory calls with equal parameters yield two
// independent attachments (spec §4.1).
type Attachment struct {
	id   AttachmentID
	Name string
	Kind AttachmentKind

	// Image fields (KindImage).
	Shape  gpu.ImageShape
	Format vk.Format
	Extent gpu.Extent3D
	Layers uint32

	// Buffer fields (KindBuffer).
	Size uint64
}

// ID returns the attachment's stable handle.
func (a *Attachment) ID() AttachmentID { return a.id }

// ImageAttachmentCreateInfo parameterizes CreateNewImageAttachment.
type ImageAttachmentCreateInfo struct {
	Shape  gpu.ImageShape
	Format vk.Format
	Extent gpu.Extent3D
	Layers uint32
}

// BufferAttachmentCreateInfo parameterizes CreateNewBufferAttachment.
type BufferAttachmentCreateInfo struct {
	Size uint64
}

// CreateNewImageAttachment registers a new logical image attachment and
// returns a stable, non-owning handle valid until the graph is destroyed.
func (g *RenderGraph) CreateNewImageAttachment(name string, info ImageAttachmentCreateInfo) *Attachment {
	layers := info.Layers
	if layers == 0 {
		layers = 1
	}
	a := &Attachment{
		id:     AttachmentID(len(g.attachments)),
		Name:   name,
		Kind:   KindImage,
		Shape:  info.Shape,
		Format: info.Format,
		Extent: info.Extent,
		Layers: layers,
	}
	g.attachments = append(g.attachments, a)
	return a
}

// CreateNewBufferAttachment registers a new logical buffer attachment.
func (g *RenderGraph) CreateNewBufferAttachment(name string, info BufferAttachmentCreateInfo) *Attachment {
	a := &Attachment{
		id:   AttachmentID(len(g.attachments)),
		Name: name,
		Kind: KindBuffer,
		Size: info.Size,
	}
	g.attachments = append(g.attachments, a)
	return a
}

// owns reports whether a belongs to this graph (invariant 1, spec §3).
func (g *RenderGraph) owns(a *Attachment) bool {
	return a != nil && int(a.id) >= 0 && int(a.id) < len(g.attachments) && g.attachments[a.id] == a
}
