package rendergraph

import (
	"fmt"

	"github.com/spaghettifunk/rendergraph/gpu"
)

// realizeResources is C5: turn every logical attachment into an actual
// GPU resource, and every def/use ref's view requirements into actual
// views over that resource. One gpu.Image (or gpu.Buffer) is created per
// attachment; one gpu.ImageView is created per def and one per use,
// unconditionally — even when two refs request the identical shape,
// format, and layer range, they get distinct view objects (spec §4.5,
// invariant I4: "exactly one view object exists per distinct def and per
// distinct use"). Sharing views across refs that happen to agree on
// shape was a real bug, not an optimization: a use's view must be
// independently destroyable/replaceable (e.g. on swapchain recreation)
// without disturbing any other ref's view.
func (g *RenderGraph) realizeResources() error {
	for _, a := range g.attachments {
		ranges := g.ranges[a.id]
		if len(ranges) == 0 {
			continue // declared but never defined: nothing to realize
		}
		switch a.Kind {
		case KindImage:
			if err := g.realizeImageAttachment(a, ranges); err != nil {
				return err
			}
		case KindBuffer:
			if err := g.realizeBufferAttachment(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *RenderGraph) realizeImageAttachment(a *Attachment, ranges []*LiveRange) error {
	def := ranges[0].Def
	usage := def.Image.Usage
	for _, lr := range ranges {
		usage |= lr.Def.Image.Usage
		for _, u := range lr.Uses {
			usage |= u.Ref.Image.Usage
		}
	}

	img, err := gpu.CreateImage(g.device, a.Shape, a.Format, a.Extent, a.Layers, usage)
	if err != nil {
		return fmt.Errorf("rendergraph: realize image attachment %q: %w", a.Name, err)
	}
	g.realizedImgs[a.id] = &realizedImage{image: img}

	realizeDefView := func(ref *AttachmentRef) error {
		view, err := gpu.CreateView(g.device, img, ref.Image.ViewShape, ref.Image.Format, ref.Image.BaseLayer, ref.Image.LayerCount)
		if err != nil {
			return fmt.Errorf("rendergraph: realize def view for %q: %w", a.Name, err)
		}
		g.defViews[ref.defID] = view
		return nil
	}
	realizeUseView := func(ref *AttachmentRef) error {
		view, err := gpu.CreateView(g.device, img, ref.Image.ViewShape, ref.Image.Format, ref.Image.BaseLayer, ref.Image.LayerCount)
		if err != nil {
			return fmt.Errorf("rendergraph: realize use view for %q: %w", a.Name, err)
		}
		g.useViews[ref.useID] = view
		return nil
	}

	for _, lr := range ranges {
		if err := realizeDefView(lr.Def); err != nil {
			return err
		}
		for _, u := range lr.Uses {
			if err := realizeUseView(u.Ref); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *RenderGraph) realizeBufferAttachment(a *Attachment) error {
	def := g.ranges[a.id][0].Def
	usage := def.Buffer.Usage
	for _, lr := range g.ranges[a.id] {
		usage |= lr.Def.Buffer.Usage
		for _, u := range lr.Uses {
			usage |= u.Ref.Buffer.Usage
		}
	}
	buf, err := gpu.CreateBuffer(g.device, a.Size, usage)
	if err != nil {
		return fmt.Errorf("rendergraph: realize buffer attachment %q: %w", a.Name, err)
	}
	g.realizedBufs[a.id] = buf
	return nil
}
