package rendergraph

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/rendergraph/engine/core"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// LiveRange is one [Begin, End) window during which an attachment holds
// the state written by Def, read by the ordered Uses within it (spec
// §4.3). End is exclusive and equals len(passes) for a range still open
// at the end of the graph.
type LiveRange struct {
	Begin PassID
	End   PassID
	Def   *AttachmentRef
	Uses  []UseEntry
}

// UseEntry pairs a use ref with the pass index it occurred in.
type UseEntry struct {
	Pass PassID
	Ref  *AttachmentRef
}

// RenderGraph owns every Attachment, Pass and realized GPU resource for
// one render graph instance (spec §3). Nothing here is safe for
// concurrent use: a graph is built and compiled on a single goroutine.
type RenderGraph struct {
	device *gpu.Device

	attachments []*Attachment
	passes      []*Pass

	// populated by Compile().
	ranges       map[AttachmentID][]*LiveRange
	defs         []*AttachmentRef
	uses         []*AttachmentRef
	familyOf     map[PassID]gpu.QueueFamily
	realizedImgs map[AttachmentID]*realizedImage
	realizedBufs map[AttachmentID]*gpu.Buffer
	defViews     map[DefID]*gpu.ImageView
	useViews     map[UseID]*gpu.ImageView
	compiled     bool
}

type realizedImage struct {
	image *gpu.Image
}

// Create builds an empty render graph bound to device. No GPU resources
// are allocated until Compile() runs.
func Create(device *gpu.Device) *RenderGraph {
	return &RenderGraph{
		device:       device,
		realizedImgs: make(map[AttachmentID]*realizedImage),
		realizedBufs: make(map[AttachmentID]*gpu.Buffer),
		defViews:     make(map[DefID]*gpu.ImageView),
		useViews:     make(map[UseID]*gpu.ImageView),
	}
}

// AddPass appends pass to the graph's pass list, in submission order, and
// returns its stable PassID.
func (g *RenderGraph) AddPass(p *Pass) PassID {
	id := PassID(len(g.passes))
	g.passes = append(g.passes, p)
	return id
}

// Compile runs the full analysis pipeline (C3-C7) in order: liveness,
// usage aggregation, resource realization, batch partitioning, and
// synchronization. The first error aborts compilation. A failed Compile
// does not roll back: the pass list is left as it was before Compile, but
// live ranges, def/use IDs and any resources already realized stay on the
// graph, and the graph is not marked compiled.
func (g *RenderGraph) Compile() error {
	if g.compiled {
		return fmt.Errorf("rendergraph: graph already compiled")
	}
	if err := g.analyzeLiveness(); err != nil {
		return err
	}
	if err := g.aggregateUsage(); err != nil {
		return err
	}
	if err := g.realizeResources(); err != nil {
		return err
	}
	g.partitionBatches()
	if err := g.synchronize(); err != nil {
		return err
	}
	g.compiled = true
	core.LogInfo("rendergraph: compiled %d passes, %d attachments", len(g.passes), len(g.attachments))
	return nil
}

// GetImageAttachmentState resolves ref to the single distinct view created
// for it: the view registered under its defID if ref was added via AddDef,
// or under its useID if it was added via AddUse (spec §4.5/invariant I4 —
// every def and every use gets its own view object, never a shared one).
// ok is false if ref was never registered on a pass, or if the graph has
// not yet realized resources.
func (g *RenderGraph) GetImageAttachmentState(ref *AttachmentRef) (*gpu.ImageView, bool) {
	if ref.hasDef {
		v, ok := g.defViews[ref.defID]
		return v, ok
	}
	if ref.hasUse {
		v, ok := g.useViews[ref.useID]
		return v, ok
	}
	return nil, false
}

// GetBufferAttachmentState returns the realized buffer backing ref's
// attachment, or ok=false if it was never realized. Buffers have no
// per-ref view concept (spec §6): every def and use of a buffer
// attachment shares the one realized gpu.Buffer.
func (g *RenderGraph) GetBufferAttachmentState(ref *AttachmentRef) (*gpu.Buffer, bool) {
	b, ok := g.realizedBufs[ref.Attachment.id]
	return b, ok
}

// DebugDump renders a human-readable table of every attachment's live
// ranges, grounded on the teacher's preference for plain stderr/stdout
// diagnostics over a structured dump format (spec §6, config.DebugDump).
func (g *RenderGraph) DebugDump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "rendergraph: %d passes, %d attachments\n", len(g.passes), len(g.attachments))
	for _, a := range g.attachments {
		fmt.Fprintf(&sb, "  %s (%s):\n", a.Name, kindString(a.Kind))
		for _, lr := range g.ranges[a.id] {
			fmt.Fprintf(&sb, "    [%d,%d) def=%s uses=", lr.Begin, lr.End, g.passes[lr.Begin].Name)
			names := make([]string, 0, len(lr.Uses))
			for _, u := range lr.Uses {
				names = append(names, g.passes[u.Pass].Name)
			}
			fmt.Fprintf(&sb, "%s\n", strings.Join(names, ","))
		}
	}
	if len(g.familyOf) > 0 {
		fmt.Fprintf(&sb, "  queue family assignment:\n")
		ids := maps.Keys(g.familyOf)
		slices.Sort(ids)
		for _, pi := range ids {
			fmt.Fprintf(&sb, "    %s -> %s\n", g.passes[pi].Name, g.familyOf[pi])
		}
	}
	return sb.String()
}

func kindString(k AttachmentKind) string {
	if k == KindImage {
		return "image"
	}
	return "buffer"
}
