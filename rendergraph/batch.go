package rendergraph

import "github.com/spaghettifunk/rendergraph/gpu"

// partitionBatches is C6: assign every pass a queue family. RenderPass
// and OnSurfacePass submit to the graphics queue, ComputePass to the
// compute queue, TransferPass to the transfer queue. SyncPass has no
// family of its own: the synchronizer (C7) that inserts it decides, by
// construction, which of the two passes it sits between supplies its
// family (spec §4.6).
func (g *RenderGraph) partitionBatches() {
	g.familyOf = make(map[PassID]gpu.QueueFamily, len(g.passes))
	for i, p := range g.passes {
		if fam, ok := familyGroupOf(p.Kind); ok {
			g.familyOf[PassID(i)] = fam
		}
	}
}

func familyGroupOf(k PassKind) (gpu.QueueFamily, bool) {
	switch k {
	case PassRender, PassOnSurface:
		return gpu.FamilyGraphics, true
	case PassCompute:
		return gpu.FamilyCompute, true
	case PassTransfer:
		return gpu.FamilyTransfer, true
	default:
		return 0, false
	}
}
