package rendergraph

import "github.com/spaghettifunk/rendergraph/engine/core"

// analyzeLiveness is C3: a single left-to-right walk of the pass list that
// opens and closes per-attachment live ranges. Each def closes any
// currently open range for that attachment and opens a new one; each use
// appends to the currently open range. Passes are processed def-then-use
// internally so a pass may both read and (separately) write distinct refs
// to distinct attachments in one call without ordering surprises, while
// a pass using the very attachment it also defines is rejected outright
// (spec §4.3).
func (g *RenderGraph) analyzeLiveness() error {
	g.ranges = make(map[AttachmentID][]*LiveRange)
	open := make(map[AttachmentID]*LiveRange)

	for pi, pass := range g.passes {
		definedHere := make(map[AttachmentID]bool)

		for _, ref := range pass.Defs {
			att := ref.Attachment
			if !g.owns(att) {
				return newErr(ErrUnknownAttachment, pass.Name, attachmentName(att), "attachment not owned by this graph")
			}
			if definedHere[att.id] {
				return newErr(ErrDoubleDef, pass.Name, att.Name, "attachment defined more than once in the same pass")
			}
			definedHere[att.id] = true

			if lr, ok := open[att.id]; ok {
				lr.End = PassID(pi)
			}
			lr := &LiveRange{Begin: PassID(pi), End: PassID(len(g.passes)), Def: ref}
			g.ranges[att.id] = append(g.ranges[att.id], lr)
			open[att.id] = lr

			ref.defID = DefID(len(g.defs))
			ref.hasDef = true
			g.defs = append(g.defs, ref)
		}

		for _, ref := range pass.Uses {
			att := ref.Attachment
			if !g.owns(att) {
				return newErr(ErrUnknownAttachment, pass.Name, attachmentName(att), "attachment not owned by this graph")
			}
			if definedHere[att.id] {
				return newErr(ErrUseOfOwnDef, pass.Name, att.Name, "pass uses an attachment it also defines")
			}
			lr, ok := open[att.id]
			if !ok {
				return newErr(ErrUseBeforeDef, pass.Name, att.Name, "attachment used before any pass defined it")
			}
			lr.Uses = append(lr.Uses, UseEntry{Pass: PassID(pi), Ref: ref})

			ref.useID = UseID(len(g.uses))
			ref.hasUse = true
			g.uses = append(g.uses, ref)
		}
	}

	for _, a := range g.attachments {
		ranges := g.ranges[a.id]
		if len(ranges) == 0 {
			core.LogWarn("rendergraph: attachment %q declared but never defined or used", a.Name)
			continue
		}
		for _, lr := range ranges {
			if len(lr.Uses) == 0 {
				core.LogWarn("rendergraph: attachment %q defined by pass %q but never used",
					a.Name, g.passes[lr.Begin].Name)
			}
		}
	}
	return nil
}
