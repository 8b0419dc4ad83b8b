package rendergraph

// aggregateUsage is C4: for every live range, check that the def and every
// use is compatible with the attachment it targets. This is where two
// source bugs are fixed (documented in DESIGN.md's Open Question
// decisions):
//
//   - the format check now compares every ref's declared format against
//     the attachment's own declared pixel format (spec §4.4/invariant #5:
//     "exact match between the attachment's pixel format and every view
//     format"), instead of comparing a def's format against a use's
//     format, which missed the case where both agree with each other but
//     not with the attachment itself;
//   - the buffer range check now rejects offset+size strictly greater
//     than the attachment's size, instead of greater-or-equal, which
//     previously rejected an exact end-of-buffer fit.
func (g *RenderGraph) aggregateUsage() error {
	for _, a := range g.attachments {
		for _, lr := range g.ranges[a.id] {
			def := lr.Def
			if err := checkRefAgainstAttachment(a, def); err != nil {
				return err
			}
			if a.Kind == KindImage {
				if err := checkFormatMatch(a, def); err != nil {
					return err
				}
			}
			for _, u := range lr.Uses {
				if err := checkRefAgainstAttachment(a, u.Ref); err != nil {
					return err
				}
				if a.Kind == KindImage {
					if err := checkFormatMatch(a, u.Ref); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func checkRefAgainstAttachment(a *Attachment, ref *AttachmentRef) error {
	passName := ref.passName
	switch a.Kind {
	case KindImage:
		if !ref.IsImage() {
			return newErr(ErrTypeMismatch, passName, a.Name, "buffer-shaped ref used against an image attachment")
		}
		if ref.Image.BaseLayer+ref.Image.LayerCount > a.Layers {
			return newErr(ErrLayerOutOfRange, passName, a.Name,
				"layer range [%d,%d) exceeds attachment layer count %d",
				ref.Image.BaseLayer, ref.Image.BaseLayer+ref.Image.LayerCount, a.Layers)
		}
	case KindBuffer:
		if !ref.IsBuffer() {
			return newErr(ErrTypeMismatch, passName, a.Name, "image-shaped ref used against a buffer attachment")
		}
		// Fixed: offset+size must be <= size, so only a strict overrun
		// (offset+size > size) is rejected; an exact end-of-buffer
		// reference is valid.
		if ref.Buffer.Offset+ref.Buffer.Size > a.Size {
			return newErr(ErrBufferOutOfRange, passName, a.Name,
				"range [%d,%d) exceeds buffer size %d",
				ref.Buffer.Offset, ref.Buffer.Offset+ref.Buffer.Size, a.Size)
		}
	}
	return nil
}

// checkFormatMatch fixed: previously compared a def's format against a
// use's format, which let a def and use that happen to agree with each
// other slip past even when neither matches the attachment's own declared
// format. It now checks ref against a.Format directly, per spec §4.4.
func checkFormatMatch(a *Attachment, ref *AttachmentRef) error {
	if ref.Image.Format != a.Format {
		return newErr(ErrFormatMismatch, ref.passName, a.Name,
			"ref declares format %d but the attachment's own format is %d", ref.Image.Format, a.Format)
	}
	return nil
}
