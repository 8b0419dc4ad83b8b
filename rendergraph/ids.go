package rendergraph

// Handles into graph-owned state. The original C++ source carried raw
// pointers in std::map keys (§9's redesign note); here every def/use/pass
// is an index into a graph-owned slice, and realized views are kept in
// graph-owned maps keyed by DefID/UseID, which both sidesteps
// dangling-pointer risk and matches the RenderGraph's exclusive ownership
// of realized resources (spec §5).

// AttachmentID identifies an Attachment owned by a RenderGraph.
type AttachmentID int

// PassID identifies a Pass (user-declared or compiler-synthesized)
// in the graph's pass list.
type PassID int

// DefID identifies one AttachmentRef with Direction Def.
type DefID int

// UseID identifies one AttachmentRef with Direction Use.
type UseID int

// ViewID identifies one realized ImageView.
type ViewID int
