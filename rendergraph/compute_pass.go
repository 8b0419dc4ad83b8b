package rendergraph

// NewComputePass builds a user-declared compute pass. Defs and uses must
// be descriptor-compatible; framebuffer-only refs are rejected (spec §4.2).
func NewComputePass(name string) *Pass {
	return newPass(name, PassCompute)
}
