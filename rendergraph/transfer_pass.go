package rendergraph

// NewTransferPass builds a user-declared transfer (copy/blit) pass. Same
// descriptor-compatibility rule as ComputePass applies (spec §4.2).
func NewTransferPass(name string) *Pass {
	return newPass(name, PassTransfer)
}
