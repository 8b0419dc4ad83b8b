package rendergraph

// NewOnSurfacePass builds the single pass that targets the presentable
// surface. It owns a SwapchainBinding (C9) and, unlike every other pass
// kind, always rejects AddDef: the surface image is realized by the
// compiler from the swapchain, never user-declared (spec §4.2, §4.9).
func NewOnSurfacePass(name string, binding *SwapchainBinding) *Pass {
	p := newPass(name, PassOnSurface)
	p.swapchain = binding
	return p
}

// RecreateSwapChain rebuilds the underlying swapchain (e.g. after a window
// resize or VK_ERROR_OUT_OF_DATE_KHR) and re-derives the depth image and
// views bound to this pass.
func (p *Pass) RecreateSwapChain(width, height uint32) error {
	if p.Kind != PassOnSurface || p.swapchain == nil {
		return newErr(ErrOnSurfaceDef, p.Name, "", "RecreateSwapChain called on a non-OnSurface pass")
	}
	return p.swapchain.recreate(width, height)
}
