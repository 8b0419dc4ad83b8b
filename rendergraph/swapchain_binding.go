package rendergraph

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/config"
	"github.com/spaghettifunk/rendergraph/gpu"
)

// SwapchainBinding is C9: the policy layer around a raw gpu.SwapChain.
// It owns present-mode and composite-alpha selection (from the process
// config's preference lists), the depth image every OnSurfacePass frame
// needs, and the semaphore that signals when an acquired image is ready.
// It records no layout transition for the swapchain images at creation;
// the on-surface render pass takes them from VK_IMAGE_LAYOUT_UNDEFINED.
type SwapchainBinding struct {
	device  *gpu.Device
	surface vk.Surface

	sc        *gpu.SwapChain
	depth     *gpu.Image
	depthView *gpu.ImageView

	acquireSem *gpu.Semaphore

	graphicsFamily uint32
	presentFamily  uint32
	depthFormat    vk.Format
}

// NewSwapchainBinding selects present mode and composite alpha from cfg's
// preference lists (falling back to FIFO / OPAQUE, which every Vulkan
// implementation must support), builds the swapchain and its depth
// image, and acquires the binding's semaphore.
func NewSwapchainBinding(
	device *gpu.Device,
	surface vk.Surface,
	format vk.SurfaceFormat,
	extent vk.Extent2D,
	minImageCount uint32,
	preTransform vk.SurfaceTransformFlagBits,
	availablePresentModes []vk.PresentMode,
	cfg config.Config,
	depthFormat vk.Format,
) (*SwapchainBinding, error) {
	graphicsFamily := device.QueueFamilyIndex(gpu.FamilyGraphics)
	presentFamily := graphicsFamily // presentation support is assumed on the graphics family; surface queries are out of scope (spec §1)

	params := gpu.SwapChainParams{
		Surface:        surface,
		Format:         format,
		PresentMode:    choosePresentMode(availablePresentModes, cfg.PresentModePreference),
		CompositeAlpha: chooseCompositeAlpha(cfg.CompositeAlphaPreference),
		Extent:         extent,
		MinImageCount:  minImageCount,
		PreTransform:   preTransform,
		GraphicsFamily: graphicsFamily,
		PresentFamily:  presentFamily,
	}

	var noOldSwapchain vk.Swapchain
	sc, err := gpu.CreateSwapChain(device, params, noOldSwapchain)
	if err != nil {
		return nil, err
	}

	depth, err := gpu.CreateImage(device, gpu.Shape2D, depthFormat,
		gpu.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}, 1,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit))
	if err != nil {
		sc.Destroy()
		return nil, fmt.Errorf("rendergraph: creating swapchain depth image: %w", err)
	}

	depthView, err := gpu.CreateView(device, depth, gpu.View2D, depthFormat, 0, 1)
	if err != nil {
		depth.Destroy()
		sc.Destroy()
		return nil, fmt.Errorf("rendergraph: creating swapchain depth view: %w", err)
	}

	sem, err := gpu.CreateSemaphore(device)
	if err != nil {
		gpu.DestroyView(device, depthView)
		depth.Destroy()
		sc.Destroy()
		return nil, err
	}

	return &SwapchainBinding{
		device:         device,
		surface:        surface,
		sc:             sc,
		depth:          depth,
		depthView:      depthView,
		acquireSem:     sem,
		graphicsFamily: graphicsFamily,
		presentFamily:  presentFamily,
		depthFormat:    depthFormat,
	}, nil
}

// Acquire acquires the next presentable image, returning its index and
// whether the caller must RecreateSwapChain before proceeding.
func (b *SwapchainBinding) Acquire(timeoutNs uint64) (index uint32, outOfDate bool, err error) {
	return b.sc.AcquireNextImage(timeoutNs, b.acquireSem, nil)
}

// Present presents imageIndex after waiting on waitSemaphore.
func (b *SwapchainBinding) Present(queue vk.Queue, waitSemaphore *gpu.Semaphore, imageIndex uint32) (outOfDate bool, err error) {
	return b.sc.Present(queue, waitSemaphore, imageIndex)
}

// SwapChain exposes the raw object for attachment-state queries (e.g. the
// recorder needing the vk.ImageView for the acquired image index).
func (b *SwapchainBinding) SwapChain() *gpu.SwapChain { return b.sc }

// DepthImage returns the shared depth image all frames render into.
func (b *SwapchainBinding) DepthImage() *gpu.Image { return b.depth }

// DepthView returns the view over the shared depth image that every
// OnSurfacePass framebuffer binds as its depth attachment.
func (b *SwapchainBinding) DepthView() *gpu.ImageView { return b.depthView }

// AcquireSemaphore returns the semaphore signaled when Acquire's image
// becomes available — also the semaphore the recorder waits on before
// presenting that image (spec §9: full per-batch submit semaphore
// chaining is an acknowledged extension point, not a v1 requirement, so
// present reuses the acquire semaphore rather than a dedicated
// render-finished one).
func (b *SwapchainBinding) AcquireSemaphore() *gpu.Semaphore { return b.acquireSem }

// recreate tears down and rebuilds the swapchain and depth image at the
// new extent, handing the old swapchain to CreateSwapChain for a
// same-surface re-creation (spec §4.9).
func (b *SwapchainBinding) recreate(width, height uint32) error {
	old := b.sc.Handle
	newExtent := vk.Extent2D{Width: width, Height: height}

	params := gpu.SwapChainParams{
		Surface:        b.surface,
		Format:         b.sc.Format,
		PresentMode:    vk.PresentModeFifo,
		CompositeAlpha: vk.CompositeAlphaOpaqueBit,
		Extent:         newExtent,
		MinImageCount:  uint32(len(b.sc.Images)),
		GraphicsFamily: b.graphicsFamily,
		PresentFamily:  b.presentFamily,
	}
	sc, err := gpu.CreateSwapChain(b.device, params, old)
	if err != nil {
		return err
	}

	depth, err := gpu.CreateImage(b.device, gpu.Shape2D, b.depthFormat,
		gpu.Extent3D{Width: width, Height: height, Depth: 1}, 1,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit))
	if err != nil {
		sc.Destroy()
		return fmt.Errorf("rendergraph: recreating swapchain depth image: %w", err)
	}

	depthView, err := gpu.CreateView(b.device, depth, gpu.View2D, b.depthFormat, 0, 1)
	if err != nil {
		depth.Destroy()
		sc.Destroy()
		return fmt.Errorf("rendergraph: recreating swapchain depth view: %w", err)
	}

	gpu.DestroyView(b.device, b.depthView)
	b.depth.Destroy()
	b.sc.Destroy()
	b.sc = sc
	b.depth = depth
	b.depthView = depthView
	return nil
}

// Destroy releases the binding's swapchain, depth image/view, and
// semaphore.
func (b *SwapchainBinding) Destroy() {
	b.acquireSem.Destroy()
	gpu.DestroyView(b.device, b.depthView)
	b.depth.Destroy()
	b.sc.Destroy()
}

func choosePresentMode(available []vk.PresentMode, preference []string) vk.PresentMode {
	for _, name := range preference {
		mode, ok := presentModeByName(name)
		if !ok {
			continue
		}
		for _, a := range available {
			if a == mode {
				return mode
			}
		}
	}
	return vk.PresentModeFifo // every Vulkan implementation supports FIFO
}

func presentModeByName(name string) (vk.PresentMode, bool) {
	switch name {
	case "immediate":
		return vk.PresentModeImmediate, true
	case "mailbox":
		return vk.PresentModeMailbox, true
	case "fifo":
		return vk.PresentModeFifo, true
	case "fifo-relaxed":
		return vk.PresentModeFifoRelaxed, true
	default:
		return 0, false
	}
}

func chooseCompositeAlpha(preference []string) vk.CompositeAlphaFlagBits {
	for _, name := range preference {
		switch name {
		case "opaque":
			return vk.CompositeAlphaOpaqueBit
		case "pre_multiplied":
			return vk.CompositeAlphaPreMultipliedBit
		case "post_multiplied":
			return vk.CompositeAlphaPostMultipliedBit
		case "inherit":
			return vk.CompositeAlphaInheritBit
		}
	}
	return vk.CompositeAlphaOpaqueBit
}
