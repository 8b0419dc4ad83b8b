package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// SwapChainParams are the already-decided creation parameters C9 (the
// compiler's swapchain binding) hands to the raw GPU API. Choosing these
// values (present mode, composite alpha, extent) is C9's job per spec
// §4.9; this package only ever constructs the object it is told to.
type SwapChainParams struct {
	Surface         vk.Surface
	Format          vk.SurfaceFormat
	PresentMode     vk.PresentMode
	CompositeAlpha  vk.CompositeAlphaFlagBits
	Extent          vk.Extent2D
	MinImageCount   uint32
	PreTransform    vk.SurfaceTransformFlagBits
	GraphicsFamily  uint32
	PresentFamily   uint32
}

// SwapChain is the raw GPU swapchain object: the handle, its images and
// their (color, 2D, whole-image) views. It carries none of C9's policy —
// that lives in rendergraph.SwapchainBinding.
type SwapChain struct {
	device *Device

	Handle vk.Swapchain
	Format vk.SurfaceFormat
	Extent vk.Extent2D

	Images []vk.Image
	Views  []vk.ImageView
}

// CreateSwapChain constructs the swapchain object and its per-image views,
// adapted from the teacher's createSwapchain.
func CreateSwapChain(device *Device, params SwapChainParams, oldSwapchain vk.Swapchain) (*SwapChain, error) {
	sc := &SwapChain{device: device, Format: params.Format, Extent: params.Extent}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          params.Surface,
		MinImageCount:    params.MinImageCount,
		ImageFormat:      params.Format.Format,
		ImageColorSpace:  params.Format.ColorSpace,
		ImageExtent:      params.Extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     params.PreTransform,
		CompositeAlpha:   params.CompositeAlpha,
		PresentMode:      params.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	if params.GraphicsFamily != params.PresentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{params.GraphicsFamily, params.PresentFamily}
	} else {
		info.ImageSharingMode = vk.SharingModeExclusive
	}

	if res := vk.CreateSwapchain(device.Logical, &info, device.Allocator, &sc.Handle); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating swapchain: %s", ResultString(res))
	}

	var count uint32
	if res := vk.GetSwapchainImages(device.Logical, sc.Handle, &count, nil); res != vk.Success {
		return nil, fmt.Errorf("gpu: counting swapchain images: %s", ResultString(res))
	}
	sc.Images = make([]vk.Image, count)
	if res := vk.GetSwapchainImages(device.Logical, sc.Handle, &count, sc.Images); res != vk.Success {
		return nil, fmt.Errorf("gpu: fetching swapchain images: %s", ResultString(res))
	}

	sc.Views = make([]vk.ImageView, count)
	for i, img := range sc.Images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   params.Format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(device.Logical, &viewInfo, device.Allocator, &sc.Views[i]); res != vk.Success {
			return nil, fmt.Errorf("gpu: creating swapchain image view %d: %s", i, ResultString(res))
		}
	}
	return sc, nil
}

// AcquireNextImage acquires the next presentable image, signaling
// semaphore on completion. Returns outOfDate=true (and triggers no
// recreation itself — that is the binding's job) on ErrorOutOfDate.
func (sc *SwapChain) AcquireNextImage(timeoutNs uint64, semaphore *Semaphore, fence *Fence) (index uint32, outOfDate bool, err error) {
	var fenceHandle vk.Fence
	if fence != nil {
		fenceHandle = fence.Handle
	}
	var semHandle vk.Semaphore
	if semaphore != nil {
		semHandle = semaphore.Handle
	}
	result := vk.AcquireNextImage(sc.device.Logical, sc.Handle, timeoutNs, semHandle, fenceHandle, &index)
	switch result {
	case vk.Success:
		return index, false, nil
	case vk.ErrorOutOfDate:
		return 0, true, nil
	case vk.Suboptimal:
		return index, false, nil
	default:
		return 0, false, fmt.Errorf("gpu: acquiring swapchain image: %s", ResultString(result))
	}
}

// Present submits imageIndex to queue after waiting on waitSemaphore.
// Returns outOfDate=true when the caller should recreate the swapchain.
func (sc *SwapChain) Present(queue vk.Queue, waitSemaphore *Semaphore, imageIndex uint32) (outOfDate bool, err error) {
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{sc.Handle},
		PImageIndices:      []uint32{imageIndex},
	}
	result := vk.QueuePresent(queue, &info)
	switch result {
	case vk.Success:
		return false, nil
	case vk.ErrorOutOfDate, vk.Suboptimal:
		return true, nil
	default:
		return false, fmt.Errorf("gpu: presenting: %s", ResultString(result))
	}
}

// Destroy releases the swapchain's views (not its images, which the
// swapchain itself owns) and the swapchain object.
func (sc *SwapChain) Destroy() {
	for _, v := range sc.Views {
		vk.DestroyImageView(sc.device.Logical, v, sc.device.Allocator)
	}
	sc.Views = nil
	if sc.Handle != nil {
		vk.DestroySwapchain(sc.device.Logical, sc.Handle, sc.device.Allocator)
		sc.Handle = nil
	}
}
