package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// ImageShape is the attachment's logical dimensionality, spec §3's
// "image shape (1D/2D/3D/Cube)".
type ImageShape int

const (
	Shape1D ImageShape = iota
	Shape2D
	Shape3D
	ShapeCube
)

// ViewShape is the view type a Def/Use requests over an image, spec §4.4's
// view-type compatibility table.
type ViewShape int

const (
	View1D ViewShape = iota
	View1DArray
	View2D
	View2DArray
	View3D
	ViewCube
	ViewCubeArray
)

func (v ViewShape) vkViewType() vk.ImageViewType {
	switch v {
	case View1D:
		return vk.ImageViewType1d
	case View1DArray:
		return vk.ImageViewType1dArray
	case View2D:
		return vk.ImageViewType2d
	case View2DArray:
		return vk.ImageViewType2dArray
	case View3D:
		return vk.ImageViewType3d
	case ViewCube:
		return vk.ImageViewTypeCube
	case ViewCubeArray:
		return vk.ImageViewTypeCubeArray
	default:
		panic(fmt.Sprintf("gpu: unhandled view shape %d", v))
	}
}

func (s ImageShape) vkImageType() vk.ImageType {
	switch s {
	case Shape1D:
		return vk.ImageType1d
	case Shape3D:
		return vk.ImageType3d
	default: // 2D and Cube are both backed by a 2D image.
		return vk.ImageType2d
	}
}

// Extent3D is width/height/depth, spec §3's attachment extents.
type Extent3D struct {
	Width, Height, Depth uint32
}

// Image is a realized backing image created for an attachment (spec C5).
// One Image backs every Def/Use of the attachment across every live range.
type Image struct {
	device *Device

	Handle vk.Image
	Memory vk.DeviceMemory

	Shape   ImageShape
	Format  vk.Format
	Extent  Extent3D
	Layers  uint32
	Usage   vk.ImageUsageFlags
	IsDepth bool
}

// ImageView is one view created per Def or per Use (spec invariant I4:
// "exactly one view object exists per distinct def and per distinct use").
type ImageView struct {
	Handle vk.ImageView
	Image  *Image
	Format vk.Format
	Shape  ViewShape
}

// IsDepthFormat reports whether format carries a depth or
// depth-stencil aspect.
func IsDepthFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16Unorm, vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint,
		vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatX8D24UnormPack32:
		return true
	default:
		return false
	}
}

// CreateImage realizes the backing image for an attachment with
// mipLevels = 1, sharing mode exclusive, per spec §4.5.
func CreateImage(device *Device, shape ImageShape, format vk.Format, extent Extent3D, layers uint32, usage vk.ImageUsageFlags) (*Image, error) {
	img := &Image{
		device:  device,
		Shape:   shape,
		Format:  format,
		Extent:  extent,
		Layers:  layers,
		Usage:   usage,
		IsDepth: IsDepthFormat(format),
	}

	arrayLayers := layers
	flags := vk.ImageCreateFlags(0)
	if shape == ShapeCube {
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
		arrayLayers = layers
	}

	createInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: shape.vkImageType(),
		Extent: vk.Extent3D{
			Width:  extent.Width,
			Height: extent.Height,
			Depth:  extent.Depth,
		},
		MipLevels:     1,
		ArrayLayers:   arrayLayers,
		Format:        format,
		Tiling:        vk.ImageTilingOptimal,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
		Flags:         flags,
	}

	err := device.Locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(device.Logical, &createInfo, device.Allocator, &img.Handle); res != vk.Success {
			return fmt.Errorf("gpu: creating image: %s", ResultString(res))
		}

		var requirements vk.MemoryRequirements
		vk.GetImageMemoryRequirements(device.Logical, img.Handle, &requirements)
		requirements.Deref()

		memType, err := device.FindMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
		if err != nil {
			return fmt.Errorf("gpu: image memory type: %w", err)
		}

		allocInfo := vk.MemoryAllocateInfo{
			SType:           vk.StructureTypeMemoryAllocateInfo,
			AllocationSize:  requirements.Size,
			MemoryTypeIndex: uint32(memType),
		}
		if res := vk.AllocateMemory(device.Logical, &allocInfo, device.Allocator, &img.Memory); res != vk.Success {
			return fmt.Errorf("gpu: allocating image memory: %s", ResultString(res))
		}
		if res := vk.BindImageMemory(device.Logical, img.Handle, img.Memory, 0); res != vk.Success {
			return fmt.Errorf("gpu: binding image memory: %s", ResultString(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return img, nil
}

// CreateView creates one image view, dispatched on viewShape (spec §4.5:
// "view creation is dispatched on view type"). baseLayer/layerCount select
// the subresource range a Def/Use references.
func CreateView(device *Device, image *Image, viewShape ViewShape, format vk.Format, baseLayer, layerCount uint32) (*ImageView, error) {
	aspect := vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if image.IsDepth {
		aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}

	info := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image.Handle,
		ViewType: viewShape.vkViewType(),
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}

	view := &ImageView{Image: image, Format: format, Shape: viewShape}
	err := device.Locks.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImageView(device.Logical, &info, device.Allocator, &view.Handle); res != vk.Success {
			return fmt.Errorf("gpu: creating image view: %s", ResultString(res))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// DestroyView releases a single view.
func DestroyView(device *Device, view *ImageView) {
	if view == nil || view.Handle == nil {
		return
	}
	vk.DestroyImageView(device.Logical, view.Handle, device.Allocator)
	view.Handle = nil
}

// Destroy releases the image and its backing memory. Every view created
// against it must be destroyed first.
func (img *Image) Destroy() {
	if img.Handle != nil {
		vk.DestroyImage(img.device.Logical, img.Handle, img.device.Allocator)
		img.Handle = nil
	}
	if img.Memory != nil {
		vk.FreeMemory(img.device.Logical, img.Memory, img.device.Allocator)
		img.Memory = nil
	}
}
