// Command demo wires a platform window, a bootstrapped GPU device, and a
// small compute -> render -> compute -> present render graph together and runs it
// for a handful of frames. It exists to exercise every package end to
// end, not as a polished sample.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/config"
	"github.com/spaghettifunk/rendergraph/engine/core"
	"github.com/spaghettifunk/rendergraph/engine/platform"
	"github.com/spaghettifunk/rendergraph/gpu"
	"github.com/spaghettifunk/rendergraph/rendergraph"
)

const (
	appName      = "rendergraph-demo"
	windowWidth  = 1280
	windowHeight = 720
	frameCount   = 3
)

func main() {
	p, err := platform.New()
	if err != nil {
		core.LogFatal("platform.New: %s", err)
	}
	if err := p.Startup(appName, 100, 100, windowWidth, windowHeight); err != nil {
		core.LogFatal("platform.Startup: %s", err)
	}
	defer p.Shutdown()

	device, err := gpu.Bootstrap(glfw.GetVulkanGetInstanceProcAddress(), gpu.BootstrapOptions{
		AppName:            appName,
		RequiredExtensions: append([]string{vk.KhrSurfaceExtensionName}, glfw.GetRequiredInstanceExtensions()...),
		EnableValidation:   true,
	})
	if err != nil {
		core.LogFatal("gpu.Bootstrap: %s", err)
	}

	surface, err := createSurface(p, device)
	if err != nil {
		core.LogFatal("createSurface: %s", err)
	}

	cfg := config.Default()

	binding, extent, err := buildSwapchainBinding(device, surface, cfg)
	if err != nil {
		core.LogFatal("buildSwapchainBinding: %s", err)
	}

	graph, presentPass, err := buildDemoGraph(device, binding, extent)
	if err != nil {
		core.LogFatal("buildDemoGraph: %s", err)
	}
	if err := graph.Compile(); err != nil {
		core.LogFatal("graph.Compile: %s", err)
	}
	if cfg.DebugDump {
		core.LogInfo(graph.DebugDump())
	}

	pools := gpu.NewCommandPoolSet(device)
	defer pools.Destroy()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		p.Window.SetShouldClose(true)
	}()

	clock := core.NewClock()
	clock.Start()

	for frame := uint64(0); frame < frameCount && !p.Window.ShouldClose(); frame++ {
		glfw.PollEvents()
		clock.Start()

		commands, err := graph.RecordFrame(pools, frame)
		if errors.Is(err, core.ErrSwapchainBooting) {
			core.LogWarn("frame %d: swapchain out of date, recreating at %dx%d", frame, windowWidth, windowHeight)
			if rerr := presentPass.RecreateSwapChain(windowWidth, windowHeight); rerr != nil {
				core.LogError("swapchain recreate: %s", rerr)
				break
			}
			continue
		}
		if err != nil {
			core.LogError("RecordFrame: %s", err)
			break
		}

		if err := submitFrame(device, commands); err != nil {
			core.LogError("submitFrame: %s", err)
			break
		}

		if res := vk.DeviceWaitIdle(device.Logical); res != vk.Success {
			core.LogError("DeviceWaitIdle: %s", gpu.ResultString(res))
		}
		clock.Update()
		core.LogDebug("frame %d recorded in %.3fms", frame, clock.Elapsed()/1e6)
	}
}

// submitFrame dispatches every command RecordFrame produced: Execute
// commands are submitted to their named queue, Present commands hand the
// acquired image back to the swapchain (spec §3's Command sum type).
func submitFrame(device *gpu.Device, commands []rendergraph.Command) error {
	for _, c := range commands {
		queue := device.Queue[c.Queue]
		switch c.Kind {
		case rendergraph.CommandExecute:
			submitInfo := vk.SubmitInfo{
				SType:              vk.StructureTypeSubmitInfo,
				CommandBufferCount: 1,
				PCommandBuffers:    []vk.CommandBuffer{c.Cmd.Handle},
			}
			if res := vk.QueueSubmit(queue, 1, []vk.SubmitInfo{submitInfo}, nil); res != vk.Success {
				return fmt.Errorf("gpu: QueueSubmit: %s", gpu.ResultString(res))
			}
		case rendergraph.CommandPresent:
			if _, err := c.Binding.Present(queue, c.WaitSem, c.ImageIndex); err != nil {
				return err
			}
		default:
			return fmt.Errorf("rendergraph: unrecognized command kind %d: %w", int(c.Kind), core.ErrUnknown)
		}
	}
	return nil
}

// createSurface wraps the window's native surface for the bootstrapped
// instance, adapted from the teacher's VulkanRenderer.createVulkanSurface
// (engine/renderer/vulkan/backend.go).
func createSurface(p *platform.Platform, device *gpu.Device) (vk.Surface, error) {
	raw, err := p.Window.CreateWindowSurface(device.Instance, nil)
	if err != nil {
		return nil, fmt.Errorf("glfw: CreateWindowSurface: %w", err)
	}
	return vk.SurfaceFromPointer(raw), nil
}

// buildSwapchainBinding queries the surface's capabilities/formats/present
// modes (adapted from the teacher's DeviceQuerySwapchainSupport) and uses
// them to construct the compiler's SwapchainBinding (C9).
func buildSwapchainBinding(device *gpu.Device, surface vk.Surface, cfg config.Config) (*rendergraph.SwapchainBinding, gpu.Extent3D, error) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(device.PhysicalDevice, surface, &caps); res != vk.Success {
		return nil, gpu.Extent3D{}, fmt.Errorf("gpu: querying surface capabilities: %s", gpu.ResultString(res))
	}
	caps.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(device.PhysicalDevice, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(device.PhysicalDevice, surface, &formatCount, formats)
	if len(formats) == 0 {
		return nil, gpu.Extent3D{}, fmt.Errorf("gpu: surface exposes no formats")
	}
	format := formats[0]
	format.Deref()

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(device.PhysicalDevice, surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(device.PhysicalDevice, surface, &presentModeCount, presentModes)

	extent := caps.CurrentExtent
	if extent.Width == 0xFFFFFFFF {
		extent = vk.Extent2D{Width: windowWidth, Height: windowHeight}
	}

	minImageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && minImageCount > caps.MaxImageCount {
		minImageCount = caps.MaxImageCount
	}

	depthFormat := chooseDepthFormat(device)

	binding, err := rendergraph.NewSwapchainBinding(
		device, surface, format, extent, minImageCount, caps.CurrentTransform, presentModes, cfg, depthFormat)
	if err != nil {
		return nil, gpu.Extent3D{}, err
	}
	return binding, gpu.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1}, nil
}

// chooseDepthFormat picks the first candidate the physical device supports
// as an optimal-tiled depth/stencil attachment, adapted from the teacher's
// DeviceDetectDepthFormat (engine/renderer/vulkan/device.go).
func chooseDepthFormat(device *gpu.Device) vk.Format {
	candidates := []vk.Format{vk.FormatD32Sfloat, vk.FormatD32SfloatS8Uint, vk.FormatD24UnormS8Uint}
	for _, f := range candidates {
		var props vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(device.PhysicalDevice, f, &props)
		props.Deref()
		if props.OptimalTilingFeatures&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0 {
			return f
		}
	}
	return vk.FormatD32Sfloat
}

// buildDemoGraph wires up a four-pass example: a compute pass fills a
// storage buffer, a render pass reads it as a uniform buffer while writing
// a color target, a compute post-process pass reads that color target as a
// storage image, and an on-surface pass renders into the acquired
// swapchain image (it declares no uses, so it does not read the color
// target). This exercises liveness, aggregation,
// realization, batching, the synchronizer's cross-family barrier
// insertion, and the recorder's BeginRenderPass/EndRenderPass bracketing
// and swapchain acquire/present path in a single run.
func buildDemoGraph(device *gpu.Device, binding *rendergraph.SwapchainBinding, extent gpu.Extent3D) (*rendergraph.RenderGraph, *rendergraph.Pass, error) {
	graph := rendergraph.Create(device)

	scratch := graph.CreateNewBufferAttachment("scratch", rendergraph.BufferAttachmentCreateInfo{
		Size: 4 * 1024 * 1024,
	})
	color := graph.CreateNewImageAttachment("color", rendergraph.ImageAttachmentCreateInfo{
		Shape:  gpu.Shape2D,
		Format: vk.FormatR8g8b8a8Unorm,
		Extent: extent,
		Layers: 1,
	})

	fill := rendergraph.NewComputePass("fill-scratch")
	scratchDef := rendergraph.NewBufferRef(rendergraph.DirDef, scratch,
		rendergraph.BufferRefInfo{Usage: vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit), Size: scratch.Size},
		vk.DescriptorTypeStorageBuffer)
	if err := fill.AddDef(scratchDef); err != nil {
		return nil, nil, err
	}
	fill.OnPass = func(ctx *rendergraph.FrameContext) error { return nil }
	graph.AddPass(fill)

	draw := rendergraph.NewRenderPass("draw")
	scratchUse := rendergraph.NewBufferRef(rendergraph.DirUse, scratch,
		rendergraph.BufferRefInfo{Usage: vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit), Size: scratch.Size},
		vk.DescriptorTypeUniformBuffer)
	if err := draw.AddUse(scratchUse); err != nil {
		return nil, nil, err
	}
	colorDef := rendergraph.NewFramebufferImageRef(rendergraph.DirDef, color, rendergraph.ImageRefInfo{
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ViewShape:  gpu.View2D,
		LayerCount: 1,
		Format:     vk.FormatR8g8b8a8Unorm,
	}, 0)
	if err := draw.AddDef(colorDef); err != nil {
		return nil, nil, err
	}
	draw.OnPass = func(ctx *rendergraph.FrameContext) error { return nil }
	graph.AddPass(draw)

	post := rendergraph.NewComputePass("post-process")
	colorUse := rendergraph.NewDescriptorImageRef(rendergraph.DirUse, color, rendergraph.ImageRefInfo{
		Layout:     vk.ImageLayoutGeneral,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageStorageBit),
		ViewShape:  gpu.View2D,
		LayerCount: 1,
		Format:     vk.FormatR8g8b8a8Unorm,
	}, vk.DescriptorTypeStorageImage)
	if err := post.AddUse(colorUse); err != nil {
		return nil, nil, err
	}
	post.OnPass = func(ctx *rendergraph.FrameContext) error { return nil }
	graph.AddPass(post)

	present := rendergraph.NewOnSurfacePass("present", binding)
	present.OnPass = func(ctx *rendergraph.FrameContext) error { return nil }
	graph.AddPass(present)

	return graph, present, nil
}
