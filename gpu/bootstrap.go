package gpu

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rendergraph/engine/core"
)

// BootstrapOptions parameterizes instance and device creation. Physical
// device scoring (discrete vs integrated, feature requirements) is
// explicitly out of scope: Bootstrap always takes the first enumerated
// device, adapted from the teacher's SelectPhysicalDevice but stripped of
// its requirement-matching loop.
type BootstrapOptions struct {
	AppName            string
	RequiredExtensions []string
	EnableValidation   bool
}

// Bootstrap creates a Vulkan instance and logical device and returns a
// ready-to-use Device, grounded on the teacher's VulkanRenderer.Initialize
// and DeviceCreate (engine/renderer/vulkan/{backend,device}.go).
func Bootstrap(getInstanceProcAddr unsafe.Pointer, opts BootstrapOptions) (*Device, error) {
	if getInstanceProcAddr != nil {
		vk.SetGetInstanceProcAddr(getInstanceProcAddr)
	}
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("gpu: vk.Init: %w", err)
	}

	extensions := append([]string{"VK_KHR_surface"}, opts.RequiredExtensions...)
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
	}
	var layers []string
	if opts.EnableValidation {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   vulkanSafeString(opts.AppName),
		PEngineName:        vulkanSafeString("rendergraph"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: vulkanSafeStrings(extensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     vulkanSafeStrings(layers),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating instance: %s", ResultString(res))
	}
	if err := vk.InitInstance(instance); err != nil {
		return nil, fmt.Errorf("gpu: InitInstance: %w", err)
	}
	core.LogInfo("gpu: instance created")

	var count uint32
	if res := vk.EnumeratePhysicalDevices(instance, &count, nil); res != vk.Success || count == 0 {
		return nil, fmt.Errorf("gpu: no physical devices available")
	}
	physicalDevices := make([]vk.PhysicalDevice, count)
	if res := vk.EnumeratePhysicalDevices(instance, &count, physicalDevices); res != vk.Success {
		return nil, fmt.Errorf("gpu: enumerating physical devices: %s", ResultString(res))
	}
	physicalDevice := physicalDevices[0]

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(physicalDevice, &memProps)
	memProps.Deref()

	familyIndex, err := findGraphicsComputeTransferFamily(physicalDevice)
	if err != nil {
		return nil, err
	}

	var queuePriority float32 = 1.0
	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: familyIndex,
		QueueCount:       1,
		PQueuePriorities: []float32{queuePriority},
	}
	deviceExtensions := []string{vk.KhrSwapchainExtensionName}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    1,
		PQueueCreateInfos:       []vk.DeviceQueueCreateInfo{queueInfo},
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: vulkanSafeStrings(deviceExtensions),
	}
	var logical vk.Device
	if res := vk.CreateDevice(physicalDevice, &deviceInfo, nil, &logical); res != vk.Success {
		return nil, fmt.Errorf("gpu: creating logical device: %s", ResultString(res))
	}
	vk.InitDevice(logical)

	var queue vk.Queue
	vk.GetDeviceQueue(logical, familyIndex, 0, &queue)

	device := &Device{
		Instance:       instance,
		PhysicalDevice: physicalDevice,
		Logical:        logical,
		Allocator:      nil,
		Memory:         memProps,
		Locks:          NewLockPool(),
		FamilyIndex: map[QueueFamily]uint32{
			FamilyGraphics: familyIndex,
			FamilyCompute:  familyIndex,
			FamilyTransfer: familyIndex,
		},
		Queue: map[QueueFamily]vk.Queue{
			FamilyGraphics: queue,
			FamilyCompute:  queue,
			FamilyTransfer: queue,
		},
	}
	core.LogInfo("gpu: logical device created on queue family %d", familyIndex)
	return device, nil
}

// findGraphicsComputeTransferFamily picks the first queue family that
// advertises all three capability bits, which every desktop Vulkan
// implementation's family 0 does in practice. Splitting compute/transfer
// onto dedicated async queues is left to a future enhancement.
func findGraphicsComputeTransferFamily(pd vk.PhysicalDevice) (uint32, error) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &count, props)

	want := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit | vk.QueueTransferBit)
	for i := range props {
		props[i].Deref()
		if props[i].QueueFlags&want == want {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("gpu: no queue family supports graphics+compute+transfer")
}

func vulkanSafeString(s string) string { return s + "\x00" }

func vulkanSafeStrings(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = vulkanSafeString(s)
	}
	return out
}
