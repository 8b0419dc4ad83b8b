package gpu

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

// ResultString renders a vk.Result the way the teacher's
// VulkanResultString did, minus the extended/non-extended split the
// teacher never actually used.
func ResultString(result vk.Result) string {
	switch result {
	case vk.Success:
		return "VK_SUCCESS"
	case vk.NotReady:
		return "VK_NOT_READY"
	case vk.Timeout:
		return "VK_TIMEOUT"
	case vk.Suboptimal:
		return "VK_SUBOPTIMAL_KHR"
	case vk.ErrorOutOfDate:
		return "VK_ERROR_OUT_OF_DATE_KHR"
	case vk.ErrorDeviceLost:
		return "VK_ERROR_DEVICE_LOST"
	case vk.ErrorOutOfHostMemory:
		return "VK_ERROR_OUT_OF_HOST_MEMORY"
	case vk.ErrorOutOfDeviceMemory:
		return "VK_ERROR_OUT_OF_DEVICE_MEMORY"
	default:
		return fmt.Sprintf("VK_RESULT(%d)", int32(result))
	}
}

// ResultIsSuccess reports whether result is a non-error, non-exceptional
// Vulkan result (Success or Suboptimal).
func ResultIsSuccess(result vk.Result) bool {
	return result == vk.Success || result == vk.Suboptimal
}

func checkResult(op string, result vk.Result) error {
	if result != vk.Success {
		return fmt.Errorf("%s: %s", op, ResultString(result))
	}
	return nil
}
