package vulkan

import (
	"testing"

	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError("vkCreateFence", vk.Success))

	cases := map[vk.Result]error{
		vk.ErrorOutOfHostMemory:      core.ErrOutOfHostMemory,
		vk.ErrorMemoryMapFailed:      core.ErrOutOfHostMemory,
		vk.ErrorOutOfDeviceMemory:    core.ErrOutOfDeviceMemory,
		vk.ErrorFragmentedPool:       core.ErrOutOfDeviceMemory,
		vk.ErrorDeviceLost:           core.ErrDeviceLost,
		vk.ErrorOutOfDate:            core.ErrSwapchainOutdated,
		vk.ErrorLayerNotPresent:      core.ErrUnsupported,
		vk.ErrorInitializationFailed: core.ErrNativeFailure,
	}
	for res, kind := range cases {
		err := resultError("op", res)
		require.Error(t, err)
		assert.True(t, errors.Is(err, kind), "%s", resultString(res))
		assert.Contains(t, err.Error(), resultString(res))
		assert.Contains(t, err.Error(), "op")
	}
}

func TestCString(t *testing.T) {
	var name [16]byte
	copy(name[:], "llvmpipe")
	assert.Equal(t, "llvmpipe", cString(name[:]))
	assert.Equal(t, "abc", cString([]byte("abc")))
}

func TestSafeStrings(t *testing.T) {
	in := []string{"VK_KHR_surface", "done\x00"}
	out := safeStrings(in)
	assert.Equal(t, []string{"VK_KHR_surface\x00", "done\x00"}, out)
	assert.Equal(t, "VK_KHR_surface", in[0])
}

func TestBytecode(t *testing.T) {
	code := bytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00})
	assert.Equal(t, []uint32{0x07230203, 1}, code)
}
