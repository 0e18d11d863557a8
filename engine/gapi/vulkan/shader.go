package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

type VShader struct {
	module vk.ShaderModule
	stage  gapi.ShaderStage
}

func (s *VShader) Stage() gapi.ShaderStage {
	return s.stage
}

func (s *VShader) stageInfo() vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageFlagBits(stageFlags(s.stage)),
		Module: s.module,
		PName:  safeString("main"),
	}
}

func (a *VulkanApi) CreateShader(gd gapi.Device, code []byte, stage gapi.ShaderStage) (gapi.Shader, error) {
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, core.Wrap(core.ErrUnsupported, nil, "shader code is not a sequence of 32-bit words")
	}
	info := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    bytecode(code),
	}
	s := &VShader{stage: stage}
	if err := resultError("vkCreateShaderModule", vk.CreateShaderModule(dev(gd).logical, &info, nil, &s.module)); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *VulkanApi) DestroyShader(gd gapi.Device, s gapi.Shader) {
	vk.DestroyShaderModule(dev(gd).logical, s.(*VShader).module, nil)
}
