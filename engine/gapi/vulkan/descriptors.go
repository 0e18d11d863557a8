package vulkan

import (
	"github.com/cockroachdb/errors"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

var ErrBindingMismatch = errors.New("uniform binding does not match the layout")

// VDesc owns a pool holding exactly one set. A layout without bindings
// gets no native set at all.
type VDesc struct {
	dev  *VDevice
	ulay *gapi.UniformsLayout
	pool vk.DescriptorPool
	set  vk.DescriptorSet
}

func (a *VulkanApi) CreateDescriptors(gd gapi.Device, ulay *gapi.UniformsLayout) (gapi.Desc, error) {
	d := dev(gd)
	u := &VDesc{dev: d, ulay: ulay}
	if len(ulay.Bindings) == 0 {
		return u, nil
	}

	counts := make(map[vk.DescriptorType]uint32)
	for _, b := range ulay.Bindings {
		typ, err := descriptorType(b.Kind)
		if err != nil {
			return nil, err
		}
		counts[typ]++
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for typ, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: typ, DescriptorCount: n})
	}
	setLayout, err := d.setLayout(ulay)
	if err != nil {
		return nil, err
	}

	err = a.locks.SafeCall(DescriptorManagement, func() error {
		poolInfo := vk.DescriptorPoolCreateInfo{
			SType:         vk.StructureTypeDescriptorPoolCreateInfo,
			MaxSets:       1,
			PoolSizeCount: uint32(len(sizes)),
			PPoolSizes:    sizes,
		}
		if err := resultError("vkCreateDescriptorPool", vk.CreateDescriptorPool(d.logical, &poolInfo, nil, &u.pool)); err != nil {
			return err
		}
		sets := make([]vk.DescriptorSet, 1)
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     u.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{setLayout},
		}
		if err := resultError("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(d.logical, &allocInfo, &sets[0])); err != nil {
			vk.DestroyDescriptorPool(d.logical, u.pool, nil)
			return err
		}
		u.set = sets[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// DestroyDescriptors waits for the device since a submitted command
// buffer may still read the set.
func (a *VulkanApi) DestroyDescriptors(gd gapi.Device, gu gapi.Desc) {
	d := dev(gd)
	u := gu.(*VDesc)
	if u.pool == nil {
		return
	}
	if err := d.waitIdle(); err != nil {
		core.LogError("wait idle before descriptor release: %s", err)
	}
	_ = a.locks.SafeCall(DescriptorManagement, func() error {
		vk.DestroyDescriptorPool(d.logical, u.pool, nil)
		return nil
	})
	u.pool, u.set = nil, nil
}

func (u *VDesc) binding(layout uint32, kinds ...gapi.UniformKind) (vk.DescriptorType, error) {
	b, ok := u.ulay.Binding(layout)
	if !ok {
		return 0, errors.Wrapf(ErrBindingMismatch, "no binding %d", layout)
	}
	for _, k := range kinds {
		if b.Kind == k {
			return descriptorType(k)
		}
	}
	return 0, errors.Wrapf(ErrBindingMismatch, "binding %d has kind %d", layout, b.Kind)
}

func (u *VDesc) SetTexture(layout uint32, tex gapi.Texture) error {
	typ, err := u.binding(layout, gapi.UniformTexture)
	if err != nil {
		return err
	}
	t, ok := tex.(*VTexture)
	if !ok {
		return errors.Wrapf(ErrBindingMismatch, "%T cannot be sampled", tex)
	}
	u.write(vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          u.set,
		DstBinding:      layout,
		DescriptorCount: 1,
		DescriptorType:  typ,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     t.sampler,
			ImageView:   t.view,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	})
	return nil
}

func (u *VDesc) SetBuffer(layout uint32, buf gapi.Buffer, offset, size uint64) error {
	typ, err := u.binding(layout, gapi.UniformBuffer, gapi.UniformStorage)
	if err != nil {
		return err
	}
	if offset+size > buf.Size() {
		return errors.Newf("range [%d, %d) outside buffer of %d bytes", offset, offset+size, buf.Size())
	}
	u.write(vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          u.set,
		DstBinding:      layout,
		DescriptorCount: 1,
		DescriptorType:  typ,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buf.(*VBuffer).buf.Native,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	})
	return nil
}

func (u *VDesc) write(w vk.WriteDescriptorSet) {
	_ = u.dev.api.locks.SafeCall(DescriptorManagement, func() error {
		vk.UpdateDescriptorSets(u.dev.logical, 1, []vk.WriteDescriptorSet{w}, 0, nil)
		return nil
	})
}
