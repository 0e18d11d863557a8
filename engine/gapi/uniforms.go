package gapi

type UniformKind uint8

const (
	UniformBuffer UniformKind = iota
	UniformTexture
	UniformStorage
)

type Binding struct {
	Layout uint32
	Kind   UniformKind
	Stage  ShaderStage
}

// UniformsLayout declares the descriptor bindings a pipeline expects.
type UniformsLayout struct {
	Bindings []Binding
}

func (u *UniformsLayout) Binding(layout uint32) (Binding, bool) {
	for _, b := range u.Bindings {
		if b.Layout == layout {
			return b, true
		}
	}
	return Binding{}, false
}
