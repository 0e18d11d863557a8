package renderer

import (
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
)

// Vertex layout of the builtin 2D pipelines: position, uv and color.
var BuiltinDecl = gapi.Decl{gapi.Float3, gapi.Float2, gapi.Float4}

const BuiltinStride = 4 * (3 + 2 + 4)

const (
	shaderVert2d    = "shaders/painter2d.vert.spv"
	shaderFrag2d    = "shaders/painter2d.frag.spv"
	shaderFrag2dTex = "shaders/painter2d_tex.frag.spv"
)

// ShaderSource looks up compiled SPIR-V by name.
type ShaderSource interface {
	Shader(name string) ([]byte, error)
}

// BuiltinPipelines pairs the triangle and line variant of one shader set.
type BuiltinPipelines struct {
	Brush  gapi.Pipeline
	Pen    gapi.Pipeline
	Layout *gapi.UniformsLayout
}

// Pick returns the variant drawing tp.
func (b *BuiltinPipelines) Pick(tp gapi.Topology) gapi.Pipeline {
	if tp == gapi.Triangles {
		return b.Brush
	}
	return b.Pen
}

// Builtin holds the pipelines 2D painting is done with.
type Builtin struct {
	Texture2d BuiltinPipelines
	Empty     BuiltinPipelines

	shaders   []gapi.Shader
	pipelines []gapi.Pipeline
}

func newBuiltin(api gapi.Api, dev gapi.Device, src ShaderSource) (b *Builtin, err error) {
	b = &Builtin{}
	defer func() {
		if err != nil {
			b.destroy(api, dev)
		}
	}()

	vs, err := b.shader(api, dev, src, shaderVert2d, gapi.StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := b.shader(api, dev, src, shaderFrag2d, gapi.StageFragment)
	if err != nil {
		return nil, err
	}
	fsTex, err := b.shader(api, dev, src, shaderFrag2dTex, gapi.StageFragment)
	if err != nil {
		return nil, err
	}

	texLayout := &gapi.UniformsLayout{Bindings: []gapi.Binding{
		{Layout: 0, Kind: gapi.UniformTexture, Stage: gapi.StageFragment},
	}}
	if err := b.pair(api, dev, &b.Texture2d, texLayout, vs, fsTex); err != nil {
		return nil, err
	}
	if err := b.pair(api, dev, &b.Empty, &gapi.UniformsLayout{}, vs, fs); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builtin) shader(api gapi.Api, dev gapi.Device, src ShaderSource, name string, stage gapi.ShaderStage) (gapi.Shader, error) {
	code, err := src.Shader(name)
	if err != nil {
		core.LogError("failed to load builtin shader %s: %s", name, err)
		return nil, err
	}
	sh, err := api.CreateShader(dev, code, stage)
	if err != nil {
		return nil, err
	}
	b.shaders = append(b.shaders, sh)
	return sh, nil
}

func (b *Builtin) pair(api gapi.Api, dev gapi.Device, out *BuiltinPipelines, ulay *gapi.UniformsLayout, vs, fs gapi.Shader) error {
	st := gapi.AlphaBlended()
	for _, tp := range []gapi.Topology{gapi.Triangles, gapi.Lines} {
		p, err := api.CreatePipeline(dev, st, BuiltinDecl, BuiltinStride, tp, ulay, vs, fs)
		if err != nil {
			return err
		}
		b.pipelines = append(b.pipelines, p)
		if tp == gapi.Triangles {
			out.Brush = p
		} else {
			out.Pen = p
		}
	}
	out.Layout = ulay
	return nil
}

func (b *Builtin) destroy(api gapi.Api, dev gapi.Device) {
	for _, p := range b.pipelines {
		api.DestroyPipeline(dev, p)
	}
	for _, s := range b.shaders {
		api.DestroyShader(dev, s)
	}
	b.pipelines, b.shaders = nil, nil
}
